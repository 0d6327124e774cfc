package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	orderserrors "atelier/internal/orders/errors"
	"atelier/internal/orders/repository"
	productsservice "atelier/internal/products/service"
	"atelier/pkg/config"
	apperrors "atelier/pkg/errors"
	"atelier/pkg/event"
	"atelier/pkg/mail"
	"atelier/pkg/model"
	"atelier/pkg/payment"
	"atelier/pkg/sanitizer"
	"atelier/pkg/validate"
)

type OrderService interface {
	Create(ctx context.Context, order *model.Order, cardToken string) error
	GetByID(ctx context.Context, id string) (*model.Order, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Order, int64, error)
	UpdateStatus(ctx context.Context, id string, orderStatus string) (*model.Order, error)
	UpdatePaymentStatus(ctx context.Context, id string, paymentStatus string) (*model.Order, error)
	Delete(ctx context.Context, id string) error
	Statistics(ctx context.Context) (*model.OrderStatistics, error)
}

type orderService struct {
	repo      repository.OrderRepository
	products  productsservice.ProductService
	provider  payment.Provider
	validator *validate.Validator
	notifier  *mail.Notifier
	events    event.Publisher
	cfg       *config.Config
}

func NewOrderService(
	repo repository.OrderRepository,
	products productsservice.ProductService,
	provider payment.Provider,
	notifier *mail.Notifier,
	events event.Publisher,
	cfg *config.Config,
) OrderService {
	return &orderService{
		repo:      repo,
		products:  products,
		provider:  provider,
		validator: validate.New(),
		notifier:  notifier,
		events:    events,
		cfg:       cfg,
	}
}

func (s *orderService) Create(ctx context.Context, order *model.Order, cardToken string) error {
	s.applyDefaults(order)
	s.sanitize(order)

	if err := s.validator.Struct(order); err != nil {
		return validationError(err)
	}

	// The submitted total must equal the line-item sum exactly.
	if order.TotalPrice != order.ItemsTotal() {
		return apperrors.Validation("Order total does not match line items", map[string]any{
			"total_price": fmt.Sprintf("submitted %d, line items sum to %d", order.TotalPrice, order.ItemsTotal()),
		})
	}

	if err := s.products.ReserveStock(ctx, order.Items); err != nil {
		return err
	}
	reserved := true
	release := func() {
		if !reserved {
			return
		}
		reserved = false
		if err := s.products.ReleaseStock(context.WithoutCancel(ctx), order.Items); err != nil {
			s.cfg.Log.Error("Failed to release stock for order", "reference", order.Reference, "error", err)
		}
	}

	if order.PaymentMethod == model.PaymentMethodCreditCard {
		s.charge(ctx, order, cardToken)
		// A declined card still records the order, but must not consume stock.
		if order.PaymentStatus == model.OrderPaymentFailed {
			release()
		}
	}

	if err := s.repo.Create(ctx, order); err != nil {
		release()
		s.cfg.Log.Error("Failed to create order", "reference", order.Reference, "error", err)
		return apperrors.Internal("Failed to create order", err)
	}

	s.cfg.Log.Info("Order created successfully",
		"id", order.ID,
		"reference", order.Reference,
		"total_price", order.TotalPrice,
		"payment_status", order.PaymentStatus,
	)

	sideCtx := context.WithoutCancel(ctx)
	if order.PaymentStatus == model.OrderPaymentCompleted {
		s.notifier.OrderConfirmation(sideCtx, order)
	}
	s.notifier.AdminAlert(sideCtx, "New Order Placed",
		fmt.Sprintf("Order %s from %s (%s), total %d, payment %s.",
			order.Reference, order.Customer.Name, order.Customer.Email,
			order.TotalPrice, order.PaymentStatus))
	s.events.Emit(sideCtx, event.TypeOrderCreated, order.ID, map[string]any{
		"order_id":       order.ID,
		"reference":      order.Reference,
		"total_price":    order.TotalPrice,
		"payment_status": order.PaymentStatus,
	})
	return nil
}

// charge runs the card through the provider and records the outcome on the
// order. Provider errors mark the payment failed instead of failing the
// order creation.
func (s *orderService) charge(ctx context.Context, order *model.Order, cardToken string) {
	result, err := s.provider.CreateCharge(ctx, payment.ChargeInput{
		Amount:       order.TotalPrice,
		Currency:     s.cfg.PaymentCurrency,
		CardToken:    cardToken,
		Description:  "Order " + order.Reference,
		ReceiptEmail: order.Customer.Email,
		ReferenceID:  order.Reference,
	})
	if err != nil {
		s.cfg.Log.Error("Payment charge failed", "reference", order.Reference, "error", err)
		order.PaymentStatus = model.OrderPaymentFailed
		return
	}

	order.PaymentIntent = result.IntentID
	switch result.Status {
	case payment.ChargeStatusPaid:
		order.PaymentStatus = model.OrderPaymentCompleted
	case payment.ChargeStatusFailed:
		order.PaymentStatus = model.OrderPaymentFailed
		s.cfg.Log.Warn("Payment declined",
			"reference", order.Reference,
			"failure_code", result.FailureCode,
			"failure_message", result.FailureMessage,
		)
	default:
		order.PaymentStatus = model.OrderPaymentPending
	}
}

func (s *orderService) GetByID(ctx context.Context, id string) (*model.Order, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Order ID cannot be empty")
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}
	return order, nil
}

func (s *orderService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Order, int64, error) {
	var count int64
	var orders []*model.Order
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count orders", "error", errCount)
			errCount = apperrors.Internal("Failed to count orders", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		orders, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list orders", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve orders", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return orders, count, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, id string, orderStatus string) (*model.Order, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Order ID cannot be empty")
	}
	if !validOrderStatus(orderStatus) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Invalid order status: %s", orderStatus))
	}

	if err := s.repo.UpdateStatus(ctx, id, orderStatus); err != nil {
		if errors.Is(err, orderserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Order", id)
		}
		if errors.Is(err, orderserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid order ID format")
		}
		s.cfg.Log.Error("Failed to update order status", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update order status", err)
	}

	s.cfg.Log.Info("Order status updated", "id", id, "status", orderStatus)

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}
	return order, nil
}

// UpdatePaymentStatus overrides an order's payment status. Confirmation
// and admin alert fire only on the transition into completed.
func (s *orderService) UpdatePaymentStatus(ctx context.Context, id string, paymentStatus string) (*model.Order, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Order ID cannot be empty")
	}
	if !validPaymentStatus(paymentStatus) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Invalid payment status: %s", paymentStatus))
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}

	becamePaid := order.PaymentStatus != model.OrderPaymentCompleted &&
		paymentStatus == model.OrderPaymentCompleted

	if err := s.repo.UpdatePayment(ctx, id, paymentStatus, ""); err != nil {
		s.cfg.Log.Error("Failed to update payment status", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update payment status", err)
	}
	order.PaymentStatus = paymentStatus

	s.cfg.Log.Info("Order payment status updated", "id", id, "status", paymentStatus)

	sideCtx := context.WithoutCancel(ctx)
	if becamePaid {
		s.notifier.OrderConfirmation(sideCtx, order)
		s.notifier.AdminAlert(sideCtx, "Order Payment Received",
			fmt.Sprintf("Order %s from %s (%s) is now paid, total %d.",
				order.Reference, order.Customer.Name, order.Customer.Email, order.TotalPrice))
		s.events.Emit(sideCtx, event.TypePaymentPaid, order.ID, map[string]any{
			"order_id":    order.ID,
			"reference":   order.Reference,
			"total_price": order.TotalPrice,
		})
	} else if paymentStatus == model.OrderPaymentFailed {
		s.events.Emit(sideCtx, event.TypePaymentFailed, order.ID, map[string]any{
			"order_id":  order.ID,
			"reference": order.Reference,
		})
	}
	return order, nil
}

func (s *orderService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Order ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, orderserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Order", id)
		}
		if errors.Is(err, orderserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid order ID format")
		}
		s.cfg.Log.Error("Failed to delete order", "id", id, "error", err)
		return apperrors.Internal("Failed to delete order", err)
	}

	s.cfg.Log.Info("Order deleted successfully", "id", id)
	return nil
}

func (s *orderService) Statistics(ctx context.Context) (*model.OrderStatistics, error) {
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to aggregate order statistics", "error", err)
		return nil, apperrors.Internal("Failed to compute order statistics", err)
	}
	return stats, nil
}

// --- Helpers ---

func (s *orderService) applyDefaults(o *model.Order) {
	if o.PaymentStatus == "" {
		o.PaymentStatus = model.OrderPaymentPending
	}
	if o.OrderStatus == "" {
		o.OrderStatus = model.OrderStatusProcessing
	}
	if o.Reference == "" {
		o.Reference = "ORD-" + strings.ToUpper(uuid.NewString()[:8])
	}
}

func (s *orderService) sanitize(o *model.Order) {
	o.Customer.Name = sanitizer.Name(o.Customer.Name)
	o.Customer.Email = sanitizer.Email(o.Customer.Email)
	o.Customer.Address = sanitizer.Text(o.Customer.Address)
	for i := range o.Items {
		o.Items[i].Name = sanitizer.Name(o.Items[i].Name)
	}
}

func validOrderStatus(status string) bool {
	switch status {
	case model.OrderStatusProcessing, model.OrderStatusShipped,
		model.OrderStatusDelivered, model.OrderStatusCancelled:
		return true
	}
	return false
}

func validPaymentStatus(status string) bool {
	switch status {
	case model.OrderPaymentPending, model.OrderPaymentCompleted, model.OrderPaymentFailed:
		return true
	}
	return false
}

func validationError(err error) error {
	var fieldErrs validate.FieldErrors
	if errors.As(err, &fieldErrs) {
		return apperrors.Validation("Order validation failed", fieldErrs.Details())
	}
	return apperrors.Validation("Order validation failed", map[string]any{"error": err.Error()})
}

func mapLookupError(err error, id string) error {
	if errors.Is(err, orderserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Order", id)
	}
	if errors.Is(err, orderserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid order ID format")
	}
	return apperrors.Internal("Failed to retrieve order", err)
}
