package service

import (
	"context"
	"errors"
	"testing"
	"time"

	orderserrors "atelier/internal/orders/errors"
	"atelier/internal/orders/repository"
	"atelier/pkg/config"
	apperrors "atelier/pkg/errors"
	"atelier/pkg/event"
	"atelier/pkg/logger"
	"atelier/pkg/mail"
	"atelier/pkg/model"
	"atelier/pkg/payment"
)

type mockOrderRepository struct {
	orders []*model.Order
}

func (m *mockOrderRepository) Create(ctx context.Context, order *model.Order) error {
	if order.ID == "" {
		order.ID = "6579a1b2c3d4e5f6a7b8c9d0"
	}
	order.CreatedAt = time.Now()
	stored := *order
	m.orders = append(m.orders, &stored)
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id string) (*model.Order, error) {
	for _, o := range m.orders {
		if o.ID == id {
			copied := *o
			return &copied, nil
		}
	}
	return nil, orderserrors.ErrNotFound
}

func (m *mockOrderRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Order, error) {
	return m.orders, nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id string, orderStatus string) error {
	for _, o := range m.orders {
		if o.ID == id {
			o.OrderStatus = orderStatus
			return nil
		}
	}
	return orderserrors.ErrNotFound
}

func (m *mockOrderRepository) UpdatePayment(ctx context.Context, id string, paymentStatus, paymentIntent string) error {
	for _, o := range m.orders {
		if o.ID == id {
			o.PaymentStatus = paymentStatus
			if paymentIntent != "" {
				o.PaymentIntent = paymentIntent
			}
			return nil
		}
	}
	return orderserrors.ErrNotFound
}

func (m *mockOrderRepository) Delete(ctx context.Context, id string) error {
	for i, o := range m.orders {
		if o.ID == id {
			m.orders = append(m.orders[:i], m.orders[i+1:]...)
			return nil
		}
	}
	return orderserrors.ErrNotFound
}

func (m *mockOrderRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(m.orders)), nil
}

func (m *mockOrderRepository) Statistics(ctx context.Context) (*model.OrderStatistics, error) {
	return &model.OrderStatistics{TotalOrders: int64(len(m.orders))}, nil
}

// Fails every insert so the compensation path can be exercised.
type failingCreateRepository struct {
	mockOrderRepository
}

func (m *failingCreateRepository) Create(ctx context.Context, order *model.Order) error {
	return errors.New("write concern error")
}

// Product service mock tracking reserved quantities.
type mockProductService struct {
	stock      map[string]int
	reserveErr error
	releases   int
}

func (m *mockProductService) Create(ctx context.Context, product *model.Product) error { return nil }
func (m *mockProductService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	return nil, nil
}
func (m *mockProductService) GetAll(ctx context.Context, category string, limit int, offset int64) ([]*model.Product, int64, error) {
	return nil, 0, nil
}
func (m *mockProductService) Update(ctx context.Context, id string, product *model.Product) (*model.Product, error) {
	return nil, nil
}
func (m *mockProductService) Delete(ctx context.Context, id string) error { return nil }
func (m *mockProductService) Statistics(ctx context.Context) ([]model.CategoryStat, error) {
	return nil, nil
}

func (m *mockProductService) ReserveStock(ctx context.Context, items []model.LineItem) error {
	if m.reserveErr != nil {
		return m.reserveErr
	}
	for _, item := range items {
		available, ok := m.stock[item.ProductID]
		if !ok {
			return apperrors.InvalidInput("Unknown product: " + item.ProductID)
		}
		if available < item.Quantity {
			return apperrors.Conflict("Insufficient stock for product " + item.ProductID)
		}
		m.stock[item.ProductID] = available - item.Quantity
	}
	return nil
}

func (m *mockProductService) ReleaseStock(ctx context.Context, items []model.LineItem) error {
	for _, item := range items {
		m.stock[item.ProductID] += item.Quantity
	}
	m.releases++
	return nil
}

// Declines every charge with a provider-side failure status.
type decliningProvider struct{}

func (decliningProvider) CreateCharge(ctx context.Context, in payment.ChargeInput) (*payment.ChargeResult, error) {
	return &payment.ChargeResult{Status: payment.ChargeStatusFailed, FailureCode: "insufficient_funds"}, nil
}

func (decliningProvider) Refund(ctx context.Context, intentID string, amount int64) error {
	return nil
}

type recordingPublisher struct {
	types []string
}

func (p *recordingPublisher) Emit(_ context.Context, eventType, _ string, _ map[string]any) {
	p.types = append(p.types, eventType)
}

func (p *recordingPublisher) Close() error { return nil }

const productID = "6579a1b2c3d4e5f6a7b8c9aa"

func newTestOrderService(repo *mockOrderRepository, products *mockProductService) OrderService {
	return newOrderServiceWith(repo, products, payment.NewStubProvider(), event.NoopPublisher{})
}

func newOrderServiceWith(
	repo repository.OrderRepository,
	products *mockProductService,
	provider payment.Provider,
	events event.Publisher,
) OrderService {
	log := logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test"})
	cfg := &config.Config{Log: log, PaymentCurrency: "usd"}
	notifier := mail.NewNotifier(mail.NewLogSender(log), "admin@example.com", "http://localhost:3000", log)
	return NewOrderService(repo, products, provider, notifier, events, cfg)
}

func validOrder() *model.Order {
	return &model.Order{
		Customer: model.OrderCustomer{
			Name:    "Grace Hopper",
			Email:   "grace@example.com",
			Address: "1 Navy Way, Arlington, VA",
		},
		PaymentMethod: model.PaymentMethodCreditCard,
		Items: []model.LineItem{
			{ProductID: productID, Name: "Linen Shirt", UnitPrice: 4500, Size: "M", Quantity: 2},
		},
		TotalPrice:     9000,
		CommodityPrice: 9000,
	}
}

func TestCreate_Succeeds(t *testing.T) {
	repo := &mockOrderRepository{}
	products := &mockProductService{stock: map[string]int{productID: 10}}
	svc := newTestOrderService(repo, products)

	order := validOrder()
	if err := svc.Create(context.Background(), order, "tok_test"); err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}
	if order.Reference == "" {
		t.Error("expected a generated order reference")
	}
	if order.PaymentStatus != model.OrderPaymentCompleted {
		t.Errorf("expected payment completed via stub provider, got %q", order.PaymentStatus)
	}
	if order.OrderStatus != model.OrderStatusProcessing {
		t.Errorf("expected default order status processing, got %q", order.OrderStatus)
	}
	if products.stock[productID] != 8 {
		t.Errorf("expected stock reduced to 8, got %d", products.stock[productID])
	}
}

func TestCreate_RejectsTotalMismatch(t *testing.T) {
	repo := &mockOrderRepository{}
	products := &mockProductService{stock: map[string]int{productID: 10}}
	svc := newTestOrderService(repo, products)

	order := validOrder()
	order.TotalPrice = 8999

	err := svc.Create(context.Background(), order, "tok_test")
	if err == nil {
		t.Fatal("expected mismatched total to be rejected")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus != 400 {
		t.Errorf("expected status 400, got %d", appErr.HTTPStatus)
	}
	if len(repo.orders) != 0 {
		t.Error("expected no order to be stored")
	}
	if products.stock[productID] != 10 {
		t.Error("expected stock untouched on rejection")
	}
}

func TestCreate_TotalMustEqualItemSum(t *testing.T) {
	quantities := [][2]int64{{4500, 2}, {1200, 1}, {300, 5}, {9999, 3}}

	for _, q := range quantities {
		order := validOrder()
		order.Items = []model.LineItem{
			{ProductID: productID, Name: "Item", UnitPrice: q[0], Quantity: int(q[1])},
		}
		order.TotalPrice = q[0] * q[1]

		if got := order.ItemsTotal(); got != order.TotalPrice {
			t.Errorf("ItemsTotal() = %d, want %d", got, order.TotalPrice)
		}

		repo := &mockOrderRepository{}
		products := &mockProductService{stock: map[string]int{productID: 100}}
		svc := newTestOrderService(repo, products)
		if err := svc.Create(context.Background(), order, "tok_test"); err != nil {
			t.Errorf("matching total %d should be accepted: %v", order.TotalPrice, err)
		}
	}
}

func TestCreate_UnknownProductRejected(t *testing.T) {
	repo := &mockOrderRepository{}
	products := &mockProductService{stock: map[string]int{}}
	svc := newTestOrderService(repo, products)

	if err := svc.Create(context.Background(), validOrder(), "tok_test"); err == nil {
		t.Fatal("expected unknown product to be rejected")
	}
	if len(repo.orders) != 0 {
		t.Error("expected no order to be stored")
	}
}

func TestCreate_InsufficientStockRejected(t *testing.T) {
	repo := &mockOrderRepository{}
	products := &mockProductService{stock: map[string]int{productID: 1}}
	svc := newTestOrderService(repo, products)

	err := svc.Create(context.Background(), validOrder(), "tok_test")
	if err == nil {
		t.Fatal("expected insufficient stock to be rejected")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus != 400 {
		t.Errorf("expected 400 conflict, got %v", err)
	}
}

func TestCreate_ValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Order)
	}{
		{"missing email", func(o *model.Order) { o.Customer.Email = "" }},
		{"no items", func(o *model.Order) { o.Items = nil; o.TotalPrice = 0; o.CommodityPrice = 0 }},
		{"bad payment method", func(o *model.Order) { o.PaymentMethod = "cash" }},
		{"zero quantity", func(o *model.Order) { o.Items[0].Quantity = 0; o.TotalPrice = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockOrderRepository{}
			products := &mockProductService{stock: map[string]int{productID: 10}}
			svc := newTestOrderService(repo, products)

			order := validOrder()
			tt.mutate(order)

			err := svc.Create(context.Background(), order, "tok_test")
			if err == nil {
				t.Fatal("expected validation failure")
			}
			appErr := apperrors.AsAppError(err)
			if appErr.HTTPStatus != 400 {
				t.Errorf("expected 400, got %v", err)
			}
		})
	}
}

func TestCreate_FailedInsertReleasesStock(t *testing.T) {
	repo := &failingCreateRepository{}
	products := &mockProductService{stock: map[string]int{productID: 10}}
	svc := newOrderServiceWith(repo, products, payment.NewStubProvider(), event.NoopPublisher{})

	err := svc.Create(context.Background(), validOrder(), "tok_test")
	if err == nil {
		t.Fatal("expected create to fail")
	}
	if products.stock[productID] != 10 {
		t.Errorf("expected stock restored to 10 after failed insert, got %d", products.stock[productID])
	}
	if products.releases != 1 {
		t.Errorf("expected exactly one release, got %d", products.releases)
	}
}

func TestCreate_DeclinedChargeReleasesStock(t *testing.T) {
	repo := &mockOrderRepository{}
	products := &mockProductService{stock: map[string]int{productID: 10}}
	svc := newOrderServiceWith(repo, products, decliningProvider{}, event.NoopPublisher{})

	order := validOrder()
	if err := svc.Create(context.Background(), order, "tok_test"); err != nil {
		t.Fatalf("a declined charge should still record the order: %v", err)
	}
	if order.PaymentStatus != model.OrderPaymentFailed {
		t.Errorf("expected payment failed, got %q", order.PaymentStatus)
	}
	if len(repo.orders) != 1 {
		t.Fatal("expected the order to be stored")
	}
	if products.stock[productID] != 10 {
		t.Errorf("expected stock returned for declined charge, got %d", products.stock[productID])
	}
}

func TestUpdatePaymentStatus_AlertsOnlyOnTransitionIntoCompleted(t *testing.T) {
	repo := &mockOrderRepository{}
	products := &mockProductService{stock: map[string]int{productID: 10}}
	events := &recordingPublisher{}
	svc := newOrderServiceWith(repo, products, decliningProvider{}, events)

	order := validOrder()
	if err := svc.Create(context.Background(), order, "tok_test"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := svc.UpdatePaymentStatus(context.Background(), order.ID, model.OrderPaymentCompleted)
	if err != nil {
		t.Fatalf("payment status update failed: %v", err)
	}
	if updated.PaymentStatus != model.OrderPaymentCompleted {
		t.Errorf("expected completed, got %q", updated.PaymentStatus)
	}

	// Re-applying completed is not a transition and must stay silent.
	if _, err := svc.UpdatePaymentStatus(context.Background(), order.ID, model.OrderPaymentCompleted); err != nil {
		t.Fatalf("second update failed: %v", err)
	}

	paid := 0
	for _, typ := range events.types {
		if typ == event.TypePaymentPaid {
			paid++
		}
	}
	if paid != 1 {
		t.Errorf("expected exactly one paid event, got %d (all: %v)", paid, events.types)
	}
}

func TestUpdatePaymentStatus_RejectsUnknownStatus(t *testing.T) {
	repo := &mockOrderRepository{}
	products := &mockProductService{stock: map[string]int{productID: 10}}
	svc := newTestOrderService(repo, products)

	order := validOrder()
	if err := svc.Create(context.Background(), order, "tok_test"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err := svc.UpdatePaymentStatus(context.Background(), order.ID, "settled")
	if err == nil {
		t.Fatal("expected unknown payment status to be rejected")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus != 400 {
		t.Errorf("expected 400, got %d", appErr.HTTPStatus)
	}
}

func TestUpdateStatus_InvalidStatusRejected(t *testing.T) {
	repo := &mockOrderRepository{}
	products := &mockProductService{stock: map[string]int{productID: 10}}
	svc := newTestOrderService(repo, products)

	order := validOrder()
	if err := svc.Create(context.Background(), order, "tok_test"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), order.ID, "teleported"); err == nil {
		t.Error("expected invalid status to be rejected")
	}

	updated, err := svc.UpdateStatus(context.Background(), order.ID, model.OrderStatusShipped)
	if err != nil {
		t.Fatalf("valid status update failed: %v", err)
	}
	if updated.OrderStatus != model.OrderStatusShipped {
		t.Errorf("expected shipped, got %q", updated.OrderStatus)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo := &mockOrderRepository{}
	products := &mockProductService{stock: map[string]int{}}
	svc := newTestOrderService(repo, products)

	_, err := svc.GetByID(context.Background(), "6579a1b2c3d4e5f6a7b8c9ff")
	if err == nil {
		t.Fatal("expected not found")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus != 404 {
		t.Errorf("expected 404, got %v", err)
	}
}
