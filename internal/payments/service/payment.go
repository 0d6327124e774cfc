package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "atelier/internal/bookings/errors"
	"atelier/internal/bookings/repository"
	"atelier/pkg/config"
	apperrors "atelier/pkg/errors"
	"atelier/pkg/event"
	"atelier/pkg/logger"
	"atelier/pkg/mail"
	"atelier/pkg/model"
	"atelier/pkg/payment"
	"atelier/pkg/validate"
)

type CreatePaymentRequest struct {
	Amount    int64  `json:"amount" validate:"required,min=1"`
	Currency  string `json:"currency" validate:"omitempty,len=3"`
	Method    string `json:"method" validate:"required"`
	CardToken string `json:"card_token" validate:"required"`
}

// PaymentService charges, inspects and refunds payments attached to a
// booking. Payments live embedded on the booking document, so all writes go
// through the booking repository.
type PaymentService interface {
	Create(ctx context.Context, bookingID string, req *CreatePaymentRequest) (*model.Payment, error)
	Get(ctx context.Context, bookingID string) (*model.Payment, error)
	UpdateStatus(ctx context.Context, bookingID string, status string) (*model.Payment, error)
	Refund(ctx context.Context, bookingID string) (*model.Payment, error)
}

type paymentService struct {
	bookings  repository.BookingRepository
	provider  payment.Provider
	validator *validate.Validator
	notifier  *mail.Notifier
	events    event.Publisher
	currency  string
	log       *logger.Logger
}

func NewPaymentService(
	bookings repository.BookingRepository,
	provider payment.Provider,
	notifier *mail.Notifier,
	events event.Publisher,
	cfg *config.Config,
) PaymentService {
	return &paymentService{
		bookings:  bookings,
		provider:  provider,
		validator: validate.New(),
		notifier:  notifier,
		events:    events,
		currency:  cfg.PaymentCurrency,
		log:       cfg.Log,
	}
}

func (s *paymentService) Create(ctx context.Context, bookingID string, req *CreatePaymentRequest) (*model.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if req.Method != model.PaymentMethodCreditCard {
		return nil, apperrors.InvalidInput("Only credit-card payments are supported")
	}
	if req.Currency == "" {
		req.Currency = s.currency
	}

	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsActive() {
		return nil, apperrors.Conflict("Cannot pay for a cancelled booking")
	}
	if booking.Payment != nil && booking.Payment.Status == model.PaymentStatusPaid {
		return nil, apperrors.Conflict("This booking has already been paid")
	}

	result, err := s.provider.CreateCharge(ctx, payment.ChargeInput{
		Amount:       req.Amount,
		Currency:     req.Currency,
		CardToken:    req.CardToken,
		Description:  fmt.Sprintf("Booking on %s", booking.ScheduledAt.Format("2006-01-02 15:04")),
		ReceiptEmail: booking.Customer.Email,
		ReferenceID:  booking.ID,
	})
	if err != nil {
		s.log.Error("Charge failed", "booking_id", bookingID, "error", err)
		return nil, apperrors.Internal("Payment could not be processed", err)
	}

	booking.Payment = &model.Payment{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Method:      req.Method,
		IntentID:    result.IntentID,
		Status:      chargeStatus(result.Status),
		ProcessedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if _, err := s.bookings.Update(ctx, bookingID, booking); err != nil {
		s.log.Error("Failed to persist payment", "booking_id", bookingID, "error", err)
		return nil, apperrors.Internal("Failed to record payment", err)
	}

	s.log.Info("Payment created",
		"booking_id", bookingID,
		"intent_id", result.IntentID,
		"status", booking.Payment.Status,
	)

	s.emitPaymentEvents(ctx, booking, "created", booking.Payment.Status == model.PaymentStatusPaid)
	return booking.Payment, nil
}

func (s *paymentService) Get(ctx context.Context, bookingID string) (*model.Payment, error) {
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Payment == nil {
		return nil, apperrors.NotFoundWithID("Payment for booking", bookingID)
	}
	return booking.Payment, nil
}

func (s *paymentService) UpdateStatus(ctx context.Context, bookingID string, status string) (*model.Payment, error) {
	if !validPaymentStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Invalid payment status %q", status))
	}

	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Payment == nil {
		return nil, apperrors.NotFoundWithID("Payment for booking", bookingID)
	}

	becamePaid := booking.Payment.Status != model.PaymentStatusPaid && status == model.PaymentStatusPaid
	booking.Payment.Status = status
	booking.Payment.ProcessedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := s.bookings.Update(ctx, bookingID, booking); err != nil {
		s.log.Error("Failed to update payment status", "booking_id", bookingID, "error", err)
		return nil, apperrors.Internal("Failed to update payment status", err)
	}

	s.log.Info("Payment status updated", "booking_id", bookingID, "status", status)

	s.emitPaymentEvents(ctx, booking, "updated", becamePaid)
	return booking.Payment, nil
}

func (s *paymentService) Refund(ctx context.Context, bookingID string) (*model.Payment, error) {
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Payment == nil {
		return nil, apperrors.NotFoundWithID("Payment for booking", bookingID)
	}
	if booking.Payment.Status != model.PaymentStatusPaid {
		return nil, apperrors.Conflict("Only paid payments can be refunded")
	}

	if err := s.provider.Refund(ctx, booking.Payment.IntentID, booking.Payment.Amount); err != nil {
		s.log.Error("Refund failed", "booking_id", bookingID, "intent_id", booking.Payment.IntentID, "error", err)
		return nil, apperrors.Internal("Refund could not be processed", err)
	}

	booking.Payment.Status = model.PaymentStatusRefunded
	booking.Payment.ProcessedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := s.bookings.Update(ctx, bookingID, booking); err != nil {
		s.log.Error("Failed to persist refund", "booking_id", bookingID, "error", err)
		return nil, apperrors.Internal("Failed to record refund", err)
	}

	s.log.Info("Payment refunded", "booking_id", bookingID, "intent_id", booking.Payment.IntentID)

	sideCtx := context.WithoutCancel(ctx)
	s.notifier.PaymentStatus(sideCtx, booking, "refunded")
	s.events.Emit(sideCtx, event.TypePaymentRefunded, booking.ID, paymentPayload(booking))
	return booking.Payment, nil
}

func (s *paymentService) loadBooking(ctx context.Context, bookingID string) (*model.Booking, error) {
	if bookingID == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", bookingID)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		s.log.Error("Failed to load booking", "booking_id", bookingID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

// emitPaymentEvents handles the customer email, the paid/failed event and the
// admin alert when a payment transitions into paid. All side effects are
// logged and swallowed downstream.
func (s *paymentService) emitPaymentEvents(ctx context.Context, booking *model.Booking, emailEvent string, becamePaid bool) {
	sideCtx := context.WithoutCancel(ctx)

	if booking.Payment.Status == model.PaymentStatusFailed {
		emailEvent = "failed"
	}
	s.notifier.PaymentStatus(sideCtx, booking, emailEvent)

	switch booking.Payment.Status {
	case model.PaymentStatusPaid:
		s.events.Emit(sideCtx, event.TypePaymentPaid, booking.ID, paymentPayload(booking))
	case model.PaymentStatusFailed:
		s.events.Emit(sideCtx, event.TypePaymentFailed, booking.ID, paymentPayload(booking))
	}

	if becamePaid {
		s.notifier.AdminAlert(sideCtx,
			"Booking payment received",
			fmt.Sprintf("Booking %s paid %d %s by %s",
				booking.ID, booking.Payment.Amount, booking.Payment.Currency, booking.Customer.Email),
		)
	}
}

func paymentPayload(booking *model.Booking) map[string]any {
	return map[string]any{
		"booking_id": booking.ID,
		"intent_id":  booking.Payment.IntentID,
		"amount":     booking.Payment.Amount,
		"currency":   booking.Payment.Currency,
		"status":     booking.Payment.Status,
	}
}

func chargeStatus(providerStatus string) string {
	switch providerStatus {
	case payment.ChargeStatusPaid:
		return model.PaymentStatusPaid
	case payment.ChargeStatusFailed:
		return model.PaymentStatusFailed
	default:
		return model.PaymentStatusPending
	}
}

func validPaymentStatus(status string) bool {
	switch status {
	case model.PaymentStatusPending, model.PaymentStatusPaid,
		model.PaymentStatusFailed, model.PaymentStatusRefunded:
		return true
	}
	return false
}

func validationError(err error) error {
	var fieldErrs validate.FieldErrors
	if errors.As(err, &fieldErrs) {
		return apperrors.Validation("Payment validation failed", fieldErrs.Details())
	}
	return apperrors.Validation("Payment validation failed", map[string]any{"error": err.Error()})
}
