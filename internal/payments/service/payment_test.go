package service

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "atelier/internal/bookings/errors"
	"atelier/pkg/config"
	mongotx "atelier/pkg/db/mongo"
	apperrors "atelier/pkg/errors"
	"atelier/pkg/event"
	"atelier/pkg/logger"
	"atelier/pkg/mail"
	"atelier/pkg/model"
	"atelier/pkg/payment"
)

type mockBookingRepository struct {
	bookings []*model.Booking
}

func (m *mockBookingRepository) Create(ctx context.Context, b *model.Booking) error {
	stored := *b
	m.bookings = append(m.bookings, &stored)
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	for _, b := range m.bookings {
		if b.ID == id {
			copied := *b
			if b.Payment != nil {
				pay := *b.Payment
				copied.Payment = &pay
			}
			return &copied, nil
		}
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	return m.bookings, nil
}

func (m *mockBookingRepository) FindByStatus(ctx context.Context, status string, limit int, offset int64) ([]*model.Booking, error) {
	return nil, nil
}

func (m *mockBookingRepository) FindUpcoming(ctx context.Context, from, to time.Time) ([]*model.Booking, error) {
	return nil, nil
}

func (m *mockBookingRepository) FindActiveByEmailWithin(ctx context.Context, email string, from, to time.Time, excludeID string) ([]*model.Booking, error) {
	return nil, nil
}

func (m *mockBookingRepository) Update(ctx context.Context, id string, b *model.Booking) (*mongo.UpdateResult, error) {
	for i, existing := range m.bookings {
		if existing.ID == id {
			stored := *b
			stored.ID = id
			m.bookings[i] = &stored
			return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
		}
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *mockBookingRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(m.bookings)), nil
}

func (m *mockBookingRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	return 0, nil
}

func (m *mockBookingRepository) Statistics(ctx context.Context) (*model.BookingStatistics, error) {
	return &model.BookingStatistics{}, nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type failingProvider struct{}

func (failingProvider) CreateCharge(ctx context.Context, in payment.ChargeInput) (*payment.ChargeResult, error) {
	return &payment.ChargeResult{
		IntentID:       "chrg_failed",
		Status:         payment.ChargeStatusFailed,
		FailureCode:    "insufficient_fund",
		FailureMessage: "Insufficient funds in the account",
	}, nil
}

func (failingProvider) Refund(ctx context.Context, intentID string, amount int64) error {
	return nil
}

const bookingIDFixture = "6579a1b2c3d4e5f6a7b8c901"

func seedBooking(repo *mockBookingRepository) *model.Booking {
	b := &model.Booking{
		ID: bookingIDFixture,
		Customer: model.Customer{
			Name:  "Ada Lovelace",
			Email: "ada@example.com",
			Phone: "+15551234567",
		},
		ScheduledAt: time.Now().Add(48 * time.Hour),
		Status:      model.BookingStatusConfirmed,
	}
	repo.bookings = append(repo.bookings, b)
	return b
}

func newTestPaymentService(repo *mockBookingRepository, provider payment.Provider) PaymentService {
	log := logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test"})
	cfg := &config.Config{Log: log, PaymentCurrency: "usd"}
	notifier := mail.NewNotifier(mail.NewLogSender(log), "admin@example.com", "http://localhost:3000", log)
	return NewPaymentService(repo, provider, notifier, event.NoopPublisher{}, cfg)
}

func validPaymentRequest() *CreatePaymentRequest {
	return &CreatePaymentRequest{
		Amount:    12500,
		Method:    model.PaymentMethodCreditCard,
		CardToken: "tokn_test_visa",
	}
}

func TestCreate_ChargesAndStoresPayment(t *testing.T) {
	repo := &mockBookingRepository{}
	seedBooking(repo)
	svc := newTestPaymentService(repo, payment.NewStubProvider())

	pay, err := svc.Create(context.Background(), bookingIDFixture, validPaymentRequest())
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if pay.Status != model.PaymentStatusPaid {
		t.Errorf("expected paid status, got %q", pay.Status)
	}
	if pay.IntentID == "" {
		t.Error("expected an intent ID from the provider")
	}
	if pay.Currency != "usd" {
		t.Errorf("expected configured currency fallback, got %q", pay.Currency)
	}

	stored, err := repo.FindByID(context.Background(), bookingIDFixture)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if stored.Payment == nil || stored.Payment.IntentID != pay.IntentID {
		t.Error("expected payment persisted on the booking")
	}
}

func TestCreate_RejectsNonCardMethod(t *testing.T) {
	repo := &mockBookingRepository{}
	seedBooking(repo)
	svc := newTestPaymentService(repo, payment.NewStubProvider())

	req := validPaymentRequest()
	req.Method = model.PaymentMethodPaypal

	_, err := svc.Create(context.Background(), bookingIDFixture, req)
	if err == nil {
		t.Fatal("expected non-card method to be rejected")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus != 400 {
		t.Errorf("expected status 400, got %d", appErr.HTTPStatus)
	}
}

func TestCreate_RejectsDoublePayment(t *testing.T) {
	repo := &mockBookingRepository{}
	seedBooking(repo)
	svc := newTestPaymentService(repo, payment.NewStubProvider())

	if _, err := svc.Create(context.Background(), bookingIDFixture, validPaymentRequest()); err != nil {
		t.Fatalf("first payment failed: %v", err)
	}

	_, err := svc.Create(context.Background(), bookingIDFixture, validPaymentRequest())
	if err == nil {
		t.Fatal("expected second payment to be rejected")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected conflict code, got %q", appErr.Code)
	}
}

func TestCreate_RejectsCancelledBooking(t *testing.T) {
	repo := &mockBookingRepository{}
	b := seedBooking(repo)
	b.Status = model.BookingStatusCancelled
	svc := newTestPaymentService(repo, payment.NewStubProvider())

	_, err := svc.Create(context.Background(), bookingIDFixture, validPaymentRequest())
	if err == nil {
		t.Fatal("expected payment on cancelled booking to be rejected")
	}
}

func TestCreate_FailedChargeIsRecorded(t *testing.T) {
	repo := &mockBookingRepository{}
	seedBooking(repo)
	svc := newTestPaymentService(repo, failingProvider{})

	pay, err := svc.Create(context.Background(), bookingIDFixture, validPaymentRequest())
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if pay.Status != model.PaymentStatusFailed {
		t.Errorf("expected failed status, got %q", pay.Status)
	}
}

func TestGet_MissingPayment(t *testing.T) {
	repo := &mockBookingRepository{}
	seedBooking(repo)
	svc := newTestPaymentService(repo, payment.NewStubProvider())

	_, err := svc.Get(context.Background(), bookingIDFixture)
	if err == nil {
		t.Fatal("expected missing payment to 404")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus != 404 {
		t.Errorf("expected status 404, got %d", appErr.HTTPStatus)
	}
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	repo := &mockBookingRepository{}
	seedBooking(repo)
	svc := newTestPaymentService(repo, payment.NewStubProvider())

	_, err := svc.UpdateStatus(context.Background(), bookingIDFixture, "settled")
	if err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestRefund_OnlyPaidPayments(t *testing.T) {
	repo := &mockBookingRepository{}
	seedBooking(repo)
	svc := newTestPaymentService(repo, payment.NewStubProvider())

	if _, err := svc.Refund(context.Background(), bookingIDFixture); err == nil {
		t.Fatal("expected refund without payment to fail")
	}

	if _, err := svc.Create(context.Background(), bookingIDFixture, validPaymentRequest()); err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	pay, err := svc.Refund(context.Background(), bookingIDFixture)
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if pay.Status != model.PaymentStatusRefunded {
		t.Errorf("expected refunded status, got %q", pay.Status)
	}

	// A refunded payment cannot be refunded again.
	if _, err := svc.Refund(context.Background(), bookingIDFixture); err == nil {
		t.Fatal("expected double refund to fail")
	}
}
