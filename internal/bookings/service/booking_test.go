package service

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "atelier/internal/bookings/errors"
	"atelier/internal/bookings/validator"
	"atelier/pkg/config"
	mongotx "atelier/pkg/db/mongo"
	apperrors "atelier/pkg/errors"
	"atelier/pkg/event"
	"atelier/pkg/logger"
	"atelier/pkg/mail"
	"atelier/pkg/model"
)

// In-memory repository backing the conflict-guard tests. FindActiveByEmailWithin
// reproduces the production query semantics over the stored slice.
type mockBookingRepository struct {
	bookings  []*model.Booking
	createErr error
	nextID    int
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if m.createErr != nil {
		return m.createErr
	}
	if booking.ID == "" {
		m.nextID++
		booking.ID = objectIDFixture(m.nextID)
	}
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	stored := *booking
	m.bookings = append(m.bookings, &stored)
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	for _, b := range m.bookings {
		if b.ID == id {
			copied := *b
			return &copied, nil
		}
	}
	return nil, bookingNotFound()
}

func (m *mockBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	return m.bookings, nil
}

func (m *mockBookingRepository) FindByStatus(ctx context.Context, status string, limit int, offset int64) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.Status == status {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBookingRepository) FindUpcoming(ctx context.Context, from, to time.Time) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.IsActive() && !b.ScheduledAt.Before(from) && !b.ScheduledAt.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBookingRepository) FindActiveByEmailWithin(ctx context.Context, email string, from, to time.Time, excludeID string) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.Customer.Email != email || !b.IsActive() || b.ID == excludeID {
			continue
		}
		if b.ScheduledAt.Before(from) || b.ScheduledAt.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *mockBookingRepository) Update(ctx context.Context, id string, booking *model.Booking) (*mongo.UpdateResult, error) {
	for i, b := range m.bookings {
		if b.ID == id {
			updated := *booking
			updated.ID = id
			m.bookings[i] = &updated
			return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
		}
	}
	return nil, bookingNotFound()
}

func (m *mockBookingRepository) Delete(ctx context.Context, id string) error {
	for i, b := range m.bookings {
		if b.ID == id {
			m.bookings = append(m.bookings[:i], m.bookings[i+1:]...)
			return nil
		}
	}
	return bookingNotFound()
}

func (m *mockBookingRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(m.bookings)), nil
}

func (m *mockBookingRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	for _, b := range m.bookings {
		if b.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *mockBookingRepository) Statistics(ctx context.Context) (*model.BookingStatistics, error) {
	stats := &model.BookingStatistics{}
	counts := map[string]int64{}
	for _, b := range m.bookings {
		counts[b.Status]++
		stats.Total++
	}
	for status, count := range counts {
		stats.ByStatus = append(stats.ByStatus, model.StatusCount{Status: status, Count: count})
	}
	return stats, nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockLockRepository struct {
	held map[string]bool
}

func (m *mockLockRepository) Create(ctx context.Context, lock *model.BookingLock) (*model.BookingLock, error) {
	if m.held == nil {
		m.held = map[string]bool{}
	}
	if m.held[lock.ID] {
		return nil, mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	}
	m.held[lock.ID] = true
	return lock, nil
}

func (m *mockLockRepository) Delete(ctx context.Context, lockID string) error {
	delete(m.held, lockID)
	return nil
}

func bookingNotFound() error {
	return bookingserrors.ErrNotFound
}

func objectIDFixture(n int) string {
	const hex = "0123456789abcdef"
	id := make([]byte, 24)
	for i := range id {
		id[i] = hex[(n+i)%16]
	}
	return string(id)
}

func newTestService(repo *mockBookingRepository) BookingService {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
	cfg := &config.Config{Log: log}
	notifier := mail.NewNotifier(mail.NewLogSender(log), "admin@example.com", "http://localhost:3000", log)
	return NewBookingService(repo, &mockLockRepository{}, validator.NewBookingValidator(log), notifier, event.NoopPublisher{}, cfg)
}

func futureTime(t *testing.T, offset time.Duration) time.Time {
	t.Helper()
	return time.Now().Add(48*time.Hour + offset).Truncate(time.Minute)
}

func newBooking(email string, at time.Time) *model.Booking {
	return &model.Booking{
		Customer: model.Customer{
			Name:  "Ada Lovelace",
			Email: email,
			Phone: "+15550001234",
		},
		ScheduledAt: at,
	}
}

func TestCreate_Succeeds(t *testing.T) {
	repo := &mockBookingRepository{}
	svc := newTestService(repo)

	b := newBooking("a@x.com", futureTime(t, 0))
	if err := svc.Create(context.Background(), b); err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}
	if b.Status != model.BookingStatusPending {
		t.Errorf("expected default status pending, got %q", b.Status)
	}
	if b.ID == "" {
		t.Error("expected booking ID to be assigned")
	}
}

func TestCreate_RejectsWithinWindow(t *testing.T) {
	base := futureTime(t, 0)

	tests := []struct {
		name     string
		offset   time.Duration
		wantPass bool
	}{
		{"59 minutes later", 59 * time.Minute, false},
		{"59 minutes earlier", -59 * time.Minute, false},
		{"exactly 60 minutes later", 60 * time.Minute, false},
		{"exactly 60 minutes earlier", -60 * time.Minute, false},
		{"61 minutes later", 61 * time.Minute, true},
		{"61 minutes earlier", -61 * time.Minute, true},
		{"two hours later", 2 * time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockBookingRepository{}
			svc := newTestService(repo)

			if err := svc.Create(context.Background(), newBooking("a@x.com", base)); err != nil {
				t.Fatalf("seed booking failed: %v", err)
			}

			err := svc.Create(context.Background(), newBooking("a@x.com", base.Add(tt.offset)))
			if tt.wantPass && err != nil {
				t.Errorf("expected booking at offset %s to be accepted, got %v", tt.offset, err)
			}
			if !tt.wantPass {
				if err == nil {
					t.Fatalf("expected booking at offset %s to be rejected", tt.offset)
				}
				appErr := apperrors.AsAppError(err)
				if appErr.HTTPStatus != 400 {
					t.Errorf("expected status 400, got %d", appErr.HTTPStatus)
				}
			}
		})
	}
}

func TestCreate_ConflictMentionsExistingTime(t *testing.T) {
	repo := &mockBookingRepository{}
	svc := newTestService(repo)

	base := futureTime(t, 0)
	if err := svc.Create(context.Background(), newBooking("a@x.com", base)); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	err := svc.Create(context.Background(), newBooking("a@x.com", base.Add(30*time.Minute)))
	if err == nil {
		t.Fatal("expected conflict")
	}
	wantTime := base.Format("2006-01-02 15:04")
	if !strings.Contains(err.Error(), wantTime) {
		t.Errorf("expected error to mention existing time %q, got %q", wantTime, err.Error())
	}
}

func TestCreate_DifferentEmailsDoNotConflict(t *testing.T) {
	repo := &mockBookingRepository{}
	svc := newTestService(repo)

	base := futureTime(t, 0)
	if err := svc.Create(context.Background(), newBooking("a@x.com", base)); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	if err := svc.Create(context.Background(), newBooking("b@x.com", base)); err != nil {
		t.Errorf("expected booking for different email to be accepted, got %v", err)
	}
}

func TestCreate_CancelledBookingNeverConflicts(t *testing.T) {
	repo := &mockBookingRepository{}
	svc := newTestService(repo)

	base := futureTime(t, 0)
	cancelled := newBooking("a@x.com", base)
	cancelled.Status = model.BookingStatusCancelled
	if err := svc.Create(context.Background(), cancelled); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	if err := svc.Create(context.Background(), newBooking("a@x.com", base.Add(10*time.Minute))); err != nil {
		t.Errorf("expected booking near cancelled one to be accepted, got %v", err)
	}
}

func TestCreate_RejectsPastTime(t *testing.T) {
	repo := &mockBookingRepository{}
	svc := newTestService(repo)

	err := svc.Create(context.Background(), newBooking("a@x.com", time.Now().Add(-time.Hour)))
	if err == nil {
		t.Fatal("expected past booking to be rejected")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus != 400 {
		t.Errorf("expected 400 validation error, got %v", err)
	}
}

func TestCreate_ValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Booking)
	}{
		{"missing email", func(b *model.Booking) { b.Customer.Email = "" }},
		{"malformed email", func(b *model.Booking) { b.Customer.Email = "not-an-email" }},
		{"missing name", func(b *model.Booking) { b.Customer.Name = "" }},
		{"missing phone", func(b *model.Booking) { b.Customer.Phone = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockBookingRepository{}
			svc := newTestService(repo)

			b := newBooking("a@x.com", futureTime(t, 0))
			tt.mutate(b)

			err := svc.Create(context.Background(), b)
			if err == nil {
				t.Fatal("expected validation failure")
			}
			appErr := apperrors.AsAppError(err)
			if appErr.HTTPStatus != 400 {
				t.Errorf("expected status 400, got %d", appErr.HTTPStatus)
			}
		})
	}
}

// Spec example: 10:00 accepted, 10:30 rejected mentioning 10:00, 12:00 accepted.
func TestCreate_ExampleSequence(t *testing.T) {
	repo := &mockBookingRepository{}
	svc := newTestService(repo)

	day := time.Now().Add(72 * time.Hour).Truncate(24 * time.Hour)
	at10 := day.Add(10 * time.Hour)

	if err := svc.Create(context.Background(), newBooking("a@x.com", at10)); err != nil {
		t.Fatalf("10:00 booking should succeed: %v", err)
	}

	err := svc.Create(context.Background(), newBooking("a@x.com", day.Add(10*time.Hour+30*time.Minute)))
	if err == nil {
		t.Fatal("10:30 booking should be rejected")
	}
	if !strings.Contains(err.Error(), at10.Format("2006-01-02 15:04")) {
		t.Errorf("conflict error should mention 10:00 slot, got %q", err.Error())
	}

	if err := svc.Create(context.Background(), newBooking("a@x.com", day.Add(12*time.Hour))); err != nil {
		t.Errorf("12:00 booking should succeed: %v", err)
	}
}

func TestUpdate_SelfExclusionAllowsReschedule(t *testing.T) {
	repo := &mockBookingRepository{}
	svc := newTestService(repo)

	base := futureTime(t, 0)
	b := newBooking("a@x.com", base)
	if err := svc.Create(context.Background(), b); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Moving 30 minutes would conflict only with the booking itself.
	newAt := base.Add(30 * time.Minute)
	updated, err := svc.Update(context.Background(), b.ID, &model.BookingUpdate{ScheduledAt: &newAt})
	if err != nil {
		t.Fatalf("expected reschedule to succeed, got %v", err)
	}
	if !updated.ScheduledAt.Equal(newAt) {
		t.Errorf("expected scheduled time %v, got %v", newAt, updated.ScheduledAt)
	}
}

func TestUpdate_RescheduleConflictsWithOtherBooking(t *testing.T) {
	repo := &mockBookingRepository{}
	svc := newTestService(repo)

	base := futureTime(t, 0)
	first := newBooking("a@x.com", base)
	if err := svc.Create(context.Background(), first); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second := newBooking("a@x.com", base.Add(3*time.Hour))
	if err := svc.Create(context.Background(), second); err != nil {
		t.Fatalf("second create failed: %v", err)
	}

	// Moving the second booking next to the first must be rejected.
	newAt := base.Add(30 * time.Minute)
	if _, err := svc.Update(context.Background(), second.ID, &model.BookingUpdate{ScheduledAt: &newAt}); err == nil {
		t.Fatal("expected reschedule into occupied window to be rejected")
	}
}

func TestUpdateStatus_TransitionTable(t *testing.T) {
	statuses := []string{
		model.BookingStatusPending,
		model.BookingStatusConfirmed,
		model.BookingStatusCancelled,
		model.BookingStatusCompleted,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			t.Run(from+"_to_"+to, func(t *testing.T) {
				repo := &mockBookingRepository{}
				svc := newTestService(repo)

				b := newBooking("a@x.com", futureTime(t, 0))
				if err := svc.Create(context.Background(), b); err != nil {
					t.Fatalf("create failed: %v", err)
				}
				if _, err := repo.Update(context.Background(), b.ID, withStatus(b, from)); err != nil {
					t.Fatalf("seeding status failed: %v", err)
				}

				_, err := svc.UpdateStatus(context.Background(), b.ID, to)
				wantAllowed := model.CanTransition(from, to)
				if wantAllowed && err != nil {
					t.Errorf("transition %s -> %s should be allowed, got %v", from, to, err)
				}
				if !wantAllowed && err == nil {
					t.Errorf("transition %s -> %s should be rejected", from, to)
				}
			})
		}
	}
}

func withStatus(b *model.Booking, status string) *model.Booking {
	copied := *b
	copied.Status = status
	return &copied
}

func TestUpdate_CancelledStatusIsTerminal(t *testing.T) {
	repo := &mockBookingRepository{}
	svc := newTestService(repo)

	b := newBooking("a@x.com", futureTime(t, 0))
	if err := svc.Create(context.Background(), b); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), b.ID, model.BookingStatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if _, err := svc.Update(context.Background(), b.ID, &model.BookingUpdate{Status: model.BookingStatusConfirmed}); err == nil {
		t.Fatal("expected update of cancelled booking status to be rejected")
	}
}

func TestDelete_RemovesBooking(t *testing.T) {
	repo := &mockBookingRepository{}
	svc := newTestService(repo)

	b := newBooking("a@x.com", futureTime(t, 0))
	if err := svc.Create(context.Background(), b); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.Delete(context.Background(), b.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), b.ID); err == nil {
		t.Error("expected booking to be gone")
	}
}

func TestGetUpcoming_ExcludesCancelledAndFar(t *testing.T) {
	repo := &mockBookingRepository{}
	svc := newTestService(repo)

	soon := newBooking("a@x.com", time.Now().Add(24*time.Hour))
	if err := svc.Create(context.Background(), soon); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	far := newBooking("b@x.com", time.Now().Add(30*24*time.Hour))
	if err := svc.Create(context.Background(), far); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	cancelled := newBooking("c@x.com", time.Now().Add(48*time.Hour))
	cancelled.Status = model.BookingStatusCancelled
	if err := svc.Create(context.Background(), cancelled); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	upcoming, err := svc.GetUpcoming(context.Background())
	if err != nil {
		t.Fatalf("upcoming failed: %v", err)
	}
	if len(upcoming) != 1 || upcoming[0].ID != soon.ID {
		t.Errorf("expected only the near active booking, got %d bookings", len(upcoming))
	}
}

// Property: after any sequence of random creates, no two stored active
// bookings for the same email sit within the exclusion window.
func TestCreate_WindowPropertyOverRandomTimes(t *testing.T) {
	repo := &mockBookingRepository{}
	svc := newTestService(repo)

	base := futureTime(t, 0)
	rng := rand.New(rand.NewSource(20260901))

	for i := 0; i < 50; i++ {
		offset := time.Duration(rng.Intn(12*60)) * time.Minute
		_ = svc.Create(context.Background(), newBooking("prop@x.com", base.Add(offset)))
	}

	active := make([]*model.Booking, 0)
	for _, b := range repo.bookings {
		if b.IsActive() {
			active = append(active, b)
		}
	}
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			gap := active[i].ScheduledAt.Sub(active[j].ScheduledAt)
			if gap < 0 {
				gap = -gap
			}
			if gap <= model.ConflictWindow {
				t.Errorf("stored bookings %v and %v violate the window", active[i].ScheduledAt, active[j].ScheduledAt)
			}
		}
	}
}

func TestStatistics_CountsPerStatus(t *testing.T) {
	repo := &mockBookingRepository{}
	svc := newTestService(repo)

	times := []time.Duration{0, 2 * time.Hour, 4 * time.Hour}
	base := futureTime(t, 0)
	for i, offset := range times {
		b := newBooking("stats@x.com", base.Add(offset))
		if i == 2 {
			b.Status = model.BookingStatusConfirmed
		}
		if err := svc.Create(context.Background(), b); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	stats, err := svc.Statistics(context.Background())
	if err != nil {
		t.Fatalf("statistics failed: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("expected total 3, got %d", stats.Total)
	}
}
