package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "atelier/internal/bookings/errors"
	"atelier/internal/bookings/repository"
	"atelier/internal/bookings/validator"
	"atelier/pkg/config"
	apperrors "atelier/pkg/errors"
	"atelier/pkg/event"
	"atelier/pkg/mail"
	"atelier/pkg/model"
	"atelier/pkg/sanitizer"
	"atelier/pkg/validate"
)

type BookingService interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	GetByStatus(ctx context.Context, status string, limit int, offset int64) ([]*model.Booking, int64, error)
	GetUpcoming(ctx context.Context) ([]*model.Booking, error)
	Update(ctx context.Context, id string, updates *model.BookingUpdate) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id string, status string) (*model.Booking, error)
	Delete(ctx context.Context, id string) error
	Statistics(ctx context.Context) (*model.BookingStatistics, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	lockRepo  repository.BookingLockRepository
	validator *validator.BookingValidator
	notifier  *mail.Notifier
	events    event.Publisher
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	validator *validator.BookingValidator,
	notifier *mail.Notifier,
	events event.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		validator: validator,
		notifier:  notifier,
		events:    events,
		cfg:       cfg,
	}
}

func (s *bookingService) Create(ctx context.Context, booking *model.Booking) error {
	s.applyDefaults(booking)
	s.sanitize(booking)
	if err := s.validator.ValidateCreate(booking); err != nil {
		return validationError(err)
	}

	// One lock per customer email serializes the conflict check against
	// concurrent creates for the same customer.
	lockID, err := s.acquireEmailLock(ctx, booking.Customer.Email)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.releaseEmailLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoConflict(sessCtx, booking.Customer.Email, booking.ScheduledAt, ""); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking", "email", booking.Customer.Email, "error", err)
		return err
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"email", booking.Customer.Email,
		"scheduled_at", booking.ScheduledAt,
	)

	sideCtx := context.WithoutCancel(ctx)
	s.notifier.BookingConfirmation(sideCtx, booking)
	s.notifier.AdminAlert(sideCtx, "New Booking Received",
		fmt.Sprintf("New booking from %s (%s) for %s.",
			booking.Customer.Name, booking.Customer.Email,
			booking.ScheduledAt.Format(time.RFC1123)))
	s.events.Emit(sideCtx, event.TypeBookingCreated, booking.ID, map[string]any{
		"booking_id":   booking.ID,
		"email":        booking.Customer.Email,
		"scheduled_at": booking.ScheduledAt,
	})
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}
	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) GetByStatus(ctx context.Context, status string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if !validStatus(status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("Invalid booking status: %s", status))
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByStatus(ctx, status)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings by status", "status", status, "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindByStatus(ctx, status, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings by status", "status", status, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

// GetUpcoming returns non-cancelled bookings scheduled in the next 7 days.
func (s *bookingService) GetUpcoming(ctx context.Context) ([]*model.Booking, error) {
	now := time.Now()
	bookings, err := s.repo.FindUpcoming(ctx, now, now.Add(7*24*time.Hour))
	if err != nil {
		s.cfg.Log.Error("Failed to list upcoming bookings", "error", err)
		return nil, apperrors.Internal("Failed to retrieve upcoming bookings", err)
	}
	return bookings, nil
}

func (s *bookingService) Update(ctx context.Context, id string, updates *model.BookingUpdate) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Booking update validation failed", "id", id, "error", err)
		return nil, validationError(err)
	}

	if updates.Status != "" && !model.CanTransition(existing.Status, updates.Status) {
		return nil, apperrors.Conflict(fmt.Sprintf(
			"Cannot change status of a cancelled booking to %q", updates.Status))
	}

	merged := s.mergeBookingUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.validator.Validate(merged); err != nil {
		return nil, validationError(err)
	}

	// The conflict window only matters when the slot or the customer
	// email moved.
	needsGuard := !merged.ScheduledAt.Equal(existing.ScheduledAt) ||
		merged.Customer.Email != existing.Customer.Email

	if needsGuard {
		lockID, err := s.acquireEmailLock(ctx, merged.Customer.Email)
		if err != nil {
			return nil, err
		}
		defer func() {
			if releaseErr := s.releaseEmailLock(ctx, lockID); releaseErr != nil {
				s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", releaseErr)
			}
		}()
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if needsGuard {
			if err := s.verifyNoConflict(sessCtx, merged.Customer.Email, merged.ScheduledAt, id); err != nil {
				return err
			}
		}
		if _, err := s.repo.Update(sessCtx, id, merged); err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", id)
			}
			return apperrors.Internal("Failed to update booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update booking", "id", id, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Booking updated successfully", "id", id)

	if merged.Status != existing.Status {
		sideCtx := context.WithoutCancel(ctx)
		s.notifier.BookingStatus(sideCtx, merged)
		s.events.Emit(sideCtx, event.TypeBookingStatusChanged, merged.ID, map[string]any{
			"booking_id": merged.ID,
			"from":       existing.Status,
			"to":         merged.Status,
		})
	}
	return merged, nil
}

// UpdateStatus is the status sub-route: it only moves the booking through
// the lifecycle machine.
func (s *bookingService) UpdateStatus(ctx context.Context, id string, status string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	if !validStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Invalid booking status: %s", status))
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}

	if !model.CanTransition(existing.Status, status) {
		return nil, apperrors.Conflict(fmt.Sprintf(
			"Cannot change status of a cancelled booking to %q", status))
	}
	if existing.Status == status {
		return existing, nil
	}

	from := existing.Status
	existing.Status = status
	if _, err := s.repo.Update(ctx, id, existing); err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		s.cfg.Log.Error("Failed to update booking status", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update booking status", err)
	}

	s.cfg.Log.Info("Booking status updated", "id", id, "from", from, "to", status)

	sideCtx := context.WithoutCancel(ctx)
	s.notifier.BookingStatus(sideCtx, existing)
	s.events.Emit(sideCtx, event.TypeBookingStatusChanged, existing.ID, map[string]any{
		"booking_id": existing.ID,
		"from":       from,
		"to":         status,
	})
	return existing, nil
}

func (s *bookingService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return mapLookupError(err, id)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Booking", id)
		}
		s.cfg.Log.Error("Failed to delete booking", "id", id, "error", err)
		return apperrors.Internal("Failed to delete booking", err)
	}

	s.cfg.Log.Info("Booking deleted successfully", "id", id)

	sideCtx := context.WithoutCancel(ctx)
	s.notifier.BookingCancelled(sideCtx, existing)
	s.events.Emit(sideCtx, event.TypeBookingCancelled, existing.ID, map[string]any{
		"booking_id": existing.ID,
		"email":      existing.Customer.Email,
	})
	return nil
}

func (s *bookingService) Statistics(ctx context.Context) (*model.BookingStatistics, error) {
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to aggregate booking statistics", "error", err)
		return nil, apperrors.Internal("Failed to compute booking statistics", err)
	}
	return stats, nil
}

// --- Helpers ---

func (s *bookingService) applyDefaults(b *model.Booking) {
	if b.Status == "" {
		b.Status = model.BookingStatusPending
	}
}

func (s *bookingService) sanitize(b *model.Booking) {
	b.Customer.Name = sanitizer.Name(b.Customer.Name)
	b.Customer.Email = sanitizer.Email(b.Customer.Email)
	b.Customer.Phone = sanitizer.Phone(b.Customer.Phone)
	b.Notes = sanitizer.Text(b.Notes)
}

func (s *bookingService) mergeBookingUpdates(existing *model.Booking, updates *model.BookingUpdate) *model.Booking {
	merged := *existing

	if updates.Customer != nil {
		merged.Customer = *updates.Customer
	}
	if updates.ScheduledAt != nil {
		merged.ScheduledAt = *updates.ScheduledAt
	}
	if updates.Notes != nil {
		merged.Notes = *updates.Notes
	}
	if updates.Status != "" {
		merged.Status = updates.Status
	}

	return &merged
}

// verifyNoConflict rejects the candidate slot when another active booking
// for the same email falls within the exclusion window, inclusive at both
// bounds. excludeID skips the booking being rescheduled.
func (s *bookingService) verifyNoConflict(ctx context.Context, email string, scheduledAt time.Time, excludeID string) error {
	from := scheduledAt.Add(-model.ConflictWindow)
	to := scheduledAt.Add(model.ConflictWindow)

	existing, err := s.repo.FindActiveByEmailWithin(ctx, email, from, to, excludeID)
	if err != nil {
		return apperrors.Internal("Failed to check existing bookings", err)
	}

	for _, b := range existing {
		if b.ID == excludeID || !b.IsActive() {
			continue
		}
		return apperrors.Conflict(fmt.Sprintf(
			"You already have a booking at %s. Bookings must be at least 60 minutes apart.",
			b.ScheduledAt.Format("2006-01-02 15:04")))
	}
	return nil
}

func (s *bookingService) acquireEmailLock(ctx context.Context, email string) (string, error) {
	lockID := "booking_lock_" + email

	lock := &model.BookingLock{
		ID:        lockID,
		ExpiresAt: time.Now().Add(10 * time.Second),
	}

	if _, err := s.lockRepo.Create(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("Another booking for this email is being processed. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire booking lock", err)
	}

	return lockID, nil
}

func (s *bookingService) releaseEmailLock(ctx context.Context, lockID string) error {
	return s.lockRepo.Delete(ctx, lockID)
}

func validStatus(status string) bool {
	switch status {
	case model.BookingStatusPending, model.BookingStatusConfirmed,
		model.BookingStatusCancelled, model.BookingStatusCompleted:
		return true
	}
	return false
}

func validationError(err error) error {
	var fieldErrs validate.FieldErrors
	if errors.As(err, &fieldErrs) {
		return apperrors.Validation("Booking validation failed", fieldErrs.Details())
	}
	return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
}

func mapLookupError(err error, id string) error {
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Booking", id)
	}
	if errors.Is(err, bookingserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid booking ID format")
	}
	return apperrors.Internal("Failed to retrieve booking", err)
}
