package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	subscriptionserrors "atelier/internal/subscriptions/errors"
	"atelier/internal/subscriptions/repository"
	"atelier/pkg/config"
	apperrors "atelier/pkg/errors"
	"atelier/pkg/event"
	"atelier/pkg/mail"
	"atelier/pkg/model"
	"atelier/pkg/sanitizer"
	"atelier/pkg/validate"
)

type SubscriptionService interface {
	Subscribe(ctx context.Context, sub *model.Subscription) error
	Verify(ctx context.Context, token string) (*model.Subscription, error)
	GetByID(ctx context.Context, id string) (*model.Subscription, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Subscription, int64, error)
	Update(ctx context.Context, id string, updates *model.SubscriptionUpdate) (*model.Subscription, error)
	Delete(ctx context.Context, id string) error
	MonthlyStatistics(ctx context.Context) ([]model.MonthlySubscriptionStat, error)
}

type subscriptionService struct {
	repo      repository.SubscriptionRepository
	validator *validate.Validator
	notifier  *mail.Notifier
	events    event.Publisher
	cfg       *config.Config
}

func NewSubscriptionService(
	repo repository.SubscriptionRepository,
	notifier *mail.Notifier,
	events event.Publisher,
	cfg *config.Config,
) SubscriptionService {
	return &subscriptionService{
		repo:      repo,
		validator: validate.New(),
		notifier:  notifier,
		events:    events,
		cfg:       cfg,
	}
}

func (s *subscriptionService) Subscribe(ctx context.Context, sub *model.Subscription) error {
	sub.Name = sanitizer.Name(sub.Name)
	sub.Email = sanitizer.Email(sub.Email)
	sub.Verified = false
	sub.VerificationToken = newVerificationToken()

	if err := s.validator.Struct(sub); err != nil {
		return validationError(err)
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		if errors.Is(err, subscriptionserrors.ErrDuplicateEmail) {
			return apperrors.Conflict("This email is already subscribed")
		}
		s.cfg.Log.Error("Failed to create subscription", "email", sub.Email, "error", err)
		return apperrors.Internal("Failed to create subscription", err)
	}

	s.cfg.Log.Info("Subscription created", "id", sub.ID, "email", sub.Email)

	sideCtx := context.WithoutCancel(ctx)
	verificationURL := fmt.Sprintf("%s/subscriptions/verify/%s", s.cfg.FrontendURL, sub.VerificationToken)
	s.notifier.SubscriptionVerification(sideCtx, sub, verificationURL)
	s.events.Emit(sideCtx, event.TypeSubscriptionCreated, sub.ID, map[string]any{
		"subscription_id": sub.ID,
		"email":           sub.Email,
	})
	return nil
}

// Verify resolves the emailed token and flips the verified flag. Verifying
// twice is fine: the second call just finds no token.
func (s *subscriptionService) Verify(ctx context.Context, token string) (*model.Subscription, error) {
	if token == "" {
		return nil, apperrors.InvalidInput("Verification token cannot be empty")
	}

	sub, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, subscriptionserrors.ErrTokenNotFound) {
			return nil, apperrors.NotFound("Verification token")
		}
		s.cfg.Log.Error("Failed to look up verification token", "error", err)
		return nil, apperrors.Internal("Failed to verify subscription", err)
	}

	if err := s.repo.MarkVerified(ctx, sub.ID); err != nil {
		s.cfg.Log.Error("Failed to mark subscription verified", "id", sub.ID, "error", err)
		return nil, apperrors.Internal("Failed to verify subscription", err)
	}

	sub.Verified = true
	sub.VerificationToken = ""
	s.cfg.Log.Info("Subscription verified", "id", sub.ID, "email", sub.Email)
	return sub, nil
}

func (s *subscriptionService) GetByID(ctx context.Context, id string) (*model.Subscription, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Subscription ID cannot be empty")
	}

	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}
	return sub, nil
}

func (s *subscriptionService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Subscription, int64, error) {
	var count int64
	var subs []*model.Subscription
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count subscriptions", "error", errCount)
			errCount = apperrors.Internal("Failed to count subscriptions", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		subs, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list subscriptions", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve subscriptions", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return subs, count, nil
}

func (s *subscriptionService) Update(ctx context.Context, id string, updates *model.SubscriptionUpdate) (*model.Subscription, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Subscription ID cannot be empty")
	}

	if err := s.validator.Struct(updates); err != nil {
		return nil, validationError(err)
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}

	if updates.Name != "" {
		existing.Name = sanitizer.Name(updates.Name)
	}
	if updates.Email != "" {
		existing.Email = sanitizer.Email(updates.Email)
	}

	if err := s.repo.Update(ctx, id, existing); err != nil {
		if errors.Is(err, subscriptionserrors.ErrDuplicateEmail) {
			return nil, apperrors.Conflict("This email is already subscribed")
		}
		if errors.Is(err, subscriptionserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Subscription", id)
		}
		s.cfg.Log.Error("Failed to update subscription", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update subscription", err)
	}

	s.cfg.Log.Info("Subscription updated", "id", id)
	return existing, nil
}

func (s *subscriptionService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Subscription ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, subscriptionserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Subscription", id)
		}
		if errors.Is(err, subscriptionserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid subscription ID format")
		}
		s.cfg.Log.Error("Failed to delete subscription", "id", id, "error", err)
		return apperrors.Internal("Failed to delete subscription", err)
	}

	s.cfg.Log.Info("Subscription deleted", "id", id)
	return nil
}

func (s *subscriptionService) MonthlyStatistics(ctx context.Context) ([]model.MonthlySubscriptionStat, error) {
	stats, err := s.repo.MonthlyStatistics(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to aggregate subscription statistics", "error", err)
		return nil, apperrors.Internal("Failed to compute subscription statistics", err)
	}
	return stats, nil
}

func newVerificationToken() string {
	buf := make([]byte, 24)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func validationError(err error) error {
	var fieldErrs validate.FieldErrors
	if errors.As(err, &fieldErrs) {
		return apperrors.Validation("Subscription validation failed", fieldErrs.Details())
	}
	return apperrors.Validation("Subscription validation failed", map[string]any{"error": err.Error()})
}

func mapLookupError(err error, id string) error {
	if errors.Is(err, subscriptionserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Subscription", id)
	}
	if errors.Is(err, subscriptionserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid subscription ID format")
	}
	return apperrors.Internal("Failed to retrieve subscription", err)
}
