package service

import (
	"context"
	"testing"
	"time"

	subscriptionserrors "atelier/internal/subscriptions/errors"
	"atelier/pkg/config"
	apperrors "atelier/pkg/errors"
	"atelier/pkg/event"
	"atelier/pkg/logger"
	"atelier/pkg/mail"
	"atelier/pkg/model"
)

type mockSubscriptionRepository struct {
	subs []*model.Subscription
}

func (m *mockSubscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	for _, s := range m.subs {
		if s.Email == sub.Email {
			return subscriptionserrors.ErrDuplicateEmail
		}
	}
	if sub.ID == "" {
		sub.ID = "6579a1b2c3d4e5f6a7b8c9e1"
	}
	sub.CreatedAt = time.Now()
	stored := *sub
	m.subs = append(m.subs, &stored)
	return nil
}

func (m *mockSubscriptionRepository) FindByID(ctx context.Context, id string) (*model.Subscription, error) {
	for _, s := range m.subs {
		if s.ID == id {
			copied := *s
			return &copied, nil
		}
	}
	return nil, subscriptionserrors.ErrNotFound
}

func (m *mockSubscriptionRepository) FindByToken(ctx context.Context, token string) (*model.Subscription, error) {
	for _, s := range m.subs {
		if s.VerificationToken != "" && s.VerificationToken == token {
			copied := *s
			return &copied, nil
		}
	}
	return nil, subscriptionserrors.ErrTokenNotFound
}

func (m *mockSubscriptionRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Subscription, error) {
	return m.subs, nil
}

func (m *mockSubscriptionRepository) Update(ctx context.Context, id string, sub *model.Subscription) error {
	for _, s := range m.subs {
		if s.Email == sub.Email && s.ID != id {
			return subscriptionserrors.ErrDuplicateEmail
		}
	}
	for i, s := range m.subs {
		if s.ID == id {
			stored := *sub
			stored.ID = id
			m.subs[i] = &stored
			return nil
		}
	}
	return subscriptionserrors.ErrNotFound
}

func (m *mockSubscriptionRepository) MarkVerified(ctx context.Context, id string) error {
	for _, s := range m.subs {
		if s.ID == id {
			s.Verified = true
			s.VerificationToken = ""
			return nil
		}
	}
	return subscriptionserrors.ErrNotFound
}

func (m *mockSubscriptionRepository) Delete(ctx context.Context, id string) error {
	for i, s := range m.subs {
		if s.ID == id {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return nil
		}
	}
	return subscriptionserrors.ErrNotFound
}

func (m *mockSubscriptionRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(m.subs)), nil
}

func (m *mockSubscriptionRepository) MonthlyStatistics(ctx context.Context) ([]model.MonthlySubscriptionStat, error) {
	return []model.MonthlySubscriptionStat{}, nil
}

func newTestSubscriptionService(repo *mockSubscriptionRepository) SubscriptionService {
	log := logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test"})
	cfg := &config.Config{Log: log, FrontendURL: "http://localhost:3000"}
	notifier := mail.NewNotifier(mail.NewLogSender(log), "admin@example.com", "http://localhost:3000", log)
	return NewSubscriptionService(repo, notifier, event.NoopPublisher{}, cfg)
}

func TestSubscribe_IssuesVerificationToken(t *testing.T) {
	repo := &mockSubscriptionRepository{}
	svc := newTestSubscriptionService(repo)

	sub := &model.Subscription{Name: "Ada Lovelace", Email: "ada@example.com"}
	if err := svc.Subscribe(context.Background(), sub); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if sub.Verified {
		t.Error("new subscription must start unverified")
	}
	if len(sub.VerificationToken) != 48 {
		t.Errorf("expected 48-char hex token, got %q", sub.VerificationToken)
	}
}

func TestSubscribe_DuplicateEmailConflicts(t *testing.T) {
	repo := &mockSubscriptionRepository{}
	svc := newTestSubscriptionService(repo)

	first := &model.Subscription{Name: "Ada Lovelace", Email: "ada@example.com"}
	if err := svc.Subscribe(context.Background(), first); err != nil {
		t.Fatalf("first subscribe failed: %v", err)
	}

	second := &model.Subscription{Name: "Ada L", Email: "ada@example.com"}
	err := svc.Subscribe(context.Background(), second)
	if err == nil {
		t.Fatal("expected duplicate email to be rejected")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus != 400 {
		t.Errorf("expected status 400 for duplicate email, got %d", appErr.HTTPStatus)
	}
	if appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected conflict code, got %q", appErr.Code)
	}
}

func TestVerify_FlipsFlagAndClearsToken(t *testing.T) {
	repo := &mockSubscriptionRepository{}
	svc := newTestSubscriptionService(repo)

	sub := &model.Subscription{Name: "Ada Lovelace", Email: "ada@example.com"}
	if err := svc.Subscribe(context.Background(), sub); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	verified, err := svc.Verify(context.Background(), sub.VerificationToken)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !verified.Verified {
		t.Error("expected subscription to be verified")
	}
	if verified.VerificationToken != "" {
		t.Error("expected token to be cleared after verification")
	}

	// Re-verifying with the consumed token must miss.
	if _, err := svc.Verify(context.Background(), sub.VerificationToken); err == nil {
		t.Fatal("expected second verification with same token to fail")
	}
}

func TestVerify_UnknownToken(t *testing.T) {
	repo := &mockSubscriptionRepository{}
	svc := newTestSubscriptionService(repo)

	_, err := svc.Verify(context.Background(), "deadbeef")
	if err == nil {
		t.Fatal("expected unknown token to fail")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus != 404 {
		t.Errorf("expected status 404 for unknown token, got %d", appErr.HTTPStatus)
	}
}

func TestVerify_EmptyToken(t *testing.T) {
	repo := &mockSubscriptionRepository{}
	svc := newTestSubscriptionService(repo)

	if _, err := svc.Verify(context.Background(), ""); err == nil {
		t.Fatal("expected empty token to be rejected")
	}
}

func TestUpdate_DuplicateEmailConflicts(t *testing.T) {
	repo := &mockSubscriptionRepository{}
	svc := newTestSubscriptionService(repo)

	first := &model.Subscription{ID: "6579a1b2c3d4e5f6a7b8c9e1", Name: "Ada Lovelace", Email: "ada@example.com"}
	second := &model.Subscription{ID: "6579a1b2c3d4e5f6a7b8c9e2", Name: "Grace Hopper", Email: "grace@example.com"}
	if err := svc.Subscribe(context.Background(), first); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := svc.Subscribe(context.Background(), second); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	_, err := svc.Update(context.Background(), second.ID, &model.SubscriptionUpdate{Email: "ada@example.com"})
	if err == nil {
		t.Fatal("expected update to a taken email to fail")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected conflict code, got %q", appErr.Code)
	}
}

func TestDelete_RemovesSubscription(t *testing.T) {
	repo := &mockSubscriptionRepository{}
	svc := newTestSubscriptionService(repo)

	sub := &model.Subscription{Name: "Ada Lovelace", Email: "ada@example.com"}
	if err := svc.Subscribe(context.Background(), sub); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := svc.Delete(context.Background(), sub.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), sub.ID); err == nil {
		t.Fatal("expected deleted subscription to be gone")
	}
}
