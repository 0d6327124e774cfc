package service

import (
	"context"
	"testing"
	"time"

	contactserrors "atelier/internal/contacts/errors"
	"atelier/pkg/config"
	apperrors "atelier/pkg/errors"
	"atelier/pkg/event"
	"atelier/pkg/logger"
	"atelier/pkg/mail"
	"atelier/pkg/model"
)

type mockContactRepository struct {
	contacts []*model.Contact
}

func (m *mockContactRepository) Create(ctx context.Context, contact *model.Contact) error {
	if contact.ID == "" {
		contact.ID = "6579a1b2c3d4e5f6a7b8c9d1"
	}
	contact.CreatedAt = time.Now()
	stored := *contact
	m.contacts = append(m.contacts, &stored)
	return nil
}

func (m *mockContactRepository) FindByID(ctx context.Context, id string) (*model.Contact, error) {
	for _, c := range m.contacts {
		if c.ID == id {
			copied := *c
			return &copied, nil
		}
	}
	return nil, contactserrors.ErrNotFound
}

func (m *mockContactRepository) FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Contact, error) {
	return m.contacts, nil
}

func (m *mockContactRepository) UpdateStatus(ctx context.Context, id string, status string, respondedAt *time.Time) error {
	for _, c := range m.contacts {
		if c.ID == id {
			c.Status = status
			if respondedAt != nil {
				c.RespondedAt = respondedAt
			}
			return nil
		}
	}
	return contactserrors.ErrNotFound
}

func (m *mockContactRepository) Delete(ctx context.Context, id string) error {
	for i, c := range m.contacts {
		if c.ID == id {
			m.contacts = append(m.contacts[:i], m.contacts[i+1:]...)
			return nil
		}
	}
	return contactserrors.ErrNotFound
}

func (m *mockContactRepository) Count(ctx context.Context, status string) (int64, error) {
	return int64(len(m.contacts)), nil
}

func (m *mockContactRepository) Statistics(ctx context.Context) (*model.ContactStatistics, error) {
	return &model.ContactStatistics{Total: int64(len(m.contacts))}, nil
}

func newTestContactService(repo *mockContactRepository) ContactService {
	log := logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test"})
	cfg := &config.Config{Log: log}
	notifier := mail.NewNotifier(mail.NewLogSender(log), "admin@example.com", "http://localhost:3000", log)
	return NewContactService(repo, notifier, event.NoopPublisher{}, cfg)
}

func validContact() *model.Contact {
	return &model.Contact{
		Name:    "Margaret Hamilton",
		Email:   "margaret@example.com",
		Subject: "Question about sizing",
		Message: "Does the linen shirt run large?",
	}
}

func TestSubmit_CapturesOriginAndDefaults(t *testing.T) {
	repo := &mockContactRepository{}
	svc := newTestContactService(repo)

	c := validContact()
	if err := svc.Submit(context.Background(), c, "203.0.113.9", "curl/8.0"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if c.Status != model.ContactStatusPending {
		t.Errorf("expected default status pending, got %q", c.Status)
	}
	if c.IPAddress != "203.0.113.9" || c.UserAgent != "curl/8.0" {
		t.Errorf("expected origin captured, got ip=%q ua=%q", c.IPAddress, c.UserAgent)
	}
}

func TestSubmit_ValidationFailure(t *testing.T) {
	repo := &mockContactRepository{}
	svc := newTestContactService(repo)

	c := validContact()
	c.Email = "nope"

	err := svc.Submit(context.Background(), c, "", "")
	if err == nil {
		t.Fatal("expected validation failure")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus != 400 {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestUpdateStatus_ResolvedStampsRespondedAt(t *testing.T) {
	repo := &mockContactRepository{}
	svc := newTestContactService(repo)

	c := validContact()
	if err := svc.Submit(context.Background(), c, "", ""); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	updated, err := svc.UpdateStatus(context.Background(), c.ID, model.ContactStatusResolved)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.RespondedAt == nil {
		t.Error("expected responded_at to be stamped on resolve")
	}
}

func TestUpdateStatus_InvalidStatusRejected(t *testing.T) {
	repo := &mockContactRepository{}
	svc := newTestContactService(repo)

	c := validContact()
	if err := svc.Submit(context.Background(), c, "", ""); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), c.ID, "archived"); err == nil {
		t.Error("expected invalid status to be rejected")
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo := &mockContactRepository{}
	svc := newTestContactService(repo)

	_, err := svc.GetByID(context.Background(), "6579a1b2c3d4e5f6a7b8c9ff")
	if err == nil {
		t.Fatal("expected not found")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus != 404 {
		t.Errorf("expected 404, got %v", err)
	}
}
