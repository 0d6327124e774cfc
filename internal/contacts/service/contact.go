package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	contactserrors "atelier/internal/contacts/errors"
	"atelier/internal/contacts/repository"
	"atelier/pkg/config"
	apperrors "atelier/pkg/errors"
	"atelier/pkg/event"
	"atelier/pkg/mail"
	"atelier/pkg/model"
	"atelier/pkg/sanitizer"
	"atelier/pkg/validate"
)

type ContactService interface {
	Submit(ctx context.Context, contact *model.Contact, ipAddress, userAgent string) error
	GetByID(ctx context.Context, id string) (*model.Contact, error)
	GetAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Contact, int64, error)
	UpdateStatus(ctx context.Context, id string, status string) (*model.Contact, error)
	Delete(ctx context.Context, id string) error
	Statistics(ctx context.Context) (*model.ContactStatistics, error)
}

type contactService struct {
	repo      repository.ContactRepository
	validator *validate.Validator
	notifier  *mail.Notifier
	events    event.Publisher
	cfg       *config.Config
}

func NewContactService(
	repo repository.ContactRepository,
	notifier *mail.Notifier,
	events event.Publisher,
	cfg *config.Config,
) ContactService {
	return &contactService{
		repo:      repo,
		validator: validate.New(),
		notifier:  notifier,
		events:    events,
		cfg:       cfg,
	}
}

// Submit stores a contact-form message, stamping the request origin.
func (s *contactService) Submit(ctx context.Context, contact *model.Contact, ipAddress, userAgent string) error {
	if contact.Status == "" {
		contact.Status = model.ContactStatusPending
	}
	contact.IPAddress = ipAddress
	contact.UserAgent = userAgent

	contact.Name = sanitizer.Name(contact.Name)
	contact.Email = sanitizer.Email(contact.Email)
	contact.Subject = sanitizer.Text(contact.Subject)
	contact.Message = sanitizer.Text(contact.Message)

	if err := s.validator.Struct(contact); err != nil {
		return validationError(err)
	}

	if err := s.repo.Create(ctx, contact); err != nil {
		s.cfg.Log.Error("Failed to create contact", "email", contact.Email, "error", err)
		return apperrors.Internal("Failed to submit contact message", err)
	}

	s.cfg.Log.Info("Contact message received", "id", contact.ID, "email", contact.Email)

	sideCtx := context.WithoutCancel(ctx)
	s.notifier.ContactConfirmation(sideCtx, contact)
	s.notifier.AdminAlert(sideCtx, "New Contact Message",
		fmt.Sprintf("From %s (%s): %s", contact.Name, contact.Email, contact.Subject))
	s.events.Emit(sideCtx, event.TypeContactReceived, contact.ID, map[string]any{
		"contact_id": contact.ID,
		"email":      contact.Email,
		"subject":    contact.Subject,
	})
	return nil
}

func (s *contactService) GetByID(ctx context.Context, id string) (*model.Contact, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Contact ID cannot be empty")
	}

	contact, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}
	return contact, nil
}

func (s *contactService) GetAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Contact, int64, error) {
	if status != "" && !validStatus(status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("Invalid contact status: %s", status))
	}

	var count int64
	var contacts []*model.Contact
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, status)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count contacts", "error", errCount)
			errCount = apperrors.Internal("Failed to count contacts", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		contacts, errFind = s.repo.FindAll(ctx, status, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list contacts", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve contacts", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return contacts, count, nil
}

// UpdateStatus moves a contact through triage. Resolving stamps the
// response time.
func (s *contactService) UpdateStatus(ctx context.Context, id string, status string) (*model.Contact, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Contact ID cannot be empty")
	}
	if !validStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Invalid contact status: %s", status))
	}

	var respondedAt *time.Time
	if status == model.ContactStatusResolved {
		now := time.Now().UTC()
		respondedAt = &now
	}

	if err := s.repo.UpdateStatus(ctx, id, status, respondedAt); err != nil {
		if errors.Is(err, contactserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Contact", id)
		}
		if errors.Is(err, contactserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid contact ID format")
		}
		s.cfg.Log.Error("Failed to update contact status", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update contact status", err)
	}

	s.cfg.Log.Info("Contact status updated", "id", id, "status", status)

	contact, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}
	return contact, nil
}

func (s *contactService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Contact ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, contactserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Contact", id)
		}
		if errors.Is(err, contactserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid contact ID format")
		}
		s.cfg.Log.Error("Failed to delete contact", "id", id, "error", err)
		return apperrors.Internal("Failed to delete contact", err)
	}

	s.cfg.Log.Info("Contact deleted successfully", "id", id)
	return nil
}

func (s *contactService) Statistics(ctx context.Context) (*model.ContactStatistics, error) {
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to aggregate contact statistics", "error", err)
		return nil, apperrors.Internal("Failed to compute contact statistics", err)
	}
	return stats, nil
}

func validStatus(status string) bool {
	switch status {
	case model.ContactStatusPending, model.ContactStatusInProgress,
		model.ContactStatusResolved, model.ContactStatusSpam:
		return true
	}
	return false
}

func validationError(err error) error {
	var fieldErrs validate.FieldErrors
	if errors.As(err, &fieldErrs) {
		return apperrors.Validation("Contact validation failed", fieldErrs.Details())
	}
	return apperrors.Validation("Contact validation failed", map[string]any{"error": err.Error()})
}

func mapLookupError(err error, id string) error {
	if errors.Is(err, contactserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Contact", id)
	}
	if errors.Is(err, contactserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid contact ID format")
	}
	return apperrors.Internal("Failed to retrieve contact", err)
}
