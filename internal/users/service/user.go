package service

import (
	"context"
	"errors"
	"sync"

	userserrors "atelier/internal/users/errors"
	"atelier/internal/users/repository"
	"atelier/pkg/auth"
	"atelier/pkg/config"
	apperrors "atelier/pkg/errors"
	"atelier/pkg/logger"
	"atelier/pkg/mail"
	"atelier/pkg/model"
	"atelier/pkg/sanitizer"
	"atelier/pkg/validate"
)

type RegisterRequest struct {
	Name            string `json:"name" validate:"required,min=2,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult pairs a user with a freshly issued bearer token.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

type UserService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResult, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.User, int64, error)
	Update(ctx context.Context, id string, updates *model.UserUpdate) (*model.User, error)
	Promote(ctx context.Context, id string) (*model.User, error)
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	MonthlyStatistics(ctx context.Context) ([]model.MonthlyUserStat, error)
}

type userService struct {
	repo      repository.UserRepository
	issuer    *auth.TokenIssuer
	validator *validate.Validator
	notifier  *mail.Notifier
	log       *logger.Logger
}

func NewUserService(
	repo repository.UserRepository,
	issuer *auth.TokenIssuer,
	notifier *mail.Notifier,
	cfg *config.Config,
) UserService {
	return &userService{
		repo:      repo,
		issuer:    issuer,
		validator: validate.New(),
		notifier:  notifier,
		log:       cfg.Log,
	}
}

func (s *userService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	req.Name = sanitizer.Name(req.Name)
	req.Email = sanitizer.Email(req.Email)

	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if req.Password != req.ConfirmPassword {
		return nil, apperrors.Validation("User validation failed", map[string]any{
			"confirm_password": "Passwords do not match",
		})
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.Error("Failed to hash password", "error", err)
		return nil, apperrors.Internal("Failed to register user", err)
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.RoleCustomer,
		Active:       true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, userserrors.ErrDuplicateEmail) {
			return nil, apperrors.Conflict("This email is already registered")
		}
		s.log.Error("Failed to create user", "email", user.Email, "error", err)
		return nil, apperrors.Internal("Failed to register user", err)
	}

	token, err := s.issuer.Issue(user.ID, user.Role, user.Email)
	if err != nil {
		s.log.Error("Failed to issue token", "user_id", user.ID, "error", err)
		return nil, apperrors.Internal("Failed to register user", err)
	}

	s.log.Info("User registered", "id", user.ID, "email", user.Email)

	s.notifier.Welcome(context.WithoutCancel(ctx), user)

	user.PasswordHash = ""
	return &AuthResult{User: user, Token: token}, nil
}

// Login deliberately returns the same error for an unknown email and a wrong
// password so the response does not leak which emails exist.
func (s *userService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	req.Email = sanitizer.Email(req.Email)

	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("Invalid email or password")
		}
		s.log.Error("Failed to look up user", "email", req.Email, "error", err)
		return nil, apperrors.Internal("Failed to log in", err)
	}

	// The password check runs first so a deactivated email cannot be
	// confirmed without knowing its credentials.
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}
	if !user.Active {
		return nil, apperrors.Unauthorized("This account has been deactivated")
	}

	token, err := s.issuer.Issue(user.ID, user.Role, user.Email)
	if err != nil {
		s.log.Error("Failed to issue token", "user_id", user.ID, "error", err)
		return nil, apperrors.Internal("Failed to log in", err)
	}

	if err := s.repo.RecordLogin(ctx, user.ID); err != nil {
		s.log.Error("Failed to record login", "user_id", user.ID, "error", err)
	}
	user.LoginCount++

	s.log.Info("User logged in", "id", user.ID, "email", user.Email)

	user.PasswordHash = ""
	return &AuthResult{User: user, Token: token}, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}
	return user, nil
}

func (s *userService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.User, int64, error) {
	var count int64
	var users []*model.User
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.log.Error("Failed to count users", "error", errCount)
			errCount = apperrors.Internal("Failed to count users", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		users, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.log.Error("Failed to list users", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve users", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return users, count, nil
}

func (s *userService) Update(ctx context.Context, id string, updates *model.UserUpdate) (*model.User, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
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
	if updates.Role != "" {
		existing.Role = updates.Role
	}

	if err := s.repo.Update(ctx, id, existing); err != nil {
		if errors.Is(err, userserrors.ErrDuplicateEmail) {
			return nil, apperrors.Conflict("This email is already registered")
		}
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", id)
		}
		s.log.Error("Failed to update user", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update user", err)
	}

	s.log.Info("User updated", "id", id)
	return existing, nil
}

func (s *userService) Promote(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}
	if user.Role == model.RoleAdmin {
		return user, nil
	}

	if err := s.repo.SetRole(ctx, id, model.RoleAdmin); err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", id)
		}
		s.log.Error("Failed to promote user", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to promote user", err)
	}

	user.Role = model.RoleAdmin
	s.log.Info("User promoted to admin", "id", id)
	return user, nil
}

func (s *userService) Deactivate(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("User ID cannot be empty")
	}

	if err := s.repo.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("User", id)
		}
		if errors.Is(err, userserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid user ID format")
		}
		s.log.Error("Failed to deactivate user", "id", id, "error", err)
		return apperrors.Internal("Failed to deactivate user", err)
	}

	s.log.Info("User deactivated", "id", id)
	return nil
}

func (s *userService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("User ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("User", id)
		}
		if errors.Is(err, userserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid user ID format")
		}
		s.log.Error("Failed to delete user", "id", id, "error", err)
		return apperrors.Internal("Failed to delete user", err)
	}

	s.log.Info("User deleted", "id", id)
	return nil
}

func (s *userService) MonthlyStatistics(ctx context.Context) ([]model.MonthlyUserStat, error) {
	stats, err := s.repo.MonthlyStatistics(ctx)
	if err != nil {
		s.log.Error("Failed to aggregate user statistics", "error", err)
		return nil, apperrors.Internal("Failed to compute user statistics", err)
	}
	return stats, nil
}

func validationError(err error) error {
	var fieldErrs validate.FieldErrors
	if errors.As(err, &fieldErrs) {
		return apperrors.Validation("User validation failed", fieldErrs.Details())
	}
	return apperrors.Validation("User validation failed", map[string]any{"error": err.Error()})
}

func mapLookupError(err error, id string) error {
	if errors.Is(err, userserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("User", id)
	}
	if errors.Is(err, userserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid user ID format")
	}
	return apperrors.Internal("Failed to retrieve user", err)
}
