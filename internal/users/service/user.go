package service

import (
	"context"
	"errors"
	"time"

	userserrors "jobfair/internal/users/errors"
	"jobfair/internal/users/repository"
	"jobfair/internal/users/validator"
	"jobfair/pkg/auth"
	"jobfair/pkg/config"
	apperrors "jobfair/pkg/errors"
	"jobfair/pkg/model"
	"jobfair/pkg/sanitizer"
)

// AuthResult is returned by register and login.
type AuthResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

type UserService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req *model.LoginRequest) (*AuthResult, error)
	Me(ctx context.Context, userID string) (*model.User, error)
	LoadActor(ctx context.Context, userID string) (model.Actor, error)
}

type userService struct {
	repo      repository.UserRepository
	tokens    *auth.TokenManager
	validator *validator.UserValidator
	cfg       *config.Config
}

func NewUserService(repo repository.UserRepository, tokens *auth.TokenManager, validator *validator.UserValidator, cfg *config.Config) UserService {
	return &userService{
		repo:      repo,
		tokens:    tokens,
		validator: validator,
		cfg:       cfg,
	}
}

// Register creates a user with the default role. Admin accounts are promoted out of band.
func (s *userService) Register(ctx context.Context, req *model.RegisterRequest) (*AuthResult, error) {
	req.Name = sanitizer.TrimAndNormalize(req.Name)
	req.Email = sanitizer.SanitizeEmail(req.Email)
	req.Tel = sanitizer.SanitizePhone(req.Tel)

	if err := s.validator.ValidateRegister(req); err != nil {
		s.cfg.Log.Warn("Registration validation failed", "error", err)
		return nil, invalidInput("Invalid registration input", err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.Internal("Failed to register user", err)
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		Tel:          req.Tel,
		Role:         model.RoleUser,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, userserrors.ErrDuplicateEmail):
			return nil, apperrors.Conflict("Email is already registered")
		case errors.Is(err, userserrors.ErrDuplicateTel):
			return nil, apperrors.Conflict("Telephone number is already registered")
		}
		s.cfg.Log.Error("Failed to create user", "email", user.Email, "error", err)
		return nil, apperrors.StorageFailure("Failed to register user", err)
	}

	s.cfg.Log.Info("User registered successfully", "id", user.ID)
	return s.issue(user)
}

func (s *userService) Login(ctx context.Context, req *model.LoginRequest) (*AuthResult, error) {
	req.Email = sanitizer.SanitizeEmail(req.Email)
	if err := s.validator.ValidateLogin(req); err != nil {
		return nil, invalidInput("Please provide an email and password", err)
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("Invalid credentials")
		}
		s.cfg.Log.Error("Failed to load user for login", "error", err)
		return nil, apperrors.StorageFailure("Failed to log in", err)
	}

	ok, err := auth.CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		s.cfg.Log.Error("Stored password hash is unusable", "id", user.ID, "error", err)
		return nil, apperrors.Unauthorized("Invalid credentials")
	}
	if !ok {
		s.cfg.Log.Debug("Password mismatch", "id", user.ID)
		return nil, apperrors.Unauthorized("Invalid credentials")
	}

	return s.issue(user)
}

func (s *userService) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) || errors.Is(err, userserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("User", userID)
		}
		return nil, apperrors.StorageFailure("Failed to retrieve user", err)
	}
	return user, nil
}

// LoadActor backs the auth middleware. A token whose user is gone is rejected as
// unauthenticated rather than not found.
func (s *userService) LoadActor(ctx context.Context, userID string) (model.Actor, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) || errors.Is(err, userserrors.ErrInvalidID) {
			return model.Actor{}, apperrors.Unauthorized("User not found")
		}
		return model.Actor{}, err
	}
	return model.Actor{UserID: user.ID, Role: user.Role}, nil
}

func (s *userService) issue(user *model.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue token", err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func invalidInput(message string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.InvalidInput(message).WithDetails(map[string]any{"errors": verrs})
	}
	return apperrors.InvalidInput(message)
}
