package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/comfyhome/storefront/internal/access"
	"github.com/comfyhome/storefront/internal/auth"
	"github.com/comfyhome/storefront/internal/domain"
	"github.com/comfyhome/storefront/internal/event"
	"github.com/comfyhome/storefront/internal/repository"
	apperrors "github.com/comfyhome/storefront/pkg/errors"
)

// Session is an authenticated user together with a freshly signed token.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// RegisterInput holds the parameters for creating an account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// UserService implements account registration, login and profile management.
type UserService struct {
	repo     repository.UserRepository
	tokens   *auth.TokenManager
	producer *event.Producer
	logger   *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(repo repository.UserRepository, tokens *auth.TokenManager, producer *event.Producer, logger *slog.Logger) *UserService {
	return &UserService{
		repo:     repo,
		tokens:   tokens,
		producer: producer,
		logger:   logger,
	}
}

// Register creates an account and signs a token for it. The first account
// ever registered becomes admin.
func (s *UserService) Register(ctx context.Context, input *RegisterInput) (*Session, error) {
	email := normalizeEmail(input.Email)
	if strings.TrimSpace(input.Name) == "" || email == "" || input.Password == "" {
		return nil, apperrors.InvalidInput("please provide name, email and password")
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role.String()),
	)

	return s.session(user)
}

// Login verifies the credentials and signs a token.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.InvalidInput("please provide email and password")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	ok, err := auth.ComparePassword(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	return s.session(user)
}

// ListUsers returns all accounts with the user role.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.repo.ListByRole(ctx, domain.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetUser returns the account id. Only the account holder and admins may read it.
func (s *UserService) GetUser(ctx context.Context, requester domain.Identity, id string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	if err := access.CheckPermissions(requester, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile changes the requester's name and email and re-signs the token
// so it carries the new name.
func (s *UserService) UpdateProfile(ctx context.Context, requester domain.Identity, name, email string) (*Session, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return nil, apperrors.InvalidInput("please provide all values")
	}

	user, err := s.repo.UpdateProfile(ctx, requester.UserID, name, email)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.logger.InfoContext(ctx, "user profile updated", slog.String("user_id", user.ID))
	return s.session(user)
}

// UpdatePassword replaces the requester's password once the old one is verified.
func (s *UserService) UpdatePassword(ctx context.Context, requester domain.Identity, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apperrors.InvalidInput("please provide both values")
	}

	user, err := s.repo.GetByID(ctx, requester.UserID)
	if err != nil {
		return fmt.Errorf("get user by id: %w", err)
	}

	ok, err := auth.ComparePassword(user.PasswordHash, oldPassword)
	if err != nil {
		return fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		return apperrors.Unauthorized("invalid credentials")
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.InfoContext(ctx, "user password updated", slog.String("user_id", user.ID))
	return nil
}

func (s *UserService) session(user *domain.User) (*Session, error) {
	token, claims, err := s.tokens.Issue(user.Identity())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{User: user, Token: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
