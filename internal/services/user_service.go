package services

import (
	"context"
	stderrors "errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/remlyo/remlyo/internal/config"
	"github.com/remlyo/remlyo/internal/domain/user"
	"github.com/remlyo/remlyo/internal/pkg/errors"
	"github.com/remlyo/remlyo/internal/pkg/logger"
)

const minPasswordLength = 8

// UserService implements user.Service
type UserService struct {
	repo   user.Repository
	logger *logger.Logger
	auth   config.AuthConfig
}

// NewUserService creates a new user service
func NewUserService(repo user.Repository, log *logger.Logger, auth config.AuthConfig) user.Service {
	if auth.BCryptCost == 0 {
		auth.BCryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		repo:   repo,
		logger: log,
		auth:   auth,
	}
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByEmail retrieves a user by email
func (s *UserService) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

// Register creates a new user with a hashed password.
// Emails listed in ADMIN_EMAILS are given the admin role.
func (s *UserService) Register(ctx context.Context, email, password, username string, fullName *string) (*user.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, errors.BadRequest("Email is required")
	}
	if len(password) < minPasswordLength {
		return nil, errors.BadRequest("Password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.auth.BCryptCost)
	if err != nil {
		return nil, errors.Internal("Failed to hash password", err)
	}

	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}

	u := &user.User{
		Email:              email,
		Username:           username,
		FullName:           fullName,
		PasswordHash:       string(hash),
		Role:               user.RoleUser,
		SubscriptionStatus: user.SubscriptionNone,
	}
	if s.auth.IsAdminEmail(email) {
		u.Role = user.RoleAdmin
	}

	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.ErrorWithErr(err, "Failed to create user")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": u.ID,
		"email":   u.Email,
		"role":    u.Role,
	}).Info("User registered")

	return u, nil
}

// Authenticate checks credentials and returns the matching user
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*user.User, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.Unauthorized("Invalid email or password")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		if !stderrors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.ErrorWithErr(err, "Failed to compare password hash")
		}
		return nil, errors.Unauthorized("Invalid email or password")
	}

	return u, nil
}

// Update updates a user
func (s *UserService) Update(ctx context.Context, u *user.User) error {
	err := s.repo.Update(ctx, u)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to update user")
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": u.ID,
	}).Info("User updated")

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
