package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avatarstudio/avatarstudio/internal/model"
	"github.com/avatarstudio/avatarstudio/internal/repository"
)

// Account errors.
var (
	ErrMissingFields   = errors.New("missing required fields")
	ErrEmailTaken      = errors.New("an account with this email already exists")
	ErrEmailNotFound   = errors.New("no account found with this email")
	ErrWrongPassword   = errors.New("incorrect password")
	ErrUserNotFound    = errors.New("user not found")
	ErrNoProfileFields = errors.New("no profile fields to update")
)

// UserRepository persists user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUserProfile(ctx context.Context, id string, fields map[string]string) error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// AccountService handles registration, login and profiles.
type AccountService struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(users UserRepository, hasher PasswordHasher, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		users:  users,
		hasher: hasher,
		logger: logger.With("component", "accounts"),
	}
}

// RegisterInput is the registration form.
type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	Password  string `json:"password"`
}

// Register creates an account. First name, last name, email and password
// are required.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	email := normalizeEmail(input.Email)
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	if firstName == "" || lastName == "" || email == "" || input.Password == "" {
		return nil, ErrMissingFields
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           newID(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		Phone:        strings.TrimSpace(input.Phone),
		Company:      strings.TrimSpace(input.Company),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user_registered", "user_id", user.ID)
	return user, nil
}

// Login returns the account for email when password matches. Unknown
// emails and wrong passwords fail with distinct errors.
func (s *AccountService) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrEmailNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.logger.Info("login_rejected", "user_id", user.ID)
		return nil, ErrWrongPassword
	}
	return user, nil
}

// GetUser returns the account with id.
func (s *AccountService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateProfile sets any subset of the profile fields and returns the
// updated account. Keys outside model.ProfileFields are ignored.
func (s *AccountService) UpdateProfile(ctx context.Context, id string, fields map[string]string) (*model.User, error) {
	err := s.users.UpdateUserProfile(ctx, id, fields)
	switch {
	case errors.Is(err, repository.ErrNoProfileField):
		return nil, ErrNoProfileFields
	case errors.Is(err, repository.ErrUserNotFound):
		return nil, ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetUser(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
