package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"
	"unicode/utf8"

	"github.com/example/task-tracker-api/domain/apperr"
	domain "github.com/example/task-tracker-api/domain/user"
	"github.com/google/uuid"
)

// Registration limits. Username lengths count runes.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 6
)

var (
	// ErrInvalidCredentials is returned for an unknown username and for a wrong password alike.
	ErrInvalidCredentials = apperr.New(apperr.KindAuthentication, "invalid username or password")
	// ErrInvalidUsername is returned when the username length is out of range.
	ErrInvalidUsername = apperr.New(apperr.KindValidation, "username must be between 3 and 50 characters")
	// ErrInvalidEmail is returned when email format is invalid.
	ErrInvalidEmail = apperr.New(apperr.KindValidation, "invalid email format")
	// ErrWeakPassword is returned when password is too short.
	ErrWeakPassword = apperr.New(apperr.KindValidation, "password must be at least 6 characters")
	// ErrPasswordTooLong is returned when password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = apperr.New(apperr.KindValidation, "password must be at most 72 bytes")
)

// UserRepository is the credential store. Implementations enforce unique
// usernames and emails and report collisions as domain.ErrDuplicateUsername
// or domain.ErrDuplicateEmail.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

// LoginResult is a successful login.
type LoginResult struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	User      *domain.PublicUser `json:"user"`
}

// AuthService handles authentication business logic.
type AuthService struct {
	repo   UserRepository
	hasher *PasswordHasher
	jwt    *JWTManager
	now    func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo UserRepository, hasher *PasswordHasher, jwt *JWTManager) *AuthService {
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		jwt:    jwt,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.PublicUser, error) {
	if err := validateRegistration(username, email, password); err != nil {
		return nil, err
	}

	// The pre-checks give ordered, readable errors. The store's unique
	// indexes still decide a race between two concurrent registrations.
	if err := s.ensureAbsent(ctx, s.repo.FindByUsername, username, domain.ErrDuplicateUsername); err != nil {
		return nil, err
	}
	if err := s.ensureAbsent(ctx, s.repo.FindByEmail, email, domain.ErrDuplicateEmail); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) || errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user.Public(), nil
}

// Login authenticates a user and issues a token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.jwt.Generate(domain.Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.Public(),
	}, nil
}

// ValidateToken validates a bearer token and returns the caller identity.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*domain.Identity, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	identity := claims.Identity()
	return &identity, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.PublicUser, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user.Public(), nil
}

func (s *AuthService) ensureAbsent(
	ctx context.Context,
	find func(context.Context, string) (*domain.User, error),
	value string,
	dup error,
) error {
	_, err := find(ctx, value)
	switch {
	case err == nil:
		return dup
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("failed to check existing user: %w", err)
	}
}

func validateRegistration(username, email, password string) error {
	if n := utf8.RuneCountInString(username); n < MinUsernameLength || n > MaxUsernameLength {
		return ErrInvalidUsername
	}

	// Only a bare address is accepted; "Name <a@b.c>" parses but is not an email field.
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}

	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}
