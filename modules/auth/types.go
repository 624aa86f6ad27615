package auth

import (
	"time"

	"github.com/example/task-tracker-api/domain/apperr"
	domain "github.com/example/task-tracker-api/domain/user"
)

// Every response carries Error instead of failing the request-reply call, so
// the error kind reaches the caller intact.

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse represents a user registration response.
type RegisterResponse struct {
	User  *domain.PublicUser `json:"user,omitempty"`
	Error *apperr.Error      `json:"error,omitempty"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a user login response.
type LoginResponse struct {
	Token     string             `json:"token,omitempty"`
	ExpiresAt time.Time          `json:"expires_at,omitempty"`
	User      *domain.PublicUser `json:"user,omitempty"`
	Error     *apperr.Error      `json:"error,omitempty"`
}

// ValidateTokenRequest represents a token validation request.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse represents a token validation response.
type ValidateTokenResponse struct {
	Valid    bool          `json:"valid"`
	UserID   string        `json:"user_id,omitempty"`
	Username string        `json:"username,omitempty"`
	Error    *apperr.Error `json:"error,omitempty"`
}

// GetUserRequest represents a get user request.
type GetUserRequest struct {
	UserID string `json:"user_id"`
}

// GetUserResponse represents a get user response.
type GetUserResponse struct {
	User  *domain.PublicUser `json:"user,omitempty"`
	Error *apperr.Error      `json:"error,omitempty"`
}
