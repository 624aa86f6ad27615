package auth

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/task-tracker-api/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthPort defines the interface for authentication operations.
// This is the port that other modules use to access auth functionality.
// *AuthService satisfies it directly; AuthAdapter satisfies it over a
// service container.
type AuthPort interface {
	Register(ctx context.Context, username, email, password string) (*domain.PublicUser, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	ValidateToken(ctx context.Context, token string) (*domain.Identity, error)
	GetUser(ctx context.Context, userID string) (*domain.PublicUser, error)
}

var (
	_ AuthPort = (*AuthService)(nil)
	_ AuthPort = (*AuthAdapter)(nil)
)

// AuthAdapter implements AuthPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	return &AuthAdapter{
		container: container,
	}
}

// Register creates an account.
func (a *AuthAdapter) Register(ctx context.Context, username, email, password string) (*domain.PublicUser, error) {
	req := RegisterRequest{Username: username, Email: email, Password: password}
	var resp RegisterResponse

	if err := callService(ctx, a.container, ServiceRegister, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.User, nil
}

// Login authenticates and returns a token.
func (a *AuthAdapter) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	req := LoginRequest{Username: username, Password: password}
	var resp LoginResponse

	if err := callService(ctx, a.container, ServiceLogin, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return &LoginResult{
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
		User:      resp.User,
	}, nil
}

// ValidateToken validates an access token and returns the caller identity.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*domain.Identity, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse

	if err := callService(ctx, a.container, ServiceValidateToken, &req, &resp); err != nil {
		return nil, err
	}
	if !resp.Valid {
		if resp.Error != nil {
			return nil, resp.Error
		}
		return nil, ErrMalformedToken
	}

	return &domain.Identity{
		UserID:   resp.UserID,
		Username: resp.Username,
	}, nil
}

// GetUser retrieves a user by ID.
func (a *AuthAdapter) GetUser(ctx context.Context, userID string) (*domain.PublicUser, error) {
	req := GetUserRequest{UserID: userID}
	var resp GetUserResponse

	if err := callService(ctx, a.container, ServiceGetUser, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.User, nil
}

func callService[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	return nil
}
