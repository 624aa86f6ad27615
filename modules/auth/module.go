package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/task-tracker-api/domain/apperr"
	"github.com/example/task-tracker-api/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Service names registered in the auth container.
const (
	ServiceRegister      = "register"
	ServiceLogin         = "login"
	ServiceValidateToken = "validate-token"
	ServiceGetUser       = "get-user"
)

// AuthModule provides authentication services.
type AuthModule struct {
	service  *AuthService
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*AuthModule)(nil)
	_ mono.ServiceProviderModule = (*AuthModule)(nil)
	_ mono.EventBusAwareModule   = (*AuthModule)(nil)
	_ mono.EventEmitterModule    = (*AuthModule)(nil)
)

// NewModule creates a new AuthModule over an already opened user store.
func NewModule(repo UserRepository, hasher *PasswordHasher, jwt *JWTManager, logger types.Logger) *AuthModule {
	return &AuthModule{
		service: NewAuthService(repo, hasher, jwt),
		logger:  logger.WithModule("auth"),
	}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// Service returns the underlying service.
func (m *AuthModule) Service() *AuthService {
	return m.service
}

// SetEventBus receives the EventBus from the framework.
func (m *AuthModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *AuthModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserRegisteredV1.ToBase(),
	}
}

// Start starts the module.
func (m *AuthModule) Start(_ context.Context) error {
	m.logger.Info("Auth module started", "tokenTTL", m.service.jwt.TTL().String())
	return nil
}

// Stop shuts down the module.
func (m *AuthModule) Stop(_ context.Context) error {
	m.logger.Info("Auth module stopped")
	return nil
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceRegister,
		json.Unmarshal,
		json.Marshal,
		m.handleRegister,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRegister, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceLogin,
		json.Unmarshal,
		json.Marshal,
		m.handleLogin,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceLogin, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceValidateToken,
		json.Unmarshal,
		json.Marshal,
		m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceValidateToken, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceGetUser,
		json.Unmarshal,
		json.Marshal,
		m.handleGetUser,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetUser, err)
	}

	m.logger.Info("Registered services",
		"services", []string{ServiceRegister, ServiceLogin, ServiceValidateToken, ServiceGetUser})
	return nil
}

// handleRegister handles user registration.
func (m *AuthModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (RegisterResponse, error) {
	user, err := m.service.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		return RegisterResponse{Error: m.replyError("register", err)}, nil
	}

	m.logger.Info("User registered", "userID", user.ID, "username", user.Username)
	if m.eventBus != nil {
		if err := events.UserRegisteredV1.Publish(m.eventBus, events.UserRegisteredEvent{
			UserID:       user.ID,
			Username:     user.Username,
			RegisteredAt: user.CreatedAt,
		}, nil); err != nil {
			m.logger.Warn("Failed to publish UserRegistered event", "userID", user.ID, "error", err)
		}
	}

	return RegisterResponse{User: user}, nil
}

// handleLogin handles user login.
func (m *AuthModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (LoginResponse, error) {
	result, err := m.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			m.logger.Warn("Invalid login attempt", "username", req.Username)
		}
		return LoginResponse{Error: m.replyError("login", err)}, nil
	}

	return LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      result.User,
	}, nil
}

// handleValidateToken handles token validation.
func (m *AuthModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	identity, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		return ValidateTokenResponse{
			Valid: false,
			Error: m.replyError("validate-token", err),
		}, nil
	}

	return ValidateTokenResponse{
		Valid:    true,
		UserID:   identity.UserID,
		Username: identity.Username,
	}, nil
}

// handleGetUser handles get user requests.
func (m *AuthModule) handleGetUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (GetUserResponse, error) {
	user, err := m.service.GetUser(ctx, req.UserID)
	if err != nil {
		return GetUserResponse{Error: m.replyError("get-user", err)}, nil
	}
	return GetUserResponse{User: user}, nil
}

// replyError logs unexpected failures in full and returns the caller-safe form.
func (m *AuthModule) replyError(op string, err error) *apperr.Error {
	if apperr.KindOf(err) == apperr.KindInternal {
		m.logger.Error("Auth operation failed", "operation", op, "error", err)
	}
	return apperr.From(err)
}
