package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/task-tracker-api/domain/apperr"
	domain "github.com/example/task-tracker-api/domain/user"
	"golang.org/x/crypto/bcrypt"
)

// mockUserRepository is an in-memory UserRepository with unique username and
// email, like the real stores.
type mockUserRepository struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	findErr error
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (r *mockUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return domain.ErrDuplicateUsername
		}
		if u.Email == user.Email {
			return domain.ErrDuplicateEmail
		}
	}
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *mockUserRepository) find(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if match(u) {
			found := *u
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *mockUserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id })
}

func (r *mockUserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username })
}

func (r *mockUserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func newTestService(repo UserRepository) *AuthService {
	return NewAuthService(repo, NewPasswordHasher(bcrypt.MinCost), NewJWTManager(testJWTConfig()))
}

func TestAuthService_Register(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "a@x.com", "password123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if user.ID == "" {
		t.Error("Register() returned empty ID")
	}
	if user.Username != "alice" || user.Email != "a@x.com" {
		t.Errorf("Register() = %+v, want alice/a@x.com", user)
	}

	stored, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if stored.PasswordHash == "password123" || stored.PasswordHash == "" {
		t.Errorf("PasswordHash = %q, want a bcrypt hash", stored.PasswordHash)
	}
	if !stored.CreatedAt.Equal(stored.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want CreatedAt %v", stored.UpdatedAt, stored.CreatedAt)
	}
}

func TestAuthService_RegisterDuplicates(t *testing.T) {
	svc := newTestService(newMockUserRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "a@x.com", "password123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name     string
		username string
		email    string
		wantErr  error
	}{
		{"same username", "alice", "other@x.com", domain.ErrDuplicateUsername},
		{"same email", "bob", "a@x.com", domain.ErrDuplicateEmail},
		{"both taken reports username first", "alice", "a@x.com", domain.ErrDuplicateUsername},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.email, "password123")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
			if apperr.KindOf(err) != apperr.KindDuplicate {
				t.Errorf("KindOf() = %v, want %v", apperr.KindOf(err), apperr.KindDuplicate)
			}
		})
	}
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc := newTestService(newMockUserRepository())

	tests := []struct {
		name     string
		username string
		email    string
		password string
		wantErr  error
	}{
		{"short username", "al", "a@x.com", "password123", ErrInvalidUsername},
		{"long username", strings.Repeat("u", 51), "a@x.com", "password123", ErrInvalidUsername},
		{"bad email", "alice", "not-an-email", "password123", ErrInvalidEmail},
		{"display name email", "alice", "Alice <a@x.com>", "password123", ErrInvalidEmail},
		{"short password", "alice", "a@x.com", "12345", ErrWeakPassword},
		{"long password", "alice", "a@x.com", strings.Repeat("p", 73), ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.username, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthService_RegisterStoreRace(t *testing.T) {
	// The store rejects the insert even when the pre-check saw nothing.
	repo := &racingRepository{mockUserRepository: newMockUserRepository(), createErr: domain.ErrDuplicateEmail}
	svc := newTestService(repo)

	_, err := svc.Register(context.Background(), "alice", "a@x.com", "password123")
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Errorf("Register() error = %v, want %v", err, domain.ErrDuplicateEmail)
	}
}

type racingRepository struct {
	*mockUserRepository
	createErr error
}

func (r *racingRepository) Create(context.Context, *domain.User) error {
	return r.createErr
}

func TestAuthService_Login(t *testing.T) {
	svc := newTestService(newMockUserRepository())
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice", "a@x.com", "password123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := svc.Login(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Token == "" {
		t.Fatal("Login() returned empty token")
	}
	if result.User.ID != registered.ID {
		t.Errorf("Login().User.ID = %v, want %v", result.User.ID, registered.ID)
	}
	if d := time.Until(result.ExpiresAt); d <= 0 {
		t.Errorf("Login().ExpiresAt in the past: %v", result.ExpiresAt)
	}

	identity, err := svc.ValidateToken(ctx, result.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	want := domain.Identity{UserID: registered.ID, Username: "alice"}
	if *identity != want {
		t.Errorf("ValidateToken() = %+v, want %+v", *identity, want)
	}
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	svc := newTestService(newMockUserRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "a@x.com", "password123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, wrongPassword := svc.Login(ctx, "alice", "wrong-password")
	_, unknownUser := svc.Login(ctx, "nobody", "password123")

	if !errors.Is(wrongPassword, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want %v", wrongPassword, ErrInvalidCredentials)
	}
	if !errors.Is(unknownUser, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v, want %v", unknownUser, ErrInvalidCredentials)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Errorf("messages differ: %q vs %q", wrongPassword, unknownUser)
	}
}

func TestAuthService_LoginStoreFailure(t *testing.T) {
	repo := newMockUserRepository()
	repo.findErr = errors.New("connection reset")
	svc := newTestService(repo)

	_, err := svc.Login(context.Background(), "alice", "password123")
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login() error = %v, want a store failure", err)
	}
	if apperr.KindOf(err) != apperr.KindInternal {
		t.Errorf("KindOf() = %v, want %v", apperr.KindOf(err), apperr.KindInternal)
	}
}

func TestAuthService_GetUser(t *testing.T) {
	svc := newTestService(newMockUserRepository())
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice", "a@x.com", "password123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, err := svc.GetUser(ctx, registered.ID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if *got != *registered {
		t.Errorf("GetUser() = %+v, want %+v", got, registered)
	}

	if _, err := svc.GetUser(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetUser(missing) error = %v, want %v", err, domain.ErrNotFound)
	}
}
