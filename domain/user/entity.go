package user

import (
	"time"

	"github.com/example/task-tracker-api/domain/apperr"
)

var (
	// ErrNotFound is returned when no user matches a lookup.
	ErrNotFound = apperr.New(apperr.KindNotFound, "user not found")
	// ErrDuplicateUsername is returned when the username is already taken.
	ErrDuplicateUsername = apperr.New(apperr.KindDuplicate, "username already exists")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = apperr.New(apperr.KindDuplicate, "email already exists")
)

// User represents a user entity in the system.
type User struct {
	ID           string `gorm:"primaryKey;type:text"`
	Username     string `gorm:"uniqueIndex;not null;type:text"`
	Email        string `gorm:"uniqueIndex;not null;type:text"`
	PasswordHash string `gorm:"not null;type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// Public returns the view of the user that may leave the auth module.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// PublicUser is a user without its credentials.
type PublicUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is the authenticated caller, as established by a validated token.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Valid reports whether the identity carries a user id.
func (i Identity) Valid() bool {
	return i.UserID != ""
}
