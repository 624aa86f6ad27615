package task

import (
	"time"
	"unicode/utf8"

	"github.com/example/task-tracker-api/domain/apperr"
)

// Status represents the state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

var (
	// ErrNotFound is returned for a missing task and for a task owned by someone else.
	ErrNotFound = apperr.New(apperr.KindNotFound, "task not found")
	// ErrInvalidTitle is returned when the title is empty or too long.
	ErrInvalidTitle = apperr.New(apperr.KindValidation, "title must be between 1 and 100 characters")
	// ErrInvalidDescription is returned when the description is too long.
	ErrInvalidDescription = apperr.New(apperr.KindValidation, "description must be at most 500 characters")
	// ErrInvalidStatus is returned for a status outside the known set.
	ErrInvalidStatus = apperr.New(apperr.KindValidation, "status must be one of: todo, in_progress, completed")
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is a record owned by exactly one user.
type Task struct {
	ID          string    `json:"id" gorm:"primaryKey;type:text"`
	OwnerID     string    `json:"-" gorm:"column:user_id;index;not null;type:text"`
	Title       string    `json:"title" gorm:"not null;type:text"`
	Description *string   `json:"description" gorm:"type:text"`
	Status      Status    `json:"status" gorm:"not null;type:text;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// CreateInput holds the fields accepted when creating a task.
type CreateInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Status      Status  `json:"status,omitempty"`
}

// Normalize applies defaults and validates the input.
func (in *CreateInput) Normalize() error {
	if in.Status == "" {
		in.Status = StatusTodo
	}
	if err := ValidateTitle(in.Title); err != nil {
		return err
	}
	if err := ValidateDescription(in.Description); err != nil {
		return err
	}
	if !in.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
}

// Validate checks the fields present in the patch.
func (p Patch) Validate() error {
	if p.Title != nil {
		if err := ValidateTitle(*p.Title); err != nil {
			return err
		}
	}
	if err := ValidateDescription(p.Description); err != nil {
		return err
	}
	if p.Status != nil && !p.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// Stats counts an owner's tasks by status.
type Stats struct {
	Total      int64 `json:"total"`
	Todo       int64 `json:"todo"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
}

// StatsFromCounts builds Stats from per-status counts. Unknown statuses
// still count toward Total.
func StatsFromCounts(counts map[Status]int64) Stats {
	var s Stats
	for status, n := range counts {
		s.Total += n
		switch status {
		case StatusTodo:
			s.Todo += n
		case StatusInProgress:
			s.InProgress += n
		case StatusCompleted:
			s.Completed += n
		}
	}
	return s
}

// ValidateTitle checks the title length in characters.
func ValidateTitle(title string) error {
	n := utf8.RuneCountInString(title)
	if n < 1 || n > MaxTitleLength {
		return ErrInvalidTitle
	}
	return nil
}

// ValidateDescription checks an optional description.
func ValidateDescription(description *string) error {
	if description != nil && utf8.RuneCountInString(*description) > MaxDescriptionLength {
		return ErrInvalidDescription
	}
	return nil
}
