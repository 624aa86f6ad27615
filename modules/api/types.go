package api

import domain "github.com/example/task-tracker-api/domain/task"

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateTaskRequest represents a task creation request.
type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
}

func (r CreateTaskRequest) input() domain.CreateInput {
	return domain.CreateInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      domain.Status(r.Status),
	}
}

// UpdateTaskRequest represents a partial task update. Absent fields are kept.
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func (r UpdateTaskRequest) patch() domain.Patch {
	p := domain.Patch{
		Title:       r.Title,
		Description: r.Description,
	}
	if r.Status != nil {
		s := domain.Status(*r.Status)
		p.Status = &s
	}
	return p
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
