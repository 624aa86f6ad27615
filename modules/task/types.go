package task

import (
	"github.com/example/task-tracker-api/domain/apperr"
	domain "github.com/example/task-tracker-api/domain/task"
)

// CreateTaskRequest is the request for the create-task service.
type CreateTaskRequest struct {
	OwnerID string             `json:"owner_id"`
	Input   domain.CreateInput `json:"input"`
}

// TaskRequest identifies one task of one owner.
type TaskRequest struct {
	TaskID  string `json:"task_id"`
	OwnerID string `json:"owner_id"`
}

// UpdateTaskRequest is the request for the update-task service.
type UpdateTaskRequest struct {
	TaskID  string       `json:"task_id"`
	OwnerID string       `json:"owner_id"`
	Patch   domain.Patch `json:"patch"`
}

// OwnerRequest identifies an owner.
type OwnerRequest struct {
	OwnerID string `json:"owner_id"`
}

// TaskResponse carries a single task or an error.
type TaskResponse struct {
	Task  *domain.Task  `json:"task,omitempty"`
	Error *apperr.Error `json:"error,omitempty"`
}

// ListTasksResponse carries an owner's tasks.
type ListTasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
	Error *apperr.Error `json:"error,omitempty"`
}

// DeleteTaskResponse reports whether a task was removed.
type DeleteTaskResponse struct {
	Deleted bool          `json:"deleted"`
	Error   *apperr.Error `json:"error,omitempty"`
}

// StatsResponse carries an owner's task statistics.
type StatsResponse struct {
	Stats domain.Stats  `json:"stats"`
	Error *apperr.Error `json:"error,omitempty"`
}
