package task

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/task-tracker-api/domain/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// TaskPort defines the task operations available to other modules.
type TaskPort interface {
	Create(ctx context.Context, ownerID string, in domain.CreateInput) (*domain.Task, error)
	List(ctx context.Context, ownerID string) ([]domain.Task, error)
	Get(ctx context.Context, id, ownerID string) (*domain.Task, error)
	Update(ctx context.Context, id, ownerID string, patch domain.Patch) (*domain.Task, error)
	Delete(ctx context.Context, id, ownerID string) (bool, error)
	Stats(ctx context.Context, ownerID string) (domain.Stats, error)
}

var (
	_ TaskPort = (*TaskService)(nil)
	_ TaskPort = (*TaskAdapter)(nil)
)

// TaskAdapter implements TaskPort using the service container.
type TaskAdapter struct {
	container mono.ServiceContainer
}

// NewTaskAdapter creates a new TaskAdapter.
func NewTaskAdapter(container mono.ServiceContainer) *TaskAdapter {
	return &TaskAdapter{container: container}
}

// Create calls the create-task service.
func (a *TaskAdapter) Create(ctx context.Context, ownerID string, in domain.CreateInput) (*domain.Task, error) {
	req := CreateTaskRequest{OwnerID: ownerID, Input: in}
	var resp TaskResponse
	if err := callService(ctx, a.container, ServiceCreate, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Task, nil
}

// List calls the list-tasks service. It never returns a nil slice on success.
func (a *TaskAdapter) List(ctx context.Context, ownerID string) ([]domain.Task, error) {
	req := OwnerRequest{OwnerID: ownerID}
	var resp ListTasksResponse
	if err := callService(ctx, a.container, ServiceList, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	if resp.Tasks == nil {
		resp.Tasks = []domain.Task{}
	}
	return resp.Tasks, nil
}

// Get calls the get-task service.
func (a *TaskAdapter) Get(ctx context.Context, id, ownerID string) (*domain.Task, error) {
	req := TaskRequest{TaskID: id, OwnerID: ownerID}
	var resp TaskResponse
	if err := callService(ctx, a.container, ServiceGet, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Task, nil
}

// Update calls the update-task service.
func (a *TaskAdapter) Update(ctx context.Context, id, ownerID string, patch domain.Patch) (*domain.Task, error) {
	req := UpdateTaskRequest{TaskID: id, OwnerID: ownerID, Patch: patch}
	var resp TaskResponse
	if err := callService(ctx, a.container, ServiceUpdate, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Task, nil
}

// Delete calls the delete-task service.
func (a *TaskAdapter) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	req := TaskRequest{TaskID: id, OwnerID: ownerID}
	var resp DeleteTaskResponse
	if err := callService(ctx, a.container, ServiceDelete, &req, &resp); err != nil {
		return false, err
	}
	if resp.Error != nil {
		return false, resp.Error
	}
	return resp.Deleted, nil
}

// Stats calls the task-stats service.
func (a *TaskAdapter) Stats(ctx context.Context, ownerID string) (domain.Stats, error) {
	req := OwnerRequest{OwnerID: ownerID}
	var resp StatsResponse
	if err := callService(ctx, a.container, ServiceStats, &req, &resp); err != nil {
		return domain.Stats{}, err
	}
	if resp.Error != nil {
		return domain.Stats{}, resp.Error
	}
	return resp.Stats, nil
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
