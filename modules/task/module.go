package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/task-tracker-api/domain/apperr"
	"github.com/example/task-tracker-api/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Service names registered in the task container.
const (
	ServiceCreate = "create-task"
	ServiceList   = "list-tasks"
	ServiceGet    = "get-task"
	ServiceUpdate = "update-task"
	ServiceDelete = "delete-task"
	ServiceStats  = "task-stats"
)

// TaskModule provides owner-scoped task services.
type TaskModule struct {
	service *TaskService
	logger  types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*TaskModule)(nil)
	_ mono.ServiceProviderModule = (*TaskModule)(nil)
	_ mono.EventBusAwareModule   = (*TaskModule)(nil)
	_ mono.EventEmitterModule    = (*TaskModule)(nil)
)

// NewModule creates a TaskModule over an already opened task store.
func NewModule(repo Repository, cache StatsCache, logger types.Logger) *TaskModule {
	logger = logger.WithModule("task")
	return &TaskModule{
		service: NewTaskService(repo, cache, logger),
		logger:  logger,
	}
}

// Name returns the module name.
func (m *TaskModule) Name() string {
	return "task"
}

// Service returns the underlying service.
func (m *TaskModule) Service() *TaskService {
	return m.service
}

// SetEventBus receives the EventBus from the framework.
func (m *TaskModule) SetEventBus(bus mono.EventBus) {
	m.service.SetEventBus(bus)
}

// EmitEvents declares the events this module can emit.
func (m *TaskModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskUpdatedV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
	}
}

// Start starts the module.
func (m *TaskModule) Start(_ context.Context) error {
	m.logger.Info("Task module started")
	return nil
}

// Stop shuts down the module.
func (m *TaskModule) Stop(_ context.Context) error {
	m.logger.Info("Task module stopped")
	return nil
}

// RegisterServices registers request-reply services in the service container.
func (m *TaskModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCreate, json.Unmarshal, json.Marshal, m.handleCreate,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceCreate, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceList, json.Unmarshal, json.Marshal, m.handleList,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceList, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGet, json.Unmarshal, json.Marshal, m.handleGet,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGet, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceUpdate, json.Unmarshal, json.Marshal, m.handleUpdate,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceUpdate, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceDelete, json.Unmarshal, json.Marshal, m.handleDelete,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceDelete, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceStats, json.Unmarshal, json.Marshal, m.handleStats,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceStats, err)
	}

	m.logger.Info("Registered services", "services",
		[]string{ServiceCreate, ServiceList, ServiceGet, ServiceUpdate, ServiceDelete, ServiceStats})
	return nil
}

func (m *TaskModule) handleCreate(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.service.Create(ctx, req.OwnerID, req.Input)
	if err != nil {
		return TaskResponse{Error: m.replyError(ServiceCreate, err)}, nil
	}
	return TaskResponse{Task: t}, nil
}

func (m *TaskModule) handleList(ctx context.Context, req OwnerRequest, _ *mono.Msg) (ListTasksResponse, error) {
	tasks, err := m.service.List(ctx, req.OwnerID)
	if err != nil {
		return ListTasksResponse{Error: m.replyError(ServiceList, err)}, nil
	}
	return ListTasksResponse{Tasks: tasks}, nil
}

func (m *TaskModule) handleGet(ctx context.Context, req TaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.service.Get(ctx, req.TaskID, req.OwnerID)
	if err != nil {
		return TaskResponse{Error: m.replyError(ServiceGet, err)}, nil
	}
	return TaskResponse{Task: t}, nil
}

func (m *TaskModule) handleUpdate(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.service.Update(ctx, req.TaskID, req.OwnerID, req.Patch)
	if err != nil {
		return TaskResponse{Error: m.replyError(ServiceUpdate, err)}, nil
	}
	return TaskResponse{Task: t}, nil
}

func (m *TaskModule) handleDelete(ctx context.Context, req TaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	deleted, err := m.service.Delete(ctx, req.TaskID, req.OwnerID)
	if err != nil {
		return DeleteTaskResponse{Error: m.replyError(ServiceDelete, err)}, nil
	}
	return DeleteTaskResponse{Deleted: deleted}, nil
}

func (m *TaskModule) handleStats(ctx context.Context, req OwnerRequest, _ *mono.Msg) (StatsResponse, error) {
	stats, err := m.service.Stats(ctx, req.OwnerID)
	if err != nil {
		return StatsResponse{Error: m.replyError(ServiceStats, err)}, nil
	}
	return StatsResponse{Stats: stats}, nil
}

func (m *TaskModule) replyError(op string, err error) *apperr.Error {
	if apperr.KindOf(err) == apperr.KindInternal {
		m.logger.Error("Task operation failed", "operation", op, "error", err)
	}
	return apperr.From(err)
}
