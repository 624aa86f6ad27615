package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/example/task-tracker-api/domain/task"
	"github.com/example/task-tracker-api/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
)

// Repository is the task store. Every method that addresses a single task
// filters by both id and owner, so a task owned by someone else is invisible.
type Repository interface {
	Create(ctx context.Context, task *domain.Task) error
	FindOwned(ctx context.Context, id, ownerID string) (*domain.Task, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error)
	UpdateOwned(ctx context.Context, id, ownerID string, patch domain.Patch, updatedAt time.Time) (bool, error)
	DeleteOwned(ctx context.Context, id, ownerID string) (bool, error)
	CountByStatus(ctx context.Context, ownerID string) (map[domain.Status]int64, error)
}

// StatsCache caches per-owner stats.
type StatsCache interface {
	GetOrLoad(ctx context.Context, ownerID string, load func(context.Context) (domain.Stats, error)) (domain.Stats, error)
	Invalidate(ctx context.Context, ownerID string) error
}

type noopStatsCache struct{}

func (noopStatsCache) GetOrLoad(ctx context.Context, _ string, load func(context.Context) (domain.Stats, error)) (domain.Stats, error) {
	return load(ctx)
}

func (noopStatsCache) Invalidate(context.Context, string) error { return nil }

// TaskService implements owner-scoped task operations.
type TaskService struct {
	repo     Repository
	cache    StatsCache
	eventBus mono.EventBus
	logger   types.Logger
	now      func() time.Time
}

// NewTaskService creates a TaskService. A nil cache disables stats caching.
func NewTaskService(repo Repository, cache StatsCache, logger types.Logger) *TaskService {
	if cache == nil {
		cache = noopStatsCache{}
	}
	return &TaskService{
		repo:   repo,
		cache:  cache,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetEventBus enables event publishing.
func (s *TaskService) SetEventBus(bus mono.EventBus) {
	s.eventBus = bus
}

// Create validates and stores a new task for the owner.
func (s *TaskService) Create(ctx context.Context, ownerID string, in domain.CreateInput) (*domain.Task, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}

	now := s.now()
	t := &domain.Task{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	s.invalidate(ctx, ownerID)

	if s.eventBus != nil {
		event := events.TaskCreatedEvent{
			TaskID:    t.ID,
			UserID:    ownerID,
			Title:     t.Title,
			Status:    t.Status,
			CreatedAt: t.CreatedAt,
		}
		if err := events.TaskCreatedV1.Publish(s.eventBus, event, nil); err != nil {
			s.logger.Warn("Failed to publish TaskCreated event", "taskID", t.ID, "error", err)
		}
	}

	return t, nil
}

// List returns all of the owner's tasks, oldest first.
func (s *TaskService) List(ctx context.Context, ownerID string) ([]domain.Task, error) {
	tasks, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// Get returns a task owned by ownerID, or domain.ErrNotFound.
func (s *TaskService) Get(ctx context.Context, id, ownerID string) (*domain.Task, error) {
	t, err := s.repo.FindOwned(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return t, nil
}

// Update applies the fields present in patch and returns the stored task.
func (s *TaskService) Update(ctx context.Context, id, ownerID string, patch domain.Patch) (*domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	matched, err := s.repo.UpdateOwned(ctx, id, ownerID, patch, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if !matched {
		return nil, domain.ErrNotFound
	}
	s.invalidate(ctx, ownerID)

	updated, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		event := events.TaskUpdatedEvent{
			TaskID:    updated.ID,
			UserID:    ownerID,
			Status:    updated.Status,
			Fields:    patchFields(patch),
			UpdatedAt: updated.UpdatedAt,
		}
		if err := events.TaskUpdatedV1.Publish(s.eventBus, event, nil); err != nil {
			s.logger.Warn("Failed to publish TaskUpdated event", "taskID", updated.ID, "error", err)
		}
	}

	return updated, nil
}

// Delete removes a task owned by ownerID. It reports false when nothing matched.
func (s *TaskService) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	deleted, err := s.repo.DeleteOwned(ctx, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	if !deleted {
		return false, nil
	}
	s.invalidate(ctx, ownerID)

	if s.eventBus != nil {
		event := events.TaskDeletedEvent{
			TaskID:    id,
			UserID:    ownerID,
			DeletedAt: s.now(),
		}
		if err := events.TaskDeletedV1.Publish(s.eventBus, event, nil); err != nil {
			s.logger.Warn("Failed to publish TaskDeleted event", "taskID", id, "error", err)
		}
	}

	return true, nil
}

// Stats counts the owner's tasks by status.
func (s *TaskService) Stats(ctx context.Context, ownerID string) (domain.Stats, error) {
	stats, err := s.cache.GetOrLoad(ctx, ownerID, func(ctx context.Context) (domain.Stats, error) {
		counts, err := s.repo.CountByStatus(ctx, ownerID)
		if err != nil {
			return domain.Stats{}, err
		}
		return domain.StatsFromCounts(counts), nil
	})
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}

func (s *TaskService) invalidate(ctx context.Context, ownerID string) {
	if err := s.cache.Invalidate(ctx, ownerID); err != nil {
		s.logger.Warn("Failed to invalidate stats cache", "ownerID", ownerID, "error", err)
	}
}

func patchFields(p domain.Patch) []string {
	fields := make([]string, 0, 3)
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Status != nil {
		fields = append(fields, "status")
	}
	return fields
}
