package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/task-tracker-api/domain/task"
	"gorm.io/gorm"
)

const ownedFilter = "id = ? AND user_id = ?"

// TaskRepository handles task persistence using GORM.
type TaskRepository struct {
	db *gorm.DB
}

// Create inserts a task.
func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// FindOwned returns the task with id if ownerID owns it.
func (r *TaskRepository) FindOwned(ctx context.Context, id, ownerID string) (*task.Task, error) {
	var t task.Task
	if err := r.db.WithContext(ctx).First(&t, ownedFilter, id, ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, task.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &t, nil
}

// ListByOwner returns the owner's tasks, oldest first.
func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID string) ([]task.Task, error) {
	var tasks []task.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at asc").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// UpdateOwned applies patch to the owner's task and reports whether it matched.
func (r *TaskRepository) UpdateOwned(ctx context.Context, id, ownerID string, patch task.Patch, updatedAt time.Time) (bool, error) {
	changes := map[string]any{"updated_at": updatedAt}
	if patch.Title != nil {
		changes["title"] = *patch.Title
	}
	if patch.Description != nil {
		changes["description"] = *patch.Description
	}
	if patch.Status != nil {
		changes["status"] = *patch.Status
	}

	result := r.db.WithContext(ctx).Model(&task.Task{}).Where(ownedFilter, id, ownerID).Updates(changes)
	if err := result.Error; err != nil {
		return false, fmt.Errorf("failed to update task: %w", err)
	}
	return result.RowsAffected > 0, nil
}

// DeleteOwned removes the owner's task and reports whether it existed.
func (r *TaskRepository) DeleteOwned(ctx context.Context, id, ownerID string) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&task.Task{}, ownedFilter, id, ownerID)
	if err := result.Error; err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	return result.RowsAffected > 0, nil
}

// CountByStatus groups the owner's tasks by status.
func (r *TaskRepository) CountByStatus(ctx context.Context, ownerID string) (map[task.Status]int64, error) {
	var rows []struct {
		Status task.Status
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&task.Task{}).
		Select("status, count(*) as count").
		Where("user_id = ?", ownerID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	counts := make(map[task.Status]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
