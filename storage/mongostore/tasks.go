package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/task-tracker-api/domain/task"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type taskDocument struct {
	ObjectID    primitive.ObjectID `bson:"_id,omitempty"`
	ID          string             `bson:"id"`
	UserID      string             `bson:"user_id"`
	Title       string             `bson:"title"`
	Description *string            `bson:"description"`
	Status      string             `bson:"status"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (d *taskDocument) toDomain() task.Task {
	return task.Task{
		ID:          d.ID,
		OwnerID:     d.UserID,
		Title:       d.Title,
		Description: d.Description,
		Status:      task.Status(d.Status),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func ownedFilter(id, ownerID string) bson.M {
	return bson.M{"id": id, "user_id": ownerID}
}

// TaskRepository stores tasks in the tasks collection.
type TaskRepository struct {
	coll *mongo.Collection
}

// Create inserts a task.
func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	doc := taskDocument{
		ID:          t.ID,
		UserID:      t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// FindOwned returns the task with id if ownerID owns it.
func (r *TaskRepository) FindOwned(ctx context.Context, id, ownerID string) (*task.Task, error) {
	var doc taskDocument
	if err := r.coll.FindOne(ctx, ownedFilter(id, ownerID)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, task.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	t := doc.toDomain()
	return &t, nil
}

// ListByOwner returns the owner's tasks, oldest first.
func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID string) ([]task.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	var docs []taskDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}

	tasks := make([]task.Task, 0, len(docs))
	for i := range docs {
		tasks = append(tasks, docs[i].toDomain())
	}
	return tasks, nil
}

// UpdateOwned applies patch with $set and reports whether a task matched.
func (r *TaskRepository) UpdateOwned(ctx context.Context, id, ownerID string, patch task.Patch, updatedAt time.Time) (bool, error) {
	set := bson.M{"updated_at": updatedAt}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}

	res, err := r.coll.UpdateOne(ctx, ownedFilter(id, ownerID), bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to update task: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// DeleteOwned removes the owner's task and reports whether it existed.
func (r *TaskRepository) DeleteOwned(ctx context.Context, id, ownerID string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, ownedFilter(id, ownerID))
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// CountByStatus groups the owner's tasks by status with an aggregation.
func (r *TaskRepository) CountByStatus(ctx context.Context, ownerID string) (map[task.Status]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "user_id", Value: ownerID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode task counts: %w", err)
	}

	counts := make(map[task.Status]int64, len(rows))
	for _, row := range rows {
		counts[task.Status(row.Status)] = row.Count
	}
	return counts, nil
}
