package task

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/example/task-tracker-api/domain/apperr"
	domain "github.com/example/task-tracker-api/domain/task"
	"github.com/example/task-tracker-api/storage/sqlstore"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger and records error messages.
type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (m *mockLogger) Debug(msg string, args ...any) {}
func (m *mockLogger) Info(msg string, args ...any)  {}
func (m *mockLogger) Warn(msg string, args ...any)  {}
func (m *mockLogger) Error(msg string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}
func (m *mockLogger) With(args ...any) types.Logger          { return m }
func (m *mockLogger) WithError(err error) types.Logger       { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

// recordingCache counts loads and invalidations per owner.
type recordingCache struct {
	mu          sync.Mutex
	stored      map[string]domain.Stats
	loads       int
	invalidated []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{stored: make(map[string]domain.Stats)}
}

func (c *recordingCache) GetOrLoad(ctx context.Context, ownerID string, load func(context.Context) (domain.Stats, error)) (domain.Stats, error) {
	c.mu.Lock()
	if s, ok := c.stored[ownerID]; ok {
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	s, err := load(ctx)
	if err != nil {
		return domain.Stats{}, err
	}

	c.mu.Lock()
	c.loads++
	c.stored[ownerID] = s
	c.mu.Unlock()
	return s, nil
}

func (c *recordingCache) Invalidate(_ context.Context, ownerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.stored, ownerID)
	c.invalidated = append(c.invalidated, ownerID)
	return nil
}

func setupTestService(t *testing.T, cache StatsCache) *TaskService {
	t.Helper()

	store, err := sqlstore.Open(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	return NewTaskService(store.Tasks(), cache, &mockLogger{})
}

func strPtr(s string) *string { return &s }

func statusPtr(s domain.Status) *domain.Status { return &s }

func TestTaskService_CreateDefaults(t *testing.T) {
	svc := setupTestService(t, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "owner-a", domain.CreateInput{Title: "t1"})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "owner-a", created.OwnerID)
	assert.Equal(t, domain.StatusTodo, created.Status)
	assert.Nil(t, created.Description)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
}

func TestTaskService_CreateValidation(t *testing.T) {
	svc := setupTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		input domain.CreateInput
		want  error
	}{
		{"empty title", domain.CreateInput{Title: ""}, domain.ErrInvalidTitle},
		{"bad status", domain.CreateInput{Title: "t", Status: "archived"}, domain.ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "owner-a", tt.input)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestTaskService_ListEmptyIsNotNil(t *testing.T) {
	svc := setupTestService(t, nil)

	tasks, err := svc.List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestTaskService_OwnerIsolation(t *testing.T) {
	svc := setupTestService(t, nil)
	ctx := context.Background()

	owned, err := svc.Create(ctx, "owner-a", domain.CreateInput{Title: "private"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, owned.ID, "owner-b")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Update(ctx, owned.ID, "owner-b", domain.Patch{Title: strPtr("hijacked")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	deleted, err := svc.Delete(ctx, owned.ID, "owner-b")
	require.NoError(t, err)
	assert.False(t, deleted)

	tasks, err := svc.List(ctx, "owner-b")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	got, err := svc.Get(ctx, owned.ID, "owner-a")
	require.NoError(t, err)
	assert.Equal(t, "private", got.Title)
}

func TestTaskService_UpdatePartial(t *testing.T) {
	svc := setupTestService(t, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "owner-a", domain.CreateInput{Title: "t1", Description: strPtr("first")})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, "owner-a", domain.Patch{Status: statusPtr(domain.StatusCompleted)})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.Equal(t, "t1", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "first", *updated.Description)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	_, err = svc.Update(ctx, created.ID, "owner-a", domain.Patch{Status: statusPtr("archived")})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestTaskService_DeleteThenGet(t *testing.T) {
	svc := setupTestService(t, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "owner-a", domain.CreateInput{Title: "t1"})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, created.ID, "owner-a")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.Delete(ctx, created.ID, "owner-a")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = svc.Get(ctx, created.ID, "owner-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTaskService_Stats(t *testing.T) {
	svc := setupTestService(t, nil)
	ctx := context.Background()

	for _, in := range []domain.CreateInput{
		{Title: "a"},
		{Title: "b", Status: domain.StatusInProgress},
		{Title: "c", Status: domain.StatusCompleted},
	} {
		_, err := svc.Create(ctx, "owner-a", in)
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, "owner-b", domain.CreateInput{Title: "other"})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, "owner-a")
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Total: 3, Todo: 1, InProgress: 1, Completed: 1}, stats)

	empty, err := svc.Stats(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{}, empty)
}

func TestTaskService_MutationsInvalidateStats(t *testing.T) {
	cache := newRecordingCache()
	svc := setupTestService(t, cache)
	ctx := context.Background()

	created, err := svc.Create(ctx, "owner-a", domain.CreateInput{Title: "t1"})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, "owner-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Todo)

	// Served from cache.
	_, err = svc.Stats(ctx, "owner-a")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.loads)

	_, err = svc.Update(ctx, created.ID, "owner-a", domain.Patch{Status: statusPtr(domain.StatusCompleted)})
	require.NoError(t, err)

	stats, err = svc.Stats(ctx, "owner-a")
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Total: 1, Completed: 1}, stats)
	assert.Equal(t, 2, cache.loads)

	_, err = svc.Delete(ctx, created.ID, "owner-a")
	require.NoError(t, err)

	stats, err = svc.Stats(ctx, "owner-a")
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{}, stats)
	assert.Equal(t, []string{"owner-a", "owner-a", "owner-a"}, cache.invalidated)
}

// failingRepository fails ListByOwner with a store error.
type failingRepository struct {
	Repository
}

func (failingRepository) ListByOwner(context.Context, string) ([]domain.Task, error) {
	return nil, errors.New("disk on fire")
}

func TestTaskService_StoreFailureIsInternal(t *testing.T) {
	svc := NewTaskService(failingRepository{}, nil, &mockLogger{})

	_, err := svc.List(context.Background(), "owner-a")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, apperr.InternalMessage, apperr.From(err).Message)
}
