// Package storetest holds the behaviour every storage backend must share.
// Each backend's tests call Run with a fresh, empty store per subtest.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/example/task-tracker-api/domain/task"
	"github.com/example/task-tracker-api/domain/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// UserStore mirrors the credential store the auth module consumes.
type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	FindByID(ctx context.Context, id string) (*user.User, error)
	FindByUsername(ctx context.Context, username string) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
}

// TaskStore mirrors the task store the task module consumes.
type TaskStore interface {
	Create(ctx context.Context, t *task.Task) error
	FindOwned(ctx context.Context, id, ownerID string) (*task.Task, error)
	ListByOwner(ctx context.Context, ownerID string) ([]task.Task, error)
	UpdateOwned(ctx context.Context, id, ownerID string, patch task.Patch, updatedAt time.Time) (bool, error)
	DeleteOwned(ctx context.Context, id, ownerID string) (bool, error)
	CountByStatus(ctx context.Context, ownerID string) (map[task.Status]int64, error)
}

// Factory returns empty stores for one subtest.
type Factory func(t *testing.T) (UserStore, TaskStore)

// NewUser builds a user record with fresh timestamps.
func NewUser(username, email string) *user.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &user.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderplacehold",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTask builds a task record for ownerID.
func NewTask(ownerID, title string, status task.Status) *task.Task {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &task.Task{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     title,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Run executes the shared suite.
func Run(t *testing.T, factory Factory) {
	t.Run("UserCreateAndFind", func(t *testing.T) { testUserCreateAndFind(t, factory) })
	t.Run("UserUniqueness", func(t *testing.T) { testUserUniqueness(t, factory) })
	t.Run("UserConcurrentRegistration", func(t *testing.T) { testConcurrentRegistration(t, factory) })
	t.Run("TaskOwnership", func(t *testing.T) { testTaskOwnership(t, factory) })
	t.Run("TaskUpdate", func(t *testing.T) { testTaskUpdate(t, factory) })
	t.Run("TaskDelete", func(t *testing.T) { testTaskDelete(t, factory) })
	t.Run("TaskCountByStatus", func(t *testing.T) { testCountByStatus(t, factory) })
}

func testUserCreateAndFind(t *testing.T, factory Factory) {
	users, _ := factory(t)
	ctx := context.Background()

	u := NewUser("alice", "a@x.com")
	require.NoError(t, users.Create(ctx, u))

	byID, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Username, byID.Username)
	assert.Equal(t, u.PasswordHash, byID.PasswordHash)
	assert.WithinDuration(t, u.CreatedAt, byID.CreatedAt, time.Second)

	byName, err := users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	byEmail, err := users.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = users.FindByUsername(ctx, "bob")
	assert.ErrorIs(t, err, user.ErrNotFound)
	_, err = users.FindByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func testUserUniqueness(t *testing.T, factory Factory) {
	users, _ := factory(t)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, NewUser("alice", "a@x.com")))

	err := users.Create(ctx, NewUser("alice", "other@x.com"))
	assert.ErrorIs(t, err, user.ErrDuplicateUsername)

	err = users.Create(ctx, NewUser("bob", "a@x.com"))
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
}

func testConcurrentRegistration(t *testing.T, factory Factory) {
	users, _ := factory(t)
	ctx := context.Background()

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := users.Create(ctx, NewUser("racer", "racer@x.com")); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes, "exactly one concurrent registration may win")
}

func testTaskOwnership(t *testing.T, factory Factory) {
	_, tasks := factory(t)
	ctx := context.Background()

	owned := NewTask("owner-a", "mine", task.StatusTodo)
	require.NoError(t, tasks.Create(ctx, owned))
	require.NoError(t, tasks.Create(ctx, NewTask("owner-b", "theirs", task.StatusTodo)))

	got, err := tasks.FindOwned(ctx, owned.ID, "owner-a")
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Title)
	assert.Equal(t, "owner-a", got.OwnerID)
	assert.Nil(t, got.Description)

	_, err = tasks.FindOwned(ctx, owned.ID, "owner-b")
	assert.ErrorIs(t, err, task.ErrNotFound)
	_, err = tasks.FindOwned(ctx, uuid.New().String(), "owner-a")
	assert.ErrorIs(t, err, task.ErrNotFound)

	list, err := tasks.ListByOwner(ctx, "owner-a")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, owned.ID, list[0].ID)

	empty, err := tasks.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testTaskUpdate(t *testing.T, factory Factory) {
	_, tasks := factory(t)
	ctx := context.Background()

	original := NewTask("owner-a", "draft", task.StatusTodo)
	require.NoError(t, tasks.Create(ctx, original))

	status := task.StatusInProgress
	desc := "now with a description"
	later := original.UpdatedAt.Add(time.Minute)

	matched, err := tasks.UpdateOwned(ctx, original.ID, "owner-b", task.Patch{Status: &status}, later)
	require.NoError(t, err)
	assert.False(t, matched, "cross-owner update must not match")

	matched, err = tasks.UpdateOwned(ctx, original.ID, "owner-a", task.Patch{Status: &status, Description: &desc}, later)
	require.NoError(t, err)
	assert.True(t, matched)

	got, err := tasks.FindOwned(ctx, original.ID, "owner-a")
	require.NoError(t, err)
	assert.Equal(t, "draft", got.Title, "absent fields are untouched")
	assert.Equal(t, task.StatusInProgress, got.Status)
	require.NotNil(t, got.Description)
	assert.Equal(t, desc, *got.Description)
	assert.WithinDuration(t, later, got.UpdatedAt, time.Second)
	assert.WithinDuration(t, original.CreatedAt, got.CreatedAt, time.Second)
}

func testTaskDelete(t *testing.T, factory Factory) {
	_, tasks := factory(t)
	ctx := context.Background()

	victim := NewTask("owner-a", "delete me", task.StatusTodo)
	require.NoError(t, tasks.Create(ctx, victim))

	deleted, err := tasks.DeleteOwned(ctx, victim.ID, "owner-b")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = tasks.DeleteOwned(ctx, victim.ID, "owner-a")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = tasks.DeleteOwned(ctx, victim.ID, "owner-a")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = tasks.FindOwned(ctx, victim.ID, "owner-a")
	assert.ErrorIs(t, err, task.ErrNotFound)
}

func testCountByStatus(t *testing.T, factory Factory) {
	_, tasks := factory(t)
	ctx := context.Background()

	for _, s := range []task.Status{task.StatusTodo, task.StatusInProgress, task.StatusCompleted, task.StatusTodo} {
		require.NoError(t, tasks.Create(ctx, NewTask("owner-a", "t", s)))
	}
	require.NoError(t, tasks.Create(ctx, NewTask("owner-b", "t", task.StatusCompleted)))

	counts, err := tasks.CountByStatus(ctx, "owner-a")
	require.NoError(t, err)
	assert.Equal(t, map[task.Status]int64{
		task.StatusTodo:       2,
		task.StatusInProgress: 1,
		task.StatusCompleted:  1,
	}, counts)

	none, err := tasks.CountByStatus(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
