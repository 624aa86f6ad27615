package pgstore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/example/task-tracker-api/domain/user"
	"github.com/example/task-tracker-api/storage/storetest"
	"github.com/jackc/pgx/v5/pgconn"
)

// setupTestStore connects to TEST_DATABASE_URL and empties both tables.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping test: TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := Open(ctx, url)
	if err != nil {
		t.Skipf("Skipping test: database not available: %v", err)
	}

	if _, err := store.pool.Exec(ctx, "TRUNCATE tasks, users"); err != nil {
		store.pool.Close()
		t.Fatalf("failed to clean up test data: %v", err)
	}

	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) (storetest.UserStore, storetest.TaskStore) {
		store := setupTestStore(t)
		return store.Users(), store.Tasks()
	})
}

func TestDuplicateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"username", &pgconn.PgError{Code: uniqueViolation, ConstraintName: usernameConstraint}, user.ErrDuplicateUsername},
		{"email", &pgconn.PgError{Code: uniqueViolation, ConstraintName: emailConstraint}, user.ErrDuplicateEmail},
		{"other constraint", &pgconn.PgError{Code: uniqueViolation, ConstraintName: "tasks_pkey"}, nil},
		{"other code", &pgconn.PgError{Code: "23503", ConstraintName: usernameConstraint}, nil},
		{"plain error", errors.New("boom"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := duplicateError(tt.err)
			if !errors.Is(got, tt.want) && got != tt.want {
				t.Errorf("duplicateError() = %v, want %v", got, tt.want)
			}
		})
	}
}
