// Package pgstore is the PostgreSQL backend, built on pgx.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/task-tracker-api/domain/user"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"

	uniqueViolation = "23505"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	CONSTRAINT users_username_key UNIQUE (username),
	CONSTRAINT users_email_key UNIQUE (email)
);

CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	title       TEXT NOT NULL,
	description TEXT,
	status      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks (user_id, created_at);
`

// Store owns the connection pool shared by the user and task repositories.
type Store struct {
	pool  *pgxpool.Pool
	users *UserRepository
	tasks *TaskRepository
}

// Open connects to url and creates the schema if it is missing.
func Open(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{
		pool:  pool,
		users: &UserRepository{pool: pool},
		tasks: &TaskRepository{pool: pool},
	}, nil
}

// Users returns the user repository.
func (s *Store) Users() *UserRepository {
	return s.users
}

// Tasks returns the task repository.
func (s *Store) Tasks() *TaskRepository {
	return s.tasks
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}

// duplicateError maps a unique violation to the matching domain error.
func duplicateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case usernameConstraint:
		return user.ErrDuplicateUsername
	case emailConstraint:
		return user.ErrDuplicateEmail
	}
	return nil
}
