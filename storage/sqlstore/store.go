// Package sqlstore is the embedded SQLite backend, built on GORM.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/task-tracker-api/domain/task"
	"github.com/example/task-tracker-api/domain/user"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store owns the GORM handle shared by the user and task repositories.
type Store struct {
	db    *gorm.DB
	users *UserRepository
	tasks *TaskRepository
}

// Open connects to the SQLite database at path and migrates the schema.
func Open(path string, debug bool) (*Store, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	// SQLite has a single writer, and every ":memory:" connection is a
	// separate database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&user.User{}, &task.Task{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{
		db:    db,
		users: &UserRepository{db: db},
		tasks: &TaskRepository{db: db},
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
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close(_ context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// duplicateError maps a unique index violation to the matching domain error.
func duplicateError(err error) error {
	msg := err.Error()
	if !errors.Is(err, gorm.ErrDuplicatedKey) && !strings.Contains(msg, "UNIQUE constraint failed") {
		return nil
	}
	switch {
	case strings.Contains(msg, "users.username"):
		return user.ErrDuplicateUsername
	case strings.Contains(msg, "users.email"):
		return user.ErrDuplicateEmail
	}
	return nil
}
