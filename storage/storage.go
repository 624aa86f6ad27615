// Package storage opens the configured persistence backend and exposes it as
// a mono module so the framework can health check and close it.
package storage

import (
	"context"
	"fmt"

	"github.com/example/task-tracker-api/config"
	"github.com/example/task-tracker-api/modules/auth"
	"github.com/example/task-tracker-api/modules/task"
	"github.com/example/task-tracker-api/storage/mongostore"
	"github.com/example/task-tracker-api/storage/pgstore"
	"github.com/example/task-tracker-api/storage/sqlstore"
)

// Backend is an opened store. Users and Tasks share one connection.
type Backend struct {
	Driver string
	Users  auth.UserRepository
	Tasks  task.Repository

	ping  func(context.Context) error
	close func(context.Context) error
}

// Ping checks the backend connection.
func (b *Backend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

// Close releases the backend connection.
func (b *Backend) Close(ctx context.Context) error {
	return b.close(ctx)
}

// Open connects to the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (*Backend, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := sqlstore.Open(cfg.URL, cfg.Debug)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Driver: cfg.Driver,
			Users:  store.Users(),
			Tasks:  store.Tasks(),
			ping:   store.Ping,
			close:  store.Close,
		}, nil

	case config.DriverMongo:
		store, err := mongostore.Open(ctx, cfg.URL, cfg.Database)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Driver: cfg.Driver,
			Users:  store.Users(),
			Tasks:  store.Tasks(),
			ping:   store.Ping,
			close:  store.Close,
		}, nil

	case config.DriverPostgres:
		store, err := pgstore.Open(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Driver: cfg.Driver,
			Users:  store.Users(),
			Tasks:  store.Tasks(),
			ping:   store.Ping,
			close:  store.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
