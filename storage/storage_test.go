package storage

import (
	"context"
	"testing"

	"github.com/example/task-tracker-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	backend, err := Open(ctx, config.StorageConfig{Driver: config.DriverSQLite, URL: ":memory:"})
	require.NoError(t, err)

	assert.Equal(t, config.DriverSQLite, backend.Driver)
	assert.NotNil(t, backend.Users)
	assert.NotNil(t, backend.Tasks)
	assert.NoError(t, backend.Ping(ctx))
	assert.NoError(t, backend.Close(ctx))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Driver: "cassandra", URL: "x"})
	assert.Error(t, err)
}
