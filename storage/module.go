package storage

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module owns the backend lifecycle inside the mono application.
type Module struct {
	backend *Backend
	logger  types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule wraps an opened backend.
func NewModule(backend *Backend, logger types.Logger) *Module {
	return &Module{
		backend: backend,
		logger:  logger.WithModule("storage"),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "storage"
}

// Start logs the active driver. The backend is opened before registration.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Storage module started", "driver", m.backend.Driver)
	return nil
}

// Stop closes the backend connection.
func (m *Module) Stop(ctx context.Context) error {
	if err := m.backend.Close(ctx); err != nil {
		m.logger.Error("Failed to close storage", "error", err)
		return fmt.Errorf("failed to close storage: %w", err)
	}
	m.logger.Info("Storage module stopped")
	return nil
}

// Health pings the backend.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if err := m.backend.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
			Details: map[string]any{"driver": m.backend.Driver},
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"driver": m.backend.Driver},
	}
}
