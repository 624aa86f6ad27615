// Package activity records a per-user feed of account and task events.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/example/task-tracker-api/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// DefaultLimit is the number of entries kept per user.
const DefaultLimit = 100

// ServiceRecent is the request-reply service returning a user's feed.
const ServiceRecent = "recent-activity"

// Entry types.
const (
	TypeUserRegistered = "user_registered"
	TypeTaskCreated    = "task_created"
	TypeTaskUpdated    = "task_updated"
	TypeTaskDeleted    = "task_deleted"
)

// Entry is one recorded event.
type Entry struct {
	Type      string    `json:"type"`
	TaskID    string    `json:"task_id,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ActivityModule consumes domain events into a bounded in-memory log.
type ActivityModule struct {
	limit   int
	entries map[string][]Entry
	total   int
	mu      sync.RWMutex
	logger  types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*ActivityModule)(nil)
	_ mono.EventConsumerModule   = (*ActivityModule)(nil)
	_ mono.ServiceProviderModule = (*ActivityModule)(nil)
	_ mono.HealthCheckableModule = (*ActivityModule)(nil)
)

// NewModule creates an ActivityModule keeping at most limit entries per user.
// A non-positive limit selects DefaultLimit.
func NewModule(limit int, logger types.Logger) *ActivityModule {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &ActivityModule{
		limit:   limit,
		entries: make(map[string][]Entry),
		logger:  logger.WithModule("activity"),
	}
}

// Name returns the module name.
func (m *ActivityModule) Name() string {
	return "activity"
}

// RegisterEventConsumers subscribes to account and task events.
func (m *ActivityModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.UserRegisteredV1, m.handleUserRegistered, m); err != nil {
		return fmt.Errorf("failed to register UserRegistered consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCreatedV1, m.handleTaskCreated, m); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskUpdatedV1, m.handleTaskUpdated, m); err != nil {
		return fmt.Errorf("failed to register TaskUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskDeletedV1, m.handleTaskDeleted, m); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}

	m.logger.Info("Registered event consumers", "events",
		[]string{"UserRegistered", "TaskCreated", "TaskUpdated", "TaskDeleted"})
	return nil
}

func (m *ActivityModule) handleUserRegistered(_ context.Context, event events.UserRegisteredEvent, _ *mono.Msg) error {
	m.record(event.UserID, Entry{
		Type:      TypeUserRegistered,
		Message:   fmt.Sprintf("Account '%s' registered", event.Username),
		Timestamp: event.RegisteredAt,
	})
	return nil
}

func (m *ActivityModule) handleTaskCreated(_ context.Context, event events.TaskCreatedEvent, _ *mono.Msg) error {
	m.record(event.UserID, Entry{
		Type:      TypeTaskCreated,
		TaskID:    event.TaskID,
		Message:   fmt.Sprintf("Task '%s' created as %s", event.Title, event.Status),
		Timestamp: event.CreatedAt,
	})
	return nil
}

func (m *ActivityModule) handleTaskUpdated(_ context.Context, event events.TaskUpdatedEvent, _ *mono.Msg) error {
	message := fmt.Sprintf("Task %s updated", event.TaskID)
	if len(event.Fields) > 0 {
		message = fmt.Sprintf("Task %s updated (%s), status %s", event.TaskID, strings.Join(event.Fields, ", "), event.Status)
	}
	m.record(event.UserID, Entry{
		Type:      TypeTaskUpdated,
		TaskID:    event.TaskID,
		Message:   message,
		Timestamp: event.UpdatedAt,
	})
	return nil
}

func (m *ActivityModule) handleTaskDeleted(_ context.Context, event events.TaskDeletedEvent, _ *mono.Msg) error {
	m.record(event.UserID, Entry{
		Type:      TypeTaskDeleted,
		TaskID:    event.TaskID,
		Message:   fmt.Sprintf("Task %s deleted", event.TaskID),
		Timestamp: event.DeletedAt,
	})
	return nil
}

// record appends e to the user's log, dropping the oldest entry past the limit.
func (m *ActivityModule) record(userID string, e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	log := append(m.entries[userID], e)
	if len(log) > m.limit {
		log = log[len(log)-m.limit:]
	}
	m.entries[userID] = log
	m.total++

	m.logger.Debug("Recorded activity", "userID", userID, "type", e.Type)
}

// Recent returns the user's entries, oldest first.
func (m *ActivityModule) Recent(userID string) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	log := m.entries[userID]
	result := make([]Entry, len(log))
	copy(result, log)
	return result
}

// RegisterServices registers the feed lookup service.
func (m *ActivityModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRecent, json.Unmarshal, json.Marshal, m.handleRecent,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRecent, err)
	}
	return nil
}

func (m *ActivityModule) handleRecent(_ context.Context, req RecentRequest, _ *mono.Msg) (RecentResponse, error) {
	return RecentResponse{Entries: m.Recent(req.UserID)}, nil
}

// Start starts the module.
func (m *ActivityModule) Start(_ context.Context) error {
	m.logger.Info("Activity module started, listening for events")
	return nil
}

// Stop stops the module.
func (m *ActivityModule) Stop(_ context.Context) error {
	m.logger.Info("Activity module stopped")
	return nil
}

// Health reports how many events were recorded.
func (m *ActivityModule) Health(_ context.Context) mono.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"users":  len(m.entries),
			"events": m.total,
		},
	}
}
