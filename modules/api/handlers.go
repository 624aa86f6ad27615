package api

import (
	"context"
	"time"

	"github.com/example/task-tracker-api/domain/apperr"
	domain "github.com/example/task-tracker-api/domain/task"
	"github.com/example/task-tracker-api/modules/activity"
	"github.com/example/task-tracker-api/modules/auth"
	"github.com/example/task-tracker-api/modules/task"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

const msgInvalidBody = "invalid request body"

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	auth     auth.AuthPort
	tasks    task.TaskPort
	activity activity.ActivityPort
	timeout  time.Duration
	logger   types.Logger
}

// NewHandlers creates a new Handlers instance. A nil activity port disables
// the feed route.
func NewHandlers(authPort auth.AuthPort, taskPort task.TaskPort, activityPort activity.ActivityPort, timeout time.Duration, logger types.Logger) *Handlers {
	return &Handlers{
		auth:     authPort,
		tasks:    taskPort,
		activity: activityPort,
		timeout:  timeout,
		logger:   logger,
	}
}

// requestContext bounds a port call by the configured timeout.
func (h *Handlers) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), h.timeout)
}

// writeError maps an error kind to its HTTP status.
func (h *Handlers) writeError(c *fiber.Ctx, err error) error {
	e := apperr.From(err)

	status := fiber.StatusInternalServerError
	switch e.Kind {
	case apperr.KindValidation, apperr.KindDuplicate:
		status = fiber.StatusBadRequest
	case apperr.KindAuthentication:
		status = fiber.StatusUnauthorized
	case apperr.KindNotFound:
		status = fiber.StatusNotFound
	default:
		h.logger.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}

	return c.Status(status).JSON(ErrorResponse{
		Error:   string(e.Kind),
		Message: e.Message,
	})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   string(apperr.KindValidation),
		Message: msgInvalidBody,
	})
}

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	u, err := h.auth.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}

// Login exchanges credentials for a bearer token.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(result)
}

// Me returns the caller's account.
func (h *Handlers) Me(c *fiber.Ctx) error {
	identity, ok := IdentityFrom(c)
	if !ok {
		return unauthorized(c, msgInvalidToken)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	u, err := h.auth.GetUser(ctx, identity.UserID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(u)
}

// CreateTask creates a task owned by the caller.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	identity, ok := IdentityFrom(c)
	if !ok {
		return unauthorized(c, msgInvalidToken)
	}

	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	t, err := h.tasks.Create(ctx, identity.UserID, req.input())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

// ListTasks lists the caller's tasks.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	identity, ok := IdentityFrom(c)
	if !ok {
		return unauthorized(c, msgInvalidToken)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	tasks, err := h.tasks.List(ctx, identity.UserID)
	if err != nil {
		return h.writeError(c, err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return c.JSON(tasks)
}

// TaskStats counts the caller's tasks by status.
func (h *Handlers) TaskStats(c *fiber.Ctx) error {
	identity, ok := IdentityFrom(c)
	if !ok {
		return unauthorized(c, msgInvalidToken)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	stats, err := h.tasks.Stats(ctx, identity.UserID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(stats)
}

// GetTask returns one of the caller's tasks.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	identity, ok := IdentityFrom(c)
	if !ok {
		return unauthorized(c, msgInvalidToken)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	t, err := h.tasks.Get(ctx, c.Params("id"), identity.UserID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(t)
}

// UpdateTask applies a partial update to one of the caller's tasks.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	identity, ok := IdentityFrom(c)
	if !ok {
		return unauthorized(c, msgInvalidToken)
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	t, err := h.tasks.Update(ctx, c.Params("id"), identity.UserID, req.patch())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(t)
}

// DeleteTask deletes one of the caller's tasks.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	identity, ok := IdentityFrom(c)
	if !ok {
		return unauthorized(c, msgInvalidToken)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	deleted, err := h.tasks.Delete(ctx, c.Params("id"), identity.UserID)
	if err != nil {
		return h.writeError(c, err)
	}
	if !deleted {
		return h.writeError(c, domain.ErrNotFound)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Activity returns the caller's recent account and task events.
func (h *Handlers) Activity(c *fiber.Ctx) error {
	identity, ok := IdentityFrom(c)
	if !ok {
		return unauthorized(c, msgInvalidToken)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	entries, err := h.activity.Recent(ctx, identity.UserID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(entries)
}
