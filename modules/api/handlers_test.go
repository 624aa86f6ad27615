package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domain "github.com/example/task-tracker-api/domain/task"
	"github.com/example/task-tracker-api/domain/user"
	"github.com/example/task-tracker-api/modules/activity"
	"github.com/example/task-tracker-api/modules/auth"
	"github.com/example/task-tracker-api/modules/task"
	"github.com/example/task-tracker-api/storage/sqlstore"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeActivity struct {
	entries map[string][]activity.Entry
}

func (f *fakeActivity) Recent(_ context.Context, userID string) ([]activity.Entry, error) {
	return f.entries[userID], nil
}

type testServer struct {
	app    *fiber.App
	logger *mockLogger
}

// setupTestServer wires the real services over an in-memory store.
func setupTestServer(t *testing.T, activityPort activity.ActivityPort) *testServer {
	t.Helper()

	store, err := sqlstore.Open(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	logger := &mockLogger{}
	authService := auth.NewAuthService(
		store.Users(),
		auth.NewPasswordHasher(bcrypt.MinCost),
		auth.NewJWTManager(auth.JWTConfig{
			SecretKey: "test-secret-key-that-is-long-enough",
			Issuer:    "test-issuer",
			TTL:       time.Hour,
		}),
	)
	taskService := task.NewTaskService(store.Tasks(), nil, logger)

	handlers := NewHandlers(authService, taskService, activityPort, 5*time.Second, logger)
	return &testServer{app: NewApp(handlers, authService, logger), logger: logger}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			reader = bytes.NewBufferString(raw)
		} else {
			data, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (s *testServer) registerAndLogin(t *testing.T, username, email string) string {
	t.Helper()

	status, body := s.do(t, "POST", "/auth/register", "", RegisterRequest{Username: username, Email: email, Password: "password123"})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = s.do(t, "POST", "/auth/login", "", LoginRequest{Username: username, Password: "password123"})
	require.Equal(t, http.StatusOK, status, string(body))

	var login auth.LoginResult
	require.NoError(t, json.Unmarshal(body, &login))
	require.NotEmpty(t, login.Token)
	return login.Token
}

func decodeError(t *testing.T, body []byte) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e
}

func TestAPI_EndToEnd(t *testing.T) {
	s := setupTestServer(t, nil)

	status, body := s.do(t, "POST", "/auth/register", "", RegisterRequest{Username: "alice", Email: "a@x.com", Password: "password123"})
	require.Equal(t, http.StatusCreated, status, string(body))

	var registered user.PublicUser
	require.NoError(t, json.Unmarshal(body, &registered))
	assert.Equal(t, "alice", registered.Username)
	assert.Equal(t, "a@x.com", registered.Email)
	assert.NotContains(t, string(body), "password")

	status, body = s.do(t, "POST", "/auth/login", "", LoginRequest{Username: "alice", Password: "password123"})
	require.Equal(t, http.StatusOK, status, string(body))
	var login auth.LoginResult
	require.NoError(t, json.Unmarshal(body, &login))
	require.NotNil(t, login.User)
	assert.Equal(t, registered.ID, login.User.ID)
	token := login.Token

	status, body = s.do(t, "GET", "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var me user.PublicUser
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, registered.ID, me.ID)

	status, body = s.do(t, "POST", "/tasks", token, CreateTaskRequest{Title: "t1"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var created domain.Task
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, domain.StatusTodo, created.Status)
	assert.NotContains(t, string(body), "user_id")

	status, body = s.do(t, "GET", "/tasks/stats", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var stats domain.Stats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, domain.Stats{Total: 1, Todo: 1}, stats)

	completed := string(domain.StatusCompleted)
	status, body = s.do(t, "PUT", "/tasks/"+created.ID, token, UpdateTaskRequest{Status: &completed})
	require.Equal(t, http.StatusOK, status, string(body))
	var updated domain.Task
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.Equal(t, "t1", updated.Title)

	status, body = s.do(t, "GET", "/tasks/stats", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, domain.Stats{Total: 1, Completed: 1}, stats)

	status, body = s.do(t, "GET", "/tasks", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var listed []domain.Task
	require.NoError(t, json.Unmarshal(body, &listed))
	assert.Len(t, listed, 1)

	status, _ = s.do(t, "DELETE", "/tasks/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = s.do(t, "GET", "/tasks/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", decodeError(t, body).Error)

	status, body = s.do(t, "GET", "/tasks", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestAPI_CrossOwnerIsolation(t *testing.T) {
	s := setupTestServer(t, nil)
	alice := s.registerAndLogin(t, "alice", "a@x.com")
	bob := s.registerAndLogin(t, "bob", "b@x.com")

	status, body := s.do(t, "POST", "/tasks", alice, CreateTaskRequest{Title: "private"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var created domain.Task
	require.NoError(t, json.Unmarshal(body, &created))

	title := "hijacked"
	tests := []struct {
		name   string
		method string
		body   any
	}{
		{"get", "GET", nil},
		{"update", "PUT", UpdateTaskRequest{Title: &title}},
		{"delete", "DELETE", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := s.do(t, tt.method, "/tasks/"+created.ID, bob, tt.body)
			assert.Equal(t, http.StatusNotFound, status)
		})
	}

	status, body = s.do(t, "GET", "/tasks/"+created.ID, alice, nil)
	require.Equal(t, http.StatusOK, status)
	var got domain.Task
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "private", got.Title)

	status, body = s.do(t, "GET", "/tasks/stats", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"total":0,"todo":0,"in_progress":0,"completed":0}`, string(body))
}

func TestAPI_AuthFailures(t *testing.T) {
	s := setupTestServer(t, nil)
	s.registerAndLogin(t, "alice", "a@x.com")

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       any
		wantStatus int
		wantKind   string
	}{
		{"duplicate username", "POST", "/auth/register", "", RegisterRequest{Username: "alice", Email: "c@x.com", Password: "password123"}, http.StatusBadRequest, "duplicate"},
		{"duplicate email", "POST", "/auth/register", "", RegisterRequest{Username: "carol", Email: "a@x.com", Password: "password123"}, http.StatusBadRequest, "duplicate"},
		{"short password", "POST", "/auth/register", "", RegisterRequest{Username: "carol", Email: "c@x.com", Password: "123"}, http.StatusBadRequest, "validation"},
		{"bad email", "POST", "/auth/register", "", RegisterRequest{Username: "carol", Email: "nope", Password: "password123"}, http.StatusBadRequest, "validation"},
		{"malformed json", "POST", "/auth/register", "", `{"username":`, http.StatusBadRequest, "validation"},
		{"wrong password", "POST", "/auth/login", "", LoginRequest{Username: "alice", Password: "wrong-password"}, http.StatusUnauthorized, "authentication"},
		{"unknown user", "POST", "/auth/login", "", LoginRequest{Username: "nobody", Password: "password123"}, http.StatusUnauthorized, "authentication"},
		{"no token", "GET", "/tasks", "", nil, http.StatusUnauthorized, "authentication"},
		{"garbage token", "GET", "/auth/me", "not-a-jwt", nil, http.StatusUnauthorized, "authentication"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, status, string(body))
			assert.Equal(t, tt.wantKind, decodeError(t, body).Error)
		})
	}
}

func TestAPI_LoginFailuresIndistinguishable(t *testing.T) {
	s := setupTestServer(t, nil)
	s.registerAndLogin(t, "alice", "a@x.com")

	_, wrongPassword := s.do(t, "POST", "/auth/login", "", LoginRequest{Username: "alice", Password: "wrong-password"})
	_, unknownUser := s.do(t, "POST", "/auth/login", "", LoginRequest{Username: "nobody", Password: "password123"})

	assert.JSONEq(t, string(wrongPassword), string(unknownUser))
}

func TestAPI_TaskValidation(t *testing.T) {
	s := setupTestServer(t, nil)
	token := s.registerAndLogin(t, "alice", "a@x.com")

	status, body := s.do(t, "POST", "/tasks", token, CreateTaskRequest{Title: ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", decodeError(t, body).Error)

	status, body = s.do(t, "POST", "/tasks", token, CreateTaskRequest{Title: "t1", Status: "archived"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", decodeError(t, body).Error)

	status, body = s.do(t, "POST", "/tasks", token, CreateTaskRequest{Title: "t1"})
	require.Equal(t, http.StatusCreated, status)
	var created domain.Task
	require.NoError(t, json.Unmarshal(body, &created))

	bad := "archived"
	status, body = s.do(t, "PUT", "/tasks/"+created.ID, token, UpdateTaskRequest{Status: &bad})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", decodeError(t, body).Error)
}

func TestAPI_PublicRoutes(t *testing.T) {
	s := setupTestServer(t, nil)

	status, body := s.do(t, "GET", "/", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Welcome to the Task Management API","docs":"/docs"}`, string(body))

	status, body = s.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"healthy","module":"api"}`, string(body))

	status, body = s.do(t, "GET", "/docs", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "POST /auth/register")

	status, body = s.do(t, "GET", "/activity", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", decodeError(t, body).Error)
}

func TestAPI_Activity(t *testing.T) {
	feed := &fakeActivity{entries: map[string][]activity.Entry{}}
	s := setupTestServer(t, feed)
	token := s.registerAndLogin(t, "alice", "a@x.com")

	status, body := s.do(t, "GET", "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	var me user.PublicUser
	require.NoError(t, json.Unmarshal(body, &me))

	feed.entries[me.ID] = []activity.Entry{{Type: activity.TypeUserRegistered, Message: "Account 'alice' registered"}}

	status, body = s.do(t, "GET", "/activity", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var entries []activity.Entry
	require.NoError(t, json.Unmarshal(body, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, activity.TypeUserRegistered, entries[0].Type)

	status, _ = s.do(t, "GET", "/activity", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}
