package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/taskdeck/apiserver/internal/handlers"
	"github.com/taskdeck/apiserver/internal/notify"
	"github.com/taskdeck/apiserver/internal/services"
	"github.com/taskdeck/apiserver/internal/store"
	"github.com/taskdeck/apiserver/types"
)

const testJWTSecret = "test-secret"

// memState is shared in-memory backing storage for the repository fakes.
type memState struct {
	mu         sync.Mutex
	users      map[int]types.User
	nextUserID int
	tasks      map[int]types.Task
	nextTaskID int
	avatars    map[int][]byte
	tokens     map[int]map[string]bool
}

func newMemState() *memState {
	return &memState{
		users:      make(map[int]types.User),
		nextUserID: 1,
		tasks:      make(map[int]types.Task),
		nextTaskID: 1,
		avatars:    make(map[int][]byte),
		tokens:     make(map[int]map[string]bool),
	}
}

type fakeUsers struct{ state *memState }

func (f *fakeUsers) GetByID(ctx context.Context, id int) (types.User, error) {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	user, ok := f.state.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (types.User, error) {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	for _, user := range f.state.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUsers) Create(ctx context.Context, user types.User) (types.User, error) {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	for _, existing := range f.state.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicateEmail
		}
	}
	user.ID = f.state.nextUserID
	f.state.nextUserID++
	f.state.users[user.ID] = user
	return user, nil
}

func (f *fakeUsers) Update(ctx context.Context, user types.User) (types.User, error) {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	if _, ok := f.state.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	for id, existing := range f.state.users {
		if id != user.ID && existing.Email == user.Email {
			return types.User{}, store.ErrDuplicateEmail
		}
	}
	f.state.users[user.ID] = user
	return user, nil
}

func (f *fakeUsers) Delete(ctx context.Context, id int) error {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	if _, ok := f.state.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.state.users, id)
	delete(f.state.avatars, id)
	return nil
}

func (f *fakeUsers) GetAvatar(ctx context.Context, id int) ([]byte, error) {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	avatar, ok := f.state.avatars[id]
	if !ok || len(avatar) == 0 {
		return nil, store.ErrNotFound
	}
	return avatar, nil
}

func (f *fakeUsers) SetAvatar(ctx context.Context, id int, avatar []byte) error {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	if _, ok := f.state.users[id]; !ok {
		return store.ErrNotFound
	}
	if avatar == nil {
		delete(f.state.avatars, id)
		return nil
	}
	f.state.avatars[id] = avatar
	return nil
}

type fakeTasks struct{ state *memState }

func (f *fakeTasks) GetByID(ctx context.Context, owner, id int) (types.Task, error) {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	task, ok := f.state.tasks[id]
	if !ok || task.Owner != owner {
		return types.Task{}, store.ErrNotFound
	}
	return task, nil
}

func (f *fakeTasks) List(ctx context.Context, owner int, filter types.TaskFilter) ([]types.Task, error) {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	tasks := make([]types.Task, 0)
	for _, task := range f.state.tasks {
		if task.Owner != owner {
			continue
		}
		if filter.Completed != nil && task.Completed != *filter.Completed {
			continue
		}
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		var less bool
		switch filter.SortField {
		case "description":
			less = tasks[i].Description < tasks[j].Description
		case "completed":
			less = !tasks[i].Completed && tasks[j].Completed
		case "createdAt":
			less = tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		case "updatedAt":
			less = tasks[i].UpdatedAt.Before(tasks[j].UpdatedAt)
		default:
			return tasks[i].ID < tasks[j].ID
		}
		if filter.SortDesc {
			return !less
		}
		return less
	})
	if filter.Skip > 0 {
		if filter.Skip >= len(tasks) {
			return []types.Task{}, nil
		}
		tasks = tasks[filter.Skip:]
	}
	if filter.Limit > 0 && filter.Limit < len(tasks) {
		tasks = tasks[:filter.Limit]
	}
	return tasks, nil
}

func (f *fakeTasks) Create(ctx context.Context, task types.Task) (types.Task, error) {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	task.ID = f.state.nextTaskID
	f.state.nextTaskID++
	f.state.tasks[task.ID] = task
	return task, nil
}

func (f *fakeTasks) Update(ctx context.Context, task types.Task) (types.Task, error) {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	existing, ok := f.state.tasks[task.ID]
	if !ok || existing.Owner != task.Owner {
		return types.Task{}, store.ErrNotFound
	}
	f.state.tasks[task.ID] = task
	return task, nil
}

func (f *fakeTasks) Delete(ctx context.Context, owner, id int) error {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	task, ok := f.state.tasks[id]
	if !ok || task.Owner != owner {
		return store.ErrNotFound
	}
	delete(f.state.tasks, id)
	return nil
}

func (f *fakeTasks) DeleteByOwner(ctx context.Context, owner int) error {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	for id, task := range f.state.tasks {
		if task.Owner == owner {
			delete(f.state.tasks, id)
		}
	}
	return nil
}

type fakeTokens struct{ state *memState }

func (f *fakeTokens) Add(ctx context.Context, userID int, token string) error {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	if f.state.tokens[userID] == nil {
		f.state.tokens[userID] = make(map[string]bool)
	}
	f.state.tokens[userID][token] = true
	return nil
}

func (f *fakeTokens) Exists(ctx context.Context, userID int, token string) (bool, error) {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	return f.state.tokens[userID][token], nil
}

func (f *fakeTokens) Remove(ctx context.Context, userID int, token string) error {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	if !f.state.tokens[userID][token] {
		return store.ErrNotFound
	}
	delete(f.state.tokens[userID], token)
	return nil
}

func (f *fakeTokens) RemoveAll(ctx context.Context, userID int) error {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	delete(f.state.tokens, userID)
	return nil
}

func (f *fakeTokens) count(userID int) int {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	return len(f.state.tokens[userID])
}

// capturePublisher records published notification events.
type capturePublisher struct {
	mu     sync.Mutex
	events []notify.AccountEvent
	done   chan struct{}
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{done: make(chan struct{}, 16)}
}

func (p *capturePublisher) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	var event notify.AccountEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return "", err
	}
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	p.done <- struct{}{}
	return event.Event, nil
}

func (p *capturePublisher) captured() []notify.AccountEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notify.AccountEvent(nil), p.events...)
}

// testAPI bundles a fully wired router with its backing fakes.
type testAPI struct {
	router    *chi.Mux
	state     *memState
	tokens    *fakeTokens
	publisher *capturePublisher
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	state := newMemState()
	users := &fakeUsers{state: state}
	tasks := &fakeTasks{state: state}
	tokens := &fakeTokens{state: state}

	userService := services.NewUserService(users, tasks, tokens)
	taskService := services.NewTaskService(tasks)
	sessionService := services.NewSessionService(tokens)

	auth := handlers.NewAuthenticator(userService, sessionService, testJWTSecret)
	publisher := newCapturePublisher()
	notifier := notify.NewAccountNotifier(publisher, "account-events")

	router := chi.NewRouter()
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, sessionService, auth, notifier)
	})
	router.Route("/tasks", func(r chi.Router) {
		handlers.TaskRouter(r, taskService, auth)
	})

	return &testAPI{
		router:    router,
		state:     state,
		tokens:    tokens,
		publisher: publisher,
	}
}

func (api *testAPI) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	api.router.ServeHTTP(recorder, req)
	return recorder
}

func (api *testAPI) register(t *testing.T, name, email, password string) handlers.AuthResponse {
	t.Helper()

	recorder := api.do(t, http.MethodPost, "/users", "", map[string]any{
		"name":     name,
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var resp handlers.AuthResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp
}

func (api *testAPI) createTask(t *testing.T, token, description string) types.Task {
	t.Helper()

	recorder := api.do(t, http.MethodPost, "/tasks", token, map[string]any{
		"description": description,
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var task types.Task
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &task))
	return task
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func (api *testAPI) doMultipart(t *testing.T, target, token, field, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartBody(t, field, filename, data)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	api.router.ServeHTTP(recorder, req)
	return recorder
}
