package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"task-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memoryStore is an in-memory TaskStore
type memoryStore struct {
	mu        sync.Mutex
	tasks     map[string]models.Task
	createErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{tasks: make(map[string]models.Task)}
}

func (m *memoryStore) List(_ context.Context, ownerID string) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Task, 0)
	for _, task := range m.tasks {
		if task.OwnerID == ownerID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (m *memoryStore) Create(_ context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.tasks[task.ID] = *task
	return nil
}

func (m *memoryStore) Update(_ context.Context, id, ownerID string, fields map[string]interface{}) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	if v, ok := fields["title"]; ok {
		task.Title = v.(string)
	}
	if v, ok := fields["description"]; ok {
		task.Description = v.(string)
	}
	if v, ok := fields["completed"]; ok {
		task.Completed = v.(bool)
	}
	m.tasks[id] = task
	return &task, nil
}

func (m *memoryStore) Delete(_ context.Context, id, ownerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return false, nil
	}
	delete(m.tasks, id)
	return true, nil
}

type staticTagger string

func (s staticTagger) Classify(context.Context, string, string) string { return string(s) }

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.TaskEvent
}

func (r *recordingPublisher) Publish(_ context.Context, event models.TaskEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingPublisher) Events() []models.TaskEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.TaskEvent(nil), r.events...)
}

func TestTaskServiceCreate(t *testing.T) {
	store := newMemoryStore()
	pub := &recordingPublisher{}
	svc := NewTaskService(store, staticTagger("Work"), pub)

	task, err := svc.Create(context.Background(), "alice", &models.CreateTaskRequest{
		Title:       "  Prepare slides ",
		Description: "for monday",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "Prepare slides", task.Title)
	assert.Equal(t, "Work", task.Tags)
	assert.Equal(t, "alice", task.OwnerID)

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.TaskCreated, events[0].Kind)
	assert.Equal(t, "alice", events[0].OwnerID)
	assert.Equal(t, task.ID, events[0].Task.ID)

	tasks, err := svc.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestTaskServiceCreateWithoutTagger(t *testing.T) {
	svc := NewTaskService(newMemoryStore(), nil, nil)

	task, err := svc.Create(context.Background(), "alice", &models.CreateTaskRequest{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultTaskTag, task.Tags)
}

func TestTaskServiceCreateValidation(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewTaskService(newMemoryStore(), staticTagger("Work"), pub)

	_, err := svc.Create(context.Background(), "alice", &models.CreateTaskRequest{Title: "   "})
	assert.ErrorIs(t, err, ErrInvalidTask)
	assert.Empty(t, pub.Events())
}

func TestTaskServiceCreatePersistenceFailure(t *testing.T) {
	store := newMemoryStore()
	store.createErr = errors.New("connection refused")
	pub := &recordingPublisher{}
	svc := NewTaskService(store, staticTagger("Work"), pub)

	_, err := svc.Create(context.Background(), "alice", &models.CreateTaskRequest{Title: "x"})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Empty(t, pub.Events())
}

func TestTaskServiceUpdate(t *testing.T) {
	store := newMemoryStore()
	pub := &recordingPublisher{}
	svc := NewTaskService(store, staticTagger("Work"), pub)
	ctx := context.Background()

	task, err := svc.Create(ctx, "alice", &models.CreateTaskRequest{Title: "x"})
	require.NoError(t, err)

	done := true
	updated, err := svc.Update(ctx, "alice", task.ID, &models.UpdateTaskRequest{Completed: &done})
	require.NoError(t, err)
	assert.True(t, updated.Completed)

	_, err = svc.Update(ctx, "bob", task.ID, &models.UpdateTaskRequest{Completed: &done})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = svc.Update(ctx, "alice", task.ID, &models.UpdateTaskRequest{})
	assert.ErrorIs(t, err, ErrInvalidTask)

	blank := " "
	_, err = svc.Update(ctx, "alice", task.ID, &models.UpdateTaskRequest{Title: &blank})
	assert.ErrorIs(t, err, ErrInvalidTask)

	events := pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, models.TaskUpdated, events[1].Kind)
}

func TestTaskServiceDeleteOtherOwner(t *testing.T) {
	store := newMemoryStore()
	pub := &recordingPublisher{}
	svc := NewTaskService(store, staticTagger("Work"), pub)
	ctx := context.Background()

	task, err := svc.Create(ctx, "alice", &models.CreateTaskRequest{Title: "x"})
	require.NoError(t, err)

	err = svc.Delete(ctx, "bob", task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.Len(t, pub.Events(), 1)

	tasks, _ := store.List(ctx, "alice")
	assert.Len(t, tasks, 1)

	require.NoError(t, svc.Delete(ctx, "alice", task.ID))
	events := pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, models.TaskDeleted, events[1].Kind)
	assert.Equal(t, task.ID, events[1].TaskID)
	assert.Nil(t, events[1].Task)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, 4001, ErrorCode(ErrInvalidCredential))
	assert.Equal(t, 4004, ErrorCode(ErrTaskNotFound))
	assert.Equal(t, 4003, ErrorCode(ErrInvalidTask))
	assert.Equal(t, 5001, ErrorCode(errors.Join(ErrPersistence, errors.New("boom"))))
	assert.Equal(t, 5000, ErrorCode(errors.New("boom")))
}
