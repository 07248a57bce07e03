package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"task-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskStore persists tasks. Every operation is scoped by owner.
type TaskStore interface {
	List(ctx context.Context, ownerID string) ([]models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, id, ownerID string, fields map[string]interface{}) (*models.Task, error)
	Delete(ctx context.Context, id, ownerID string) (bool, error)
}

// Tagger picks a category for a task. It never fails.
type Tagger interface {
	Classify(ctx context.Context, title, description string) string
}

// EventPublisher receives every committed mutation
type EventPublisher interface {
	Publish(ctx context.Context, event models.TaskEvent)
}

type TaskService struct {
	store     TaskStore
	tagger    Tagger
	publisher EventPublisher
}

func NewTaskService(store TaskStore, tagger Tagger, publisher EventPublisher) *TaskService {
	return &TaskService{
		store:     store,
		tagger:    tagger,
		publisher: publisher,
	}
}

func (s *TaskService) List(ctx context.Context, ownerID string) ([]models.Task, error) {
	tasks, err := s.store.List(ctx, ownerID)
	if err != nil {
		slog.Error("Failed to list tasks", "userID", ownerID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return tasks, nil
}

// Create tags, stores and announces a new task
func (s *TaskService) Create(ctx context.Context, ownerID string, req *models.CreateTaskRequest) (*models.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidTask)
	}

	tag := models.DefaultTaskTag
	if s.tagger != nil {
		tag = s.tagger.Classify(ctx, title, req.Description)
	}

	task := &models.Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: req.Description,
		Completed:   false,
		Tags:        tag,
		OwnerID:     ownerID,
	}
	if err := s.store.Create(ctx, task); err != nil {
		slog.Error("Failed to create task", "userID", ownerID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	slog.Debug("Task created", "taskID", task.ID, "userID", ownerID, "tags", tag)
	s.publish(ctx, models.NewTaskEvent(models.TaskCreated, task))
	return task, nil
}

// Update changes the given fields of a task owned by ownerID
func (s *TaskService) Update(ctx context.Context, ownerID, taskID string, req *models.UpdateTaskRequest) (*models.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("%w: task id is required", ErrInvalidTask)
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrInvalidTask)
	}
	fields := req.Fields()
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidTask)
	}

	task, err := s.store.Update(ctx, taskID, ownerID, fields)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		slog.Error("Failed to update task", "taskID", taskID, "userID", ownerID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.publish(ctx, models.NewTaskEvent(models.TaskUpdated, task))
	return task, nil
}

// Delete removes a task owned by ownerID. Tasks of other users are reported
// as not found and left untouched.
func (s *TaskService) Delete(ctx context.Context, ownerID, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("%w: task id is required", ErrInvalidTask)
	}

	removed, err := s.store.Delete(ctx, taskID, ownerID)
	if err != nil {
		slog.Error("Failed to delete task", "taskID", taskID, "userID", ownerID, "error", err)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !removed {
		return ErrTaskNotFound
	}

	s.publish(ctx, models.NewTaskDeletedEvent(ownerID, taskID))
	return nil
}

func (s *TaskService) publish(ctx context.Context, event models.TaskEvent) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, event)
}
