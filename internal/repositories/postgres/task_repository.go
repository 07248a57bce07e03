package postgres

import (
	"context"
	"fmt"

	"task-service/internal/models"

	"gorm.io/gorm"
)

// TaskRepository is the task store. Every query is filtered by owner.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db}
}

func (r *TaskRepository) List(ctx context.Context, ownerID string) ([]models.Task, error) {
	tasks := make([]models.Task, 0)
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at").
		Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// Update applies fields to the task and returns the stored row.
// It returns gorm.ErrRecordNotFound when the task does not exist for ownerID.
func (r *TaskRepository) Update(ctx context.Context, id, ownerID string, fields map[string]interface{}) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&task).Error; err != nil {
			return err
		}
		if err := tx.Model(&task).Updates(fields).Error; err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Delete reports whether a task owned by ownerID was removed
func (r *TaskRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&models.Task{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
