package models

import (
	"time"
)

// DefaultTaskTag is stored when no category could be determined
const DefaultTaskTag = "Others"

/** --------------------ENTITIES-------------------- */
// Task is a personal to-do item owned by exactly one user
type Task struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title       string    `gorm:"index;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Completed   bool      `gorm:"default:false" json:"completed"`
	Tags        string    `gorm:"default:Others" json:"tags"`
	OwnerID     string    `gorm:"index;not null" json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

/** -------------------- DTOs -------------------- */
// Request
type CreateTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// UpdateTaskRequest carries only the fields that should change
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Fields returns the column updates for the non-nil fields
func (r *UpdateTaskRequest) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if r.Title != nil {
		fields["title"] = *r.Title
	}
	if r.Description != nil {
		fields["description"] = *r.Description
	}
	if r.Completed != nil {
		fields["completed"] = *r.Completed
	}
	return fields
}

// Response
type TaskListResponse struct {
	Tasks []Task `json:"tasks"`
}

type TaskResponse struct {
	Task *Task `json:"task"`
}
