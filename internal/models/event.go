package models

import "time"

// TaskEventKind is the mutation that produced a TaskEvent
type TaskEventKind string

const (
	TaskCreated TaskEventKind = "created"
	TaskUpdated TaskEventKind = "updated"
	TaskDeleted TaskEventKind = "deleted"
)

// TaskEvent describes a committed mutation of a task. It is never persisted.
// Deletions carry only TaskID; the other kinds carry the task payload.
type TaskEvent struct {
	Kind       TaskEventKind `json:"kind"`
	OwnerID    string        `json:"owner_id"`
	Task       *Task         `json:"task,omitempty"`
	TaskID     string        `json:"task_id,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

func NewTaskEvent(kind TaskEventKind, task *Task) TaskEvent {
	return TaskEvent{
		Kind:       kind,
		OwnerID:    task.OwnerID,
		Task:       task,
		TaskID:     task.ID,
		OccurredAt: time.Now().UTC(),
	}
}

func NewTaskDeletedEvent(ownerID, taskID string) TaskEvent {
	return TaskEvent{
		Kind:       TaskDeleted,
		OwnerID:    ownerID,
		TaskID:     taskID,
		OccurredAt: time.Now().UTC(),
	}
}
