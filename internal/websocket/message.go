package websocket

import (
	"encoding/json"
	"fmt"
	"strings"

	"task-service/internal/models"
)

// Inbound actions
const (
	ActionGetTasks   = "get_tasks"
	ActionListTasks  = "list_tasks"
	ActionAddTask    = "add_task"
	ActionCreateTask = "create_task"
	ActionUpdateTask = "update_task"
	ActionDeleteTask = "delete_task"
)

// Outbound events
const (
	EventTaskList      = "task_list"
	EventTaskCreated   = "task_created"
	EventTaskUpdated   = "task_updated"
	EventTaskDeleted   = "task_deleted"
	EventAuthenticated = "authenticated"
)

// InboundMessage is one client frame
type InboundMessage struct {
	Action string       `json:"action"`
	Token  string       `json:"token,omitempty"`
	Task   *TaskPayload `json:"task,omitempty"`
	TaskID string       `json:"task_id,omitempty"`
}

// TaskPayload carries the task fields of add_task and update_task
type TaskPayload struct {
	ID          string  `json:"id,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// ParseInbound decodes a frame. Anything that is not a JSON object is a
// protocol error.
func ParseInbound(data []byte) (*InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	msg.Action = strings.TrimSpace(msg.Action)
	return &msg, nil
}

// TargetID returns task_id, falling back to task.id
func (m *InboundMessage) TargetID() string {
	if m.TaskID != "" {
		return m.TaskID
	}
	if m.Task != nil {
		return m.Task.ID
	}
	return ""
}

// CreateRequest validates the payload of add_task
func (m *InboundMessage) CreateRequest() (*models.CreateTaskRequest, error) {
	if m.Task == nil || m.Task.Title == nil || strings.TrimSpace(*m.Task.Title) == "" {
		return nil, fmt.Errorf("%w: task.title is required", ErrProtocol)
	}

	req := &models.CreateTaskRequest{Title: strings.TrimSpace(*m.Task.Title)}
	if m.Task.Description != nil {
		req.Description = *m.Task.Description
	}
	return req, nil
}

// UpdateRequest validates the payload of update_task
func (m *InboundMessage) UpdateRequest() (*models.UpdateTaskRequest, error) {
	if m.TargetID() == "" {
		return nil, fmt.Errorf("%w: task_id is required", ErrProtocol)
	}
	if m.Task == nil {
		return nil, fmt.Errorf("%w: task is required", ErrProtocol)
	}

	req := &models.UpdateTaskRequest{
		Title:       m.Task.Title,
		Description: m.Task.Description,
		Completed:   m.Task.Completed,
	}
	if len(req.Fields()) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrProtocol)
	}
	return req, nil
}

type TaskListMessage struct {
	Event string        `json:"event"`
	Tasks []models.Task `json:"tasks"`
}

type TaskMessage struct {
	Event string       `json:"event"`
	Task  *models.Task `json:"task"`
}

type TaskDeletedMessage struct {
	Event  string `json:"event"`
	TaskID string `json:"task_id"`
}

type AuthenticatedMessage struct {
	Event string           `json:"event"`
	User  *models.Identity `json:"user"`
}

type ErrorMessage struct {
	Error string `json:"error"`
}

func NewTaskListMessage(tasks []models.Task) *TaskListMessage {
	if tasks == nil {
		tasks = []models.Task{}
	}
	return &TaskListMessage{Event: EventTaskList, Tasks: tasks}
}

// EncodeEvent renders a mutation event as the frame clients receive
func EncodeEvent(event models.TaskEvent) ([]byte, error) {
	switch event.Kind {
	case models.TaskCreated:
		return json.Marshal(TaskMessage{Event: EventTaskCreated, Task: event.Task})
	case models.TaskUpdated:
		return json.Marshal(TaskMessage{Event: EventTaskUpdated, Task: event.Task})
	case models.TaskDeleted:
		return json.Marshal(TaskDeletedMessage{Event: EventTaskDeleted, TaskID: event.TaskID})
	default:
		return nil, fmt.Errorf("unknown task event kind %q", event.Kind)
	}
}
