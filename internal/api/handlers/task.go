package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"task-service/internal/api/middleware"
	"task-service/internal/models"
	"task-service/internal/services"
	"task-service/internal/websocket"
	"task-service/pkg/response"
)

type TaskHandler struct {
	tasks websocket.TaskManager
}

func NewTaskHandler(tasks websocket.TaskManager) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// GetTasks godoc
// @Summary List tasks
// @Description List the tasks of the current user, oldest first
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.TaskListResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /tasks [get]
func (h *TaskHandler) GetTasks(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	tasks, err := h.tasks.List(c.Request.Context(), userID)
	if err != nil {
		middleware.Abort(c, services.ErrorCode(err))
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	c.JSON(http.StatusOK, models.TaskListResponse{Tasks: tasks})
}

// CreateTask godoc
// @Summary Create a task
// @Description Create a task; connected clients receive task_created
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateTaskRequest true "Task data"
// @Success 201 {object} models.TaskResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Abort(c, response.ErrCodeParamInvalid)
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), c.GetString(middleware.ContextUserID), &req)
	if err != nil {
		middleware.Abort(c, services.ErrorCode(err))
		return
	}

	c.JSON(http.StatusCreated, models.TaskResponse{Task: task})
}

// UpdateTask godoc
// @Summary Update a task
// @Description Change title, description or completion; connected clients receive task_updated
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param request body models.UpdateTaskRequest true "Fields to change"
// @Success 200 {object} models.TaskResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req models.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Abort(c, response.ErrCodeParamInvalid)
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), c.GetString(middleware.ContextUserID), c.Param("id"), &req)
	if err != nil {
		middleware.Abort(c, services.ErrorCode(err))
		return
	}

	c.JSON(http.StatusOK, models.TaskResponse{Task: task})
}

// DeleteTask godoc
// @Summary Delete a task
// @Tags tasks
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.tasks.Delete(c.Request.Context(), c.GetString(middleware.ContextUserID), c.Param("id")); err != nil {
		middleware.Abort(c, services.ErrorCode(err))
		return
	}

	c.Status(http.StatusNoContent)
}
