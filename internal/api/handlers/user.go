package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"task-service/internal/api/middleware"
	"task-service/internal/models"
	"task-service/pkg/response"
)

// UserFinder loads the stored profile of a user
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// PresenceChecker reports whether a user has a live connection anywhere
type PresenceChecker interface {
	IsUserOnline(ctx context.Context, userID string) (bool, error)
}

type UserHandler struct {
	users    UserFinder
	presence PresenceChecker
}

func NewUserHandler(users UserFinder, presence PresenceChecker) *UserHandler {
	return &UserHandler{users: users, presence: presence}
}

type meResponse struct {
	models.UserResponse
	Online bool `json:"online"`
}

// GetMe godoc
// @Summary Current user
// @Description Profile of the user the session token belongs to
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		middleware.Abort(c, response.ErrCodeInvalidCredential)
		return
	}

	resp := meResponse{UserResponse: models.UserResponse{
		ID:    identity.UserID,
		Name:  identity.Name,
		Email: identity.Email,
	}}

	if h.users != nil {
		user, err := h.users.FindByID(c.Request.Context(), identity.UserID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			middleware.Abort(c, response.ErrCodeInvalidCredential)
			return
		case err != nil:
			middleware.Abort(c, response.ErrCodeInternal)
			return
		}
		resp.UserResponse = user.Response()
	}

	if h.presence != nil {
		// presence is informational; a redis error just reports offline
		resp.Online, _ = h.presence.IsUserOnline(c.Request.Context(), identity.UserID)
	}

	c.JSON(http.StatusOK, resp)
}
