package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"task-service/internal/models"
	"task-service/pkg/response"
)

// Context keys set by RequireAuth
const (
	ContextIdentity = "identity"
	ContextUserID   = "user_id"
)

// TokenResolver turns a session token into an identity
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*models.Identity, error)
}

type AuthMiddleware struct {
	resolver TokenResolver
}

func NewAuthMiddleware(resolver TokenResolver) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
	}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c.Request)
		if token == "" {
			abortWithCode(c, response.ErrCodeInvalidCredential, "authorization header is required")
			return
		}

		identity, err := am.resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			abortWithCode(c, response.ErrCodeInvalidCredential, "")
			return
		}

		c.Set(ContextIdentity, identity)
		c.Set(ContextUserID, identity.UserID)
		c.Next()
	}
}

// ExtractToken returns the bearer token of r, falling back to the token
// query parameter used by browser websocket clients
func ExtractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return r.URL.Query().Get("token")
}

// IdentityFrom returns the identity stored by RequireAuth
func IdentityFrom(c *gin.Context) (*models.Identity, bool) {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*models.Identity)
	return identity, ok
}

func abortWithCode(c *gin.Context, code int, details string) {
	c.AbortWithStatusJSON(response.HTTPStatus(code), models.ErrorResponse{
		Code:    code,
		Message: response.Message(code),
		Details: details,
	})
}

// Abort is used by handlers to answer with a standard error envelope
func Abort(c *gin.Context, code int) {
	abortWithCode(c, code, "")
}
