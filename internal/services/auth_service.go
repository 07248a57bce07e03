package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"task-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// UserLookup confirms that a token subject still exists
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// SessionClaims is the payload of a session token
type SessionClaims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AuthService issues and resolves session tokens
type AuthService struct {
	secret []byte
	ttl    time.Duration
	users  UserLookup
}

// NewAuthService creates the session authenticator. users may be nil, in
// which case identities are taken from the token claims alone.
func NewAuthService(secret string, ttl time.Duration, users UserLookup) *AuthService {
	return &AuthService{
		secret: []byte(secret),
		ttl:    ttl,
		users:  users,
	}
}

// IssueToken creates a signed token for user
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Resolve verifies token and returns the identity it belongs to. Every
// failure is reported as ErrInvalidCredential.
func (s *AuthService) Resolve(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrInvalidCredential)
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		slog.Debug("Rejected session token", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: user_id claim missing", ErrInvalidCredential)
	}

	if s.users == nil {
		return &models.Identity{UserID: claims.UserID, Name: claims.Name, Email: claims.Email}, nil
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		slog.Debug("Token subject not found", "userID", claims.UserID, "error", err)
		return nil, fmt.Errorf("%w: unknown user", ErrInvalidCredential)
	}
	return user.Identity(), nil
}
