package services

import (
	"context"
	"testing"
	"time"

	"task-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUsers map[string]*models.User

func (f fakeUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func TestAuthServiceIssueAndResolve(t *testing.T) {
	users := fakeUsers{"u1": {ID: "u1", Name: "Ada", Email: "ada@example.com"}}
	auth := NewAuthService("test-secret", time.Hour, users)

	token, err := auth.IssueToken(users["u1"])
	require.NoError(t, err)

	identity, err := auth.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &models.Identity{UserID: "u1", Name: "Ada", Email: "ada@example.com"}, identity)
}

func TestAuthServiceResolveWithoutLookup(t *testing.T) {
	auth := NewAuthService("test-secret", time.Hour, nil)
	token, err := auth.IssueToken(&models.User{ID: "u2", Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)

	identity, err := auth.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u2", identity.UserID)
	assert.Equal(t, "Bob", identity.Name)
}

func TestAuthServiceRejectsBadTokens(t *testing.T) {
	users := fakeUsers{"u1": {ID: "u1", Email: "ada@example.com"}}
	auth := NewAuthService("test-secret", time.Hour, users)

	sign := func(method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	cases := map[string]string{
		"empty":     "",
		"malformed": "not-a-jwt",
		"wrong secret": sign(jwt.SigningMethodHS256, []byte("other-secret"), SessionClaims{
			UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
		}),
		"expired": sign(jwt.SigningMethodHS256, []byte("test-secret"), SessionClaims{
			UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: past},
		}),
		"no expiry": sign(jwt.SigningMethodHS256, []byte("test-secret"), SessionClaims{
			UserID: "u1",
		}),
		"unsigned": sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, SessionClaims{
			UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
		}),
		"other hmac": sign(jwt.SigningMethodHS512, []byte("test-secret"), SessionClaims{
			UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
		}),
		"missing user id": sign(jwt.SigningMethodHS256, []byte("test-secret"), SessionClaims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
		}),
		"unknown user": sign(jwt.SigningMethodHS256, []byte("test-secret"), SessionClaims{
			UserID: "ghost", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future},
		}),
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			identity, err := auth.Resolve(context.Background(), token)
			assert.Nil(t, identity)
			assert.ErrorIs(t, err, ErrInvalidCredential)
		})
	}
}
