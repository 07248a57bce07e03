package response

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageAndStatus(t *testing.T) {
	assert.Equal(t, "task not found", Message(ErrCodeTaskNotFound))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrCodeTaskNotFound))
	assert.Equal(t, "invalid credential", Message(ErrCodeInvalidCredential))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(ErrCodeInvalidCredential))

	assert.Equal(t, "internal error", Message(12345))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(12345))
}
