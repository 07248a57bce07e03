package response

import "net/http"

const (
	ErrCodeSuccess           = 2000 // Success
	ErrCodeInvalidCredential = 4001 // Token missing, malformed, expired or unknown user
	ErrCodeParamInvalid      = 4003 // Request body or action payload invalid
	ErrCodeTaskNotFound      = 4004 // Task absent or owned by someone else
	ErrCodeRateLimited       = 4029 // Too many requests
	ErrCodePersistence       = 5001 // Store rejected the write
	ErrCodeInternal          = 5000 // Anything else
)

// message
var msg = map[int]string{
	ErrCodeSuccess:           "success",
	ErrCodeInvalidCredential: "invalid credential",
	ErrCodeParamInvalid:      "protocol error",
	ErrCodeTaskNotFound:      "task not found",
	ErrCodeRateLimited:       "rate limit exceeded",
	ErrCodePersistence:       "failed to save task",
	ErrCodeInternal:          "internal error",
}

var status = map[int]int{
	ErrCodeSuccess:           http.StatusOK,
	ErrCodeInvalidCredential: http.StatusUnauthorized,
	ErrCodeParamInvalid:      http.StatusBadRequest,
	ErrCodeTaskNotFound:      http.StatusNotFound,
	ErrCodeRateLimited:       http.StatusTooManyRequests,
	ErrCodePersistence:       http.StatusInternalServerError,
	ErrCodeInternal:          http.StatusInternalServerError,
}

// Message returns the client-facing text for code
func Message(code int) string {
	if m, ok := msg[code]; ok {
		return m
	}
	return msg[ErrCodeInternal]
}

// HTTPStatus returns the status a REST handler answers with for code
func HTTPStatus(code int) int {
	if s, ok := status[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}
