package services

import (
	"errors"

	"task-service/pkg/response"
)

// Custom errors
var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrTaskNotFound      = errors.New("task not found")
	ErrPersistence       = errors.New("persistence failure")
	ErrInvalidTask       = errors.New("invalid task")
)

// ErrorCode maps a service error onto the reply code shown to clients
func ErrorCode(err error) int {
	switch {
	case err == nil:
		return response.ErrCodeSuccess
	case errors.Is(err, ErrInvalidCredential):
		return response.ErrCodeInvalidCredential
	case errors.Is(err, ErrTaskNotFound):
		return response.ErrCodeTaskNotFound
	case errors.Is(err, ErrInvalidTask):
		return response.ErrCodeParamInvalid
	case errors.Is(err, ErrPersistence):
		return response.ErrCodePersistence
	default:
		return response.ErrCodeInternal
	}
}
