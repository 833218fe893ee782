package controlplane

import (
	"errors"
	"net/http"
)

// Sentinel errors for control plane operations.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidPlan   = errors.New("invalid plan")
	ErrBadRequest    = errors.New("bad request")
	ErrDriverStopped = errors.New("driver stopped")
)

// statusFor maps an operation error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidPlan), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrDriverStopped):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
