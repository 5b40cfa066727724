package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}
	ErrServiceUnavailable = &AppError{http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service is not ready"}
)
