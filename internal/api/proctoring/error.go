package proctoring

import (
	"ProctorGolang/pkg/response"
	"net/http"
)

var (
	ErrMissingImage        = response.NewError(http.StatusBadRequest, "image is required")
	ErrInvalidImage        = response.NewError(http.StatusBadRequest, "image could not be decoded")
	ErrInvalidEventID      = response.NewError(http.StatusBadRequest, "invalid event id")
	ErrEventNotFound       = response.NewError(http.StatusNotFound, "event not found")
	ErrRecordEvent         = response.NewError(http.StatusInternalServerError, "failed to record event")
	ErrDetectorUnavailable = response.NewError(http.StatusServiceUnavailable, "detector unavailable")
	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "internal server error")
)
