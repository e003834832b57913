// Package server exposes SpaniSami UI sessions over HTTP.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/spanisami/internal/auth"
	"github.com/jonathan/spanisami/internal/backend"
	"github.com/jonathan/spanisami/internal/cvflow"
	"github.com/jonathan/spanisami/internal/ingest"
	"github.com/jonathan/spanisami/internal/jobscanner"
	"github.com/jonathan/spanisami/internal/rendering"
	"github.com/jonathan/spanisami/internal/router"
	"github.com/jonathan/spanisami/internal/schemas"
	"github.com/jonathan/spanisami/internal/voice"
)

// ErrSessionNotFound means the token names a session this server no longer holds.
var ErrSessionNotFound = errors.New("session not found")

// ErrValidation indicates a malformed request.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

var (
	badRequest = []error{
		cvflow.ErrEmptyInput, cvflow.ErrNoProfile, cvflow.ErrNoCV,
		auth.ErrInvalidPassword,
		jobscanner.ErrInvalidRadius,
		router.ErrUnknownSection,
		ingest.ErrNoText,
	}
	conflict = []error{
		cvflow.ErrBusy, voice.ErrBusy, auth.ErrBusy,
		auth.ErrWrongStep, auth.ErrNoPendingSignup,
		jobscanner.ErrNotInitialized,
	}
	unauthorized = []error{
		backend.ErrCodeMismatch, auth.ErrInvalidCredentials, ErrSessionNotFound,
	}
	unavailable = []error{
		cvflow.ErrRendererUnavailable, rendering.ErrEngineUnavailable,
		voice.ErrUnsupported, voice.ErrEngineUnsupported,
		jobscanner.ErrMapUnavailable, jobscanner.ErrGeolocationUnsupported,
	}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// HTTPStatus returns the status code for an error returned by a controller.
func HTTPStatus(err error) int {
	var validation *ErrValidation
	var fields validator.ValidationErrors
	var schemaErr *schemas.ValidationError
	var backendErr *backend.Error

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation), errors.As(err, &fields), errors.As(err, &schemaErr), isAny(err, badRequest):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, jobscanner.ErrUnknownJob):
		return http.StatusNotFound
	case isAny(err, unauthorized):
		return http.StatusUnauthorized
	case isAny(err, conflict):
		return http.StatusConflict
	case isAny(err, unavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &backendErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
