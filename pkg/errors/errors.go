// Package errors provides the typed domain errors shared by the upstream
// client, the assignment engine, and the schedule optimizer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common ambient scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// ConfigMissing signals that a required configuration field was absent.
// Fatal at startup.
type ConfigMissing struct {
	Field string
}

func (e *ConfigMissing) Error() string {
	return fmt.Sprintf("config: missing required field %q", e.Field)
}

// UpstreamUnavailable signals a transport failure retried to exhaustion.
type UpstreamUnavailable struct {
	Path string
	Err  error
}

func (e *UpstreamUnavailable) Error() string {
	return fmt.Sprintf("upstream unavailable for %s: %v", e.Path, e.Err)
}

func (e *UpstreamUnavailable) Unwrap() error { return e.Err }

// UpstreamTimeout signals that the per-request deadline elapsed.
type UpstreamTimeout struct {
	Path string
}

func (e *UpstreamTimeout) Error() string {
	return fmt.Sprintf("upstream request timed out: %s", e.Path)
}

// Cancelled signals that the caller's context was cancelled mid-flight.
type Cancelled struct {
	Path string
}

func (e *Cancelled) Error() string {
	return fmt.Sprintf("request cancelled: %s", e.Path)
}

// UpstreamClientError signals a non-429 4xx response.
type UpstreamClientError struct {
	Status int
	Body   string
	Path   string
}

func (e *UpstreamClientError) Error() string {
	return fmt.Sprintf("upstream client error %d for %s: %s", e.Status, e.Path, e.Body)
}

// NotFound specializes UpstreamClientError for HTTP 404 on a detail
// endpoint, so callers can errors.As specifically for it.
type NotFound struct {
	Path string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("not found: %s", e.Path)
}

// WireError signals that a response did not match the expected schema
// under the pinned wire version.
type WireError struct {
	Path  string
	Cause error
}

func (e *WireError) Error() string {
	return fmt.Sprintf("wire error at %s: %v", e.Path, e.Cause)
}

func (e *WireError) Unwrap() error { return e.Cause }

// TrackMismatch signals that the assignment engine's track-coverage
// precondition failed. Fatal for the run.
type TrackMismatch struct {
	OnlyInSubmissions []string
	OnlyInReviewers   []string
}

func (e *TrackMismatch) Error() string {
	return fmt.Sprintf(
		"track mismatch: only in submissions=%v, only in reviewers=%v",
		e.OnlyInSubmissions, e.OnlyInReviewers,
	)
}

// NoSchedule signals that the solver returned infeasible, or exceeded its
// time limit without an incumbent. Fatal for the scheduling run.
type NoSchedule struct {
	Reason string
}

func (e *NoSchedule) Error() string {
	return fmt.Sprintf("no schedule: %s", e.Reason)
}

// HTTPStatus maps a domain error to the HTTP status the admin surface
// should respond with. Unrecognized errors map to 500.
func HTTPStatus(err error) int {
	var configMissing *ConfigMissing
	var upstreamTimeout *UpstreamTimeout
	var cancelled *Cancelled
	var upstreamUnavailable *UpstreamUnavailable
	var notFound *NotFound
	var clientErr *UpstreamClientError
	var wireErr *WireError
	var trackMismatch *TrackMismatch
	var noSchedule *NoSchedule
	var appErr *Error

	switch {
	case errors.As(err, &configMissing):
		return http.StatusInternalServerError
	case errors.As(err, &upstreamTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &cancelled):
		return http.StatusRequestTimeout
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &clientErr):
		return clientErr.Status
	case errors.As(err, &upstreamUnavailable):
		return http.StatusBadGateway
	case errors.As(err, &wireErr):
		return http.StatusBadGateway
	case errors.As(err, &trackMismatch):
		return http.StatusConflict
	case errors.As(err, &noSchedule):
		return http.StatusConflict
	case errors.As(err, &appErr):
		return appErr.Status
	default:
		return http.StatusInternalServerError
	}
}
