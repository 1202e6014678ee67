// Package apperr defines the domain error taxonomy shared by all handlers.
// Every scheduling failure is a per-request domain error; nothing here is
// fatal to the process.
package apperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies a domain error
type Kind int

const (
	// KindValidation is a malformed payload: bad date format, missing field
	KindValidation Kind = iota
	// KindPermission means the caller is not allowed to act on this resource
	KindPermission
	// KindStageGuard means the action is illegal in the current trip/funnel stage
	KindStageGuard
	// KindNotFound means the resource is absent or invisible to the caller
	KindNotFound
	// KindConflict means the mutation collides with existing state
	KindConflict
)

// Error is a domain error with an HTTP-mappable kind and optional detail
// payload returned alongside the message (e.g. proposal-readiness numbers).
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string {
	return e.Message
}

// New creates a domain error
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validation creates a validation error
func Validation(message string) *Error { return New(KindValidation, message) }

// Permission creates a permission error
func Permission(message string) *Error { return New(KindPermission, message) }

// StageGuard creates a stage-guard error naming the required stage
func StageGuard(message string) *Error { return New(KindStageGuard, message) }

// NotFound creates a not-found error
func NotFound(message string) *Error { return New(KindNotFound, message) }

// Conflict creates a conflict error
func Conflict(message string) *Error { return New(KindConflict, message) }

// WithDetails attaches a detail payload and returns the error
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// Status maps the error kind to an HTTP status code
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindPermission:
		return http.StatusForbidden
	case KindStageGuard:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err to the response. Domain errors map to their kind's
// status; anything else becomes a 500 without leaking internals.
func Respond(c *gin.Context, err error) {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		body := gin.H{"error": domainErr.Message}
		for k, v := range domainErr.Details {
			body[k] = v
		}
		c.JSON(domainErr.Status(), body)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
