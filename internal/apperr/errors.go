// Package apperr defines the error taxonomy shared by the services and the HTTP layer.
// Each type maps to exactly one HTTP status through Status.
package apperr

import (
	"errors"
	"net/http"
	"sort"
	"strings"
)

// GenericMessage is the only text a caller sees for unexpected failures.
const GenericMessage = "An unexpected error occurred. Please try again."

var (
	ErrNotFound        = errors.New("Not found")
	ErrUnauthenticated = errors.New("Not authenticated")
	ErrTooManyRequests = errors.New("Too many requests, please try again later")
)

// ValidationError carries field-keyed, human-readable messages.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

// Validation builds a ValidationError with a general message and optional field messages.
func Validation(message string, fields map[string]string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// ConflictError reports a duplicate value of a unique identifying field.
type ConflictError struct {
	Field   string
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// AuthenticationError reports a failed login attributed to one request field.
type AuthenticationError struct {
	Field   string
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

// ForbiddenError reports an authenticated caller acting on someone else's data.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// UnexpectedError wraps a cause that must be logged but never shown to the caller.
// Public, when set, replaces GenericMessage in responses.
type UnexpectedError struct {
	Op     string
	Public string
	Err    error
}

func (e *UnexpectedError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *UnexpectedError) Unwrap() error { return e.Err }

// Unexpected wraps err unless it already belongs to the taxonomy.
func Unexpected(op string, err error) error {
	if Classified(err) {
		return err
	}
	return &UnexpectedError{Op: op, Err: err}
}

// Failed is Unexpected with a caller-facing message of its own.
func Failed(public, op string, err error) error {
	if Classified(err) {
		return err
	}
	return &UnexpectedError{Op: op, Public: public, Err: err}
}

// Classified reports whether err maps to a status other than 500.
func Classified(err error) bool {
	return Status(err) != http.StatusInternalServerError
}

// Status maps err to its HTTP status code.
func Status(err error) int {
	var (
		validation *ValidationError
		conflict   *ConflictError
		auth       *AuthenticationError
		forbidden  *ForbiddenError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &auth), errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text that may be shown to the caller.
func PublicMessage(err error) string {
	var validation *ValidationError
	if errors.As(err, &validation) {
		if validation.Message != "" {
			return validation.Message
		}
		return "Validation failed"
	}
	if Status(err) == http.StatusInternalServerError {
		var unexpected *UnexpectedError
		if errors.As(err, &unexpected) && unexpected.Public != "" {
			return unexpected.Public
		}
		return GenericMessage
	}
	return err.Error()
}

// FieldErrors returns the per-field messages carried by err, if any.
func FieldErrors(err error) map[string]string {
	var (
		validation *ValidationError
		conflict   *ConflictError
		auth       *AuthenticationError
	)
	switch {
	case errors.As(err, &validation):
		return validation.Fields
	case errors.As(err, &conflict):
		return map[string]string{"general": conflict.Message}
	case errors.As(err, &auth):
		return map[string]string{auth.Field: auth.Message}
	}
	return nil
}
