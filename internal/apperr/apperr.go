// Package apperr defines the error kinds surfaced to web, API and tool callers.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies an Error for status mapping.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuth
	KindNotFound
	KindFormat
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindFormat:
		return "format"
	case KindPersistence:
		return "persistence"
	}
	return "unknown"
}

// Error is a classified, caller-safe error. Message never carries the
// underlying cause; Cause is kept for logging only.
type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field messages for form validation failures.
	Fields map[string][]string
	Cause  error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) > 0 {
		return e.fieldSummary()
	}
	return e.Kind.String() + " error"
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) fieldSummary() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(e.Fields[name], ", "))
	}
	return strings.Join(parts, "; ")
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationFields builds a validation error from per-field messages.
func ValidationFields(fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Fields: fields}
}

func Auth(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Format(format string, args ...any) *Error {
	return &Error{Kind: KindFormat, Message: fmt.Sprintf(format, args...)}
}

// Persistence wraps a store failure behind a generic message.
func Persistence(cause error) *Error {
	return &Error{Kind: KindPersistence, Message: "internal server error", Cause: cause}
}

// KindOf returns the kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Is reports whether err is an *Error of kind k.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}

// Status maps err to an HTTP status code. Unclassified errors are 500.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation, KindFormat:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Body is the JSON error payload.
type Body struct {
	Message string              `json:"message"`
	Code    int                 `json:"code"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// BodyOf renders err as a caller-safe payload.
func BodyOf(err error) Body {
	status := Status(err)
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindPersistence {
		return Body{Message: "internal server error", Code: status}
	}
	return Body{Message: e.Error(), Code: status, Errors: e.Fields}
}

// WriteJSON writes err as a {message, code} body with the mapped status.
func WriteJSON(w http.ResponseWriter, err error) {
	body := BodyOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.Code)
	json.NewEncoder(w).Encode(body)
}
