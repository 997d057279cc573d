package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds. Every error returned by a service is one of these or wraps one of them,
// so handlers can branch with errors.Is on the kind alone.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict with the current state")
	ErrNotFound     = errors.New("requested resource not found")
	ErrForbidden    = errors.New("operation not allowed for the current user")
	ErrUnauthorized = errors.New("authentication required")
	ErrTransport    = errors.New("storage or upstream unavailable")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Specific errors.
var (
	ErrPoolNotFound       = newKindError(ErrNotFound, "pool not found")
	ErrMatchNotFound      = newKindError(ErrNotFound, "match not found")
	ErrPredictionNotFound = newKindError(ErrNotFound, "prediction not found")
	ErrProfileNotFound    = newKindError(ErrNotFound, "profile not found")
	ErrFeedMatchNotFound  = newKindError(ErrNotFound, "match not found in live feed")

	ErrAlreadyMember        = newKindError(ErrConflict, "user is already a participant of this pool")
	ErrPoolPasswordTaken    = newKindError(ErrConflict, "a pool with this password already exists")
	ErrMatchAlreadyExists   = newKindError(ErrConflict, "this match already exists in the pool")
	ErrMatchAlreadyFinished = newKindError(ErrConflict, "finished matches cannot be changed")
	ErrEmailTaken           = newKindError(ErrConflict, "email address is already in use")

	ErrNotPoolCreator    = newKindError(ErrForbidden, "only the pool creator can perform this action")
	ErrNotParticipant    = newKindError(ErrForbidden, "only pool participants can submit predictions")
	ErrPredictionsClosed = newKindError(ErrForbidden, "predictions are closed for this match")

	ErrInvalidCredentials = newKindError(ErrUnauthorized, "invalid email or password")
	ErrInvalidResetCode   = newKindError(ErrValidation, "invalid or expired reset code")
)

// ValidationError carries per-field messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func fieldError(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// transportError wraps an unexpected storage or upstream failure.
func transportError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}
