package core

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports bad or missing input. Its message is safe to show to the user.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return "invalid input"
	}
	return err.Err.Error()
}

// ConflictError reports a uniqueness violation, e.g. a second active submission for a task.
type ConflictError struct {
	Message string
}

func NewConflictError(msg string) error {
	return &ConflictError{Message: msg}
}

func (err ConflictError) Error() string { return err.Message }

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string
}

func NewNotFoundError(entity string) error {
	return &NotFoundError{Entity: entity}
}

func (err NotFoundError) Error() string { return err.Entity + " not found" }

// InvalidStateError reports a transition attempted from a state that does not allow it.
type InvalidStateError struct {
	Message string
}

func NewInvalidStateError(format string, args ...interface{}) error {
	return &InvalidStateError{Message: fmt.Sprintf(format, args...)}
}

func (err InvalidStateError) Error() string { return err.Message }

// ThrottleError reports a visit-lock violation: a tile was already checked during this visit.
type ThrottleError struct {
	ParticipantID string
	LockedSince   time.Time
}

func NewThrottleError(participantID string, since time.Time) error {
	return &ThrottleError{ParticipantID: participantID, LockedSince: since}
}

func (err ThrottleError) Error() string {
	return `Limit 1 tile per visit. Tap "Start Next Visit" once the guest returns.`
}

// AuthorizationError reports an actor invoking an operation they are not allowed to.
type AuthorizationError struct {
	Message string
}

func NewAuthorizationError(msg string) error {
	return &AuthorizationError{Message: msg}
}

func (err AuthorizationError) Error() string { return err.Message }

// DependencyError reports a failure of an external collaborator (storage, identity, mail).
// It is the only kind worth retrying.
type DependencyError struct {
	Op  string
	Err error
}

func NewDependencyError(op string, err error) error {
	return &DependencyError{Op: op, Err: err}
}

func (err DependencyError) Error() string {
	if err.Err == nil {
		return err.Op + ": dependency failure"
	}
	return err.Op + ": " + err.Err.Error()
}

func (err DependencyError) Unwrap() error { return err.Err }

func IsValidation(err error) bool {
	var vErr *ValidationError
	var fErrs validator.ValidationErrors
	return errors.As(err, &vErr) || errors.As(err, &fErrs)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsInvalidState(err error) bool {
	var target *InvalidStateError
	return errors.As(err, &target)
}

func IsThrottled(err error) bool {
	var target *ThrottleError
	return errors.As(err, &target)
}

func IsUnauthorized(err error) bool {
	var target *AuthorizationError
	return errors.As(err, &target)
}

// IsRetryable tells whether the caller may retry the operation that returned err.
func IsRetryable(err error) bool {
	var target *DependencyError
	return errors.As(err, &target)
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
