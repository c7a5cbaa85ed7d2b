package engine

import (
	"errors"
	"fmt"
	"strconv"
)

// NotFoundError means the entity does not exist or is not owned by the caller.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func notFound(kind string, id int64) NotFoundError {
	return NotFoundError{Kind: kind, ID: strconv.FormatInt(id, 10)}
}

// InvalidStateError means the operation does not apply to the current state,
// e.g. stopping a study session when none is running.
type InvalidStateError struct {
	Op     string
	Reason string
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsNotFound(err error) bool {
	var e NotFoundError
	return errors.As(err, &e)
}

func IsInvalidState(err error) bool {
	var e InvalidStateError
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e ValidationError
	return errors.As(err, &e)
}
