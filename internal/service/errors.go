package service

import (
	"errors"
	"fmt"

	"zyllen/internal/repository"

	"github.com/google/uuid"
)

// Sentinel errors returned (wrapped) by every service. Handlers map them to HTTP statuses.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
)

func notFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func transitionError(entity, from, to string) error {
	return fmt.Errorf("%w: %s cannot go from %s to %s", ErrInvalidTransition, entity, from, to)
}

// lookupError converts a repository lookup failure into a service error
func lookupError(err error, entity string) error {
	if repository.IsNotFound(err) {
		return notFound(entity)
	}
	return fmt.Errorf("failed to fetch %s: %w", entity, err)
}

// writeError converts a repository write failure, turning unique violations into conflicts
func writeError(err error, op, entity string) error {
	if repository.IsDuplicate(err) {
		return conflictf("%s already exists", entity)
	}
	if repository.IsForeignKey(err) {
		return conflictf("%s is referenced by other records", entity)
	}
	return fmt.Errorf("failed to %s %s: %w", op, entity, err)
}

func parseID(raw, entity string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, validationf("invalid %s id", entity)
	}
	return id, nil
}

// parseOptionalID treats an empty string as "not set"
func parseOptionalID(raw *string, entity string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := parseID(*raw, entity)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
