package service

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the services. Callers match them with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrSlotUnavailable   = errors.New("slot unavailable")
	ErrValidationFailed  = errors.New("validation failed")
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenAlreadyUsed  = errors.New("token already used")
	ErrDependencyFailure = errors.New("dependency failure")
	ErrStorageFailure    = errors.New("storage failure")
)

var kinds = []error{
	ErrNotFound,
	ErrSlotUnavailable,
	ErrValidationFailed,
	ErrInvalidToken,
	ErrTokenExpired,
	ErrTokenAlreadyUsed,
	ErrDependencyFailure,
	ErrStorageFailure,
}

// Kind returns the error kind carried by err, or nil for unknown errors
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// storageErr оборачивает ошибку репозитория; уже классифицированные ошибки не трогает
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != nil {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, ErrNotFound)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, fmt.Sprintf(format, args...))
}
