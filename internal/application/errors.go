package application

import (
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/readify/internal/domain"
)

var (
	ErrRepository   = errors.New("repository failure")
	ErrForbidden    = domain.NewError(domain.ErrForbidden, "FORBIDDEN", "you do not have permission to perform this action")
	ErrUnauthorized = domain.NewError(domain.ErrUnauthorized, "UNAUTHORIZED", "authentication required")
	errValidation   = domain.NewError(domain.ErrInvalid, "VALIDATION_ERROR", "validation failed")
)

// NewValidation builds an input validation error.
func NewValidation(msg string) error {
	return errValidation.Withf("%s", msg)
}

// WrapRepositoryError keeps domain errors intact and tags everything else as a repository failure.
func WrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if domain.HasKind(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRepository, err)
}

// StatusOf is the status text recorded for a failed use case.
func StatusOf(err error) string {
	if code := domain.CodeOf(err); code != "" {
		return code
	}
	if errors.Is(err, ErrRepository) {
		return "REPOSITORY_ERROR"
	}
	return "INTERNAL_ERROR"
}
