package service

import (
	"errors"
	"strings"
)

var (
	ErrIDRequired = errors.New("id is required")
	ErrNotFound   = errors.New("product not found")
	// ErrValidation matches every *ValidationError through errors.Is.
	ErrValidation = errors.New("validation failed")
)

// ValidationError lists the required fields that were missing or blank.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, ", ") + " required"
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
