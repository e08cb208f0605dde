package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrFileNotFound    = fmt.Errorf("%w: file", ErrNotFound)
	ErrDatasetNotFound = fmt.Errorf("%w: dataset", ErrNotFound)
	ErrQueryNotFound   = fmt.Errorf("%w: query", ErrNotFound)
	ErrColumnNotFound  = fmt.Errorf("%w: column", ErrNotFound)

	// Ingestion errors
	ErrUnreadableFile   = errors.New("file could not be read")
	ErrUnsupportedType  = errors.New("unsupported file type")
	ErrFileTooLarge     = errors.New("file exceeds size ceiling")
	ErrEmptySheet       = errors.New("sheet has no usable rows or columns")
	ErrIngestionRunning = errors.New("ingestion already running for file")

	// Query pipeline errors
	ErrClassificationFailed = errors.New("question could not be classified")
	ErrCompilationFailed    = errors.New("intent cannot be compiled against schema")
	ErrExecutionFailed      = errors.New("query plan execution failed")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewCompilationError names the unsatisfiable requirement so the message can be
// surfaced to the user verbatim.
func NewCompilationError(requirement string) error {
	return fmt.Errorf("%w: %s", ErrCompilationFailed, requirement)
}

func NewEmptySheetError(sheetName string) error {
	return fmt.Errorf("%w: %q", ErrEmptySheet, sheetName)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsIngestionError(err error) bool {
	return errors.Is(err, ErrUnreadableFile) ||
		errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrEmptySheet)
}

func IsCompilationError(err error) bool {
	return errors.Is(err, ErrCompilationFailed)
}

func IsClassificationError(err error) bool {
	return errors.Is(err, ErrClassificationFailed)
}
