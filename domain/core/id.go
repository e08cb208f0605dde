package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	FileID    ID
	DatasetID ID
	QueryID   ID
)

// String conversions for domain IDs
func (id FileID) String() string    { return ID(id).String() }
func (id DatasetID) String() string { return ID(id).String() }
func (id QueryID) String() string   { return ID(id).String() }

// ParseFileID parses a string into FileID
func ParseFileID(s string) (FileID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("file ID cannot be empty")
	}
	return FileID(s), nil
}

// ParseDatasetID parses a string into DatasetID
func ParseDatasetID(s string) (DatasetID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("dataset ID cannot be empty")
	}
	return DatasetID(s), nil
}

// ParseQueryID parses a string into QueryID
func ParseQueryID(s string) (QueryID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("query ID cannot be empty")
	}
	return QueryID(s), nil
}
