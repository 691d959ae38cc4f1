package models

import (
	"errors"
	"fmt"
)

// Sighting related errors
var (
	ErrSightingNotFound  = errors.New("sighting not found")
	ErrInvalidSightingID = errors.New("invalid sighting id")
	ErrEmptyFingerprint  = errors.New("sighting fingerprint is required")
)

// Database related errors
var (
	ErrDatabaseDisabled = errors.New("database is not configured")
)

type FileError struct {
	Issue string
}

func (fe FileError) Error() string {
	return fmt.Sprintf("invalid file: %v", fe.Issue)
}
