package persistence

import (
	"errors"
	"fmt"
	"regexp"
)

// Standard persistence errors that all stores use.
var (
	// ErrSnapshotNotFound indicates no snapshot is stored under the given key.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrInvalidKey indicates a key that cannot be used as a storage name.
	ErrInvalidKey = errors.New("invalid snapshot key")
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// SnapshotError wraps snapshot errors with the operation and key.
type SnapshotError struct {
	Op  string // Operation being performed (e.g., "Load", "Save", "Delete")
	Key string // Snapshot key
	Err error  // Underlying error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("%s operation failed for snapshot %s: %v", e.Op, e.Key, e.Err)
}

func (e *SnapshotError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for snapshot errors.
func (e *SnapshotError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewSnapshotError creates a snapshot error with context.
func NewSnapshotError(op, key string, err error) *SnapshotError {
	return &SnapshotError{
		Op:  op,
		Key: key,
		Err: err,
	}
}

// ValidateKey rejects keys that are empty or could escape a store namespace.
func ValidateKey(op, key string) error {
	if !keyPattern.MatchString(key) {
		return NewSnapshotError(op, key, ErrInvalidKey)
	}

	return nil
}

// IsSnapshotNotFound checks if an error indicates a snapshot was not found.
func IsSnapshotNotFound(err error) bool {
	return errors.Is(err, ErrSnapshotNotFound)
}
