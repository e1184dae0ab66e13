package mdv

import (
	"errors"
	"fmt"
)

var (
	// ErrPathTraversal is returned when a path would resolve outside the root.
	ErrPathTraversal = errors.New("path escapes root directory")

	// ErrNotFound is returned when a version (or a file it refers to) does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned for malformed input such as an empty
	// version id or a negative keep count.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrReservedPath is returned for paths inside the version storage directory.
	ErrReservedPath = errors.New("path is reserved")
)

// StorageError wraps a failure of the underlying storage (filesystem, S3, index).
// Callers distinguish it from ErrNotFound with errors.As.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// storageErr wraps err as a *StorageError unless it already is one or is a
// not-found condition, which must stay distinguishable.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.Is(err, ErrNotFound) || errors.As(err, &se) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
