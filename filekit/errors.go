package filekit

import (
	"errors"
	"fmt"
)

// Standard errors for the filekit package
var (
	ErrNotExist       = errors.New("file does not exist")
	ErrExist          = errors.New("file already exists")
	ErrNotAllowed     = errors.New("path outside of storage root")
	ErrNotDir         = errors.New("not a directory")
	ErrFileTooLarge   = errors.New("file size exceeds limit")
	ErrCipherMismatch = errors.New("file was encrypted with a different cipher mode")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrInvalidDriver  = errors.New("unknown driver")
)

// PathError records an error and the operation and path that caused it.
type PathError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *PathError) Error() string {
	return fmt.Sprintf("filekit: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Err
}
