package loader

import (
	"errors"
	"fmt"
)

// Error codes for load failures.
const (
	// ErrCodeSourceNotFound means the path does not exist.
	ErrCodeSourceNotFound = "SOURCE_NOT_FOUND"

	// ErrCodeSourceMalformed means the source exists but cannot be turned
	// into a table (bad CSV, missing header, duplicate columns, ...).
	ErrCodeSourceMalformed = "SOURCE_MALFORMED"

	// ErrCodeSourceUnavailable covers every other failure to read the
	// source (permissions, I/O errors, database errors).
	ErrCodeSourceUnavailable = "SOURCE_UNAVAILABLE"
)

// LoadError reports why a source could not be loaded.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Code, e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *LoadError) Unwrap() error {
	return e.Err
}

func notFound(path string, err error) *LoadError {
	return &LoadError{Code: ErrCodeSourceNotFound, Path: path, Message: "source not found", Err: err}
}

func malformed(path string, err error, format string, args ...any) *LoadError {
	return &LoadError{Code: ErrCodeSourceMalformed, Path: path, Message: fmt.Sprintf(format, args...), Err: err}
}

func unavailable(path string, err error, format string, args ...any) *LoadError {
	return &LoadError{Code: ErrCodeSourceUnavailable, Path: path, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the code of a LoadError, or "" for other errors.
func CodeOf(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsNotFound reports whether err is a SOURCE_NOT_FOUND load error.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeSourceNotFound
}

// IsMalformed reports whether err is a SOURCE_MALFORMED load error.
func IsMalformed(err error) bool {
	return CodeOf(err) == ErrCodeSourceMalformed
}
