// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// Error kinds. Every per-file failure is a *FileError whose Kind is one of
// these sentinels, so callers can test it with errors.Is.
var (
	// ErrSchema means the input JSON is not a block tree at the top level.
	ErrSchema = errors.New("schema error")

	// ErrExtraction means the extraction tool failed or produced no output.
	ErrExtraction = errors.New("extraction error")

	// ErrIO means a read, write, or directory creation failed.
	ErrIO = errors.New("io error")

	// ErrUnsupported means the file is neither a PDF nor a JSON block tree.
	ErrUnsupported = errors.New(ReasonUnsupported)
)

// FileError ties a failure to the file that caused it.
type FileError struct {
	Kind error
	Path string
	Err  error
}

func (e *FileError) Error() string {
	if e.Path == "" {
		return e.Reason()
	}
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *FileError) Unwrap() error { return e.Err }

// Is matches the error kind.
func (e *FileError) Is(target error) bool { return target == e.Kind }

// Reason renders the error for an Unprocessed record, without the path.
func (e *FileError) Reason() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

// SchemaError returns a FileError of kind ErrSchema.
func SchemaError(path string, err error) *FileError {
	return &FileError{Kind: ErrSchema, Path: path, Err: err}
}

// ExtractionError returns a FileError of kind ErrExtraction.
func ExtractionError(path string, err error) *FileError {
	return &FileError{Kind: ErrExtraction, Path: path, Err: err}
}

// IOError returns a FileError of kind ErrIO.
func IOError(path string, err error) *FileError {
	return &FileError{Kind: ErrIO, Path: path, Err: err}
}

// UnsupportedError returns a FileError of kind ErrUnsupported.
func UnsupportedError(path string) *FileError {
	return &FileError{Kind: ErrUnsupported, Path: path}
}

// ReasonOf renders any error as an Unprocessed reason.
func ReasonOf(err error) string {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Reason()
	}
	return err.Error()
}
