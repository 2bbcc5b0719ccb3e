package ModQueue

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrNoModification  = errors.New("no modification entered")
	ErrIndexOutOfRange = errors.New("invalid queue index")
	ErrQueueEmpty      = errors.New("modification queue is empty")
	ErrNoSameDay       = errors.New("no same-day records to upload")
	ErrNoDifferentDay  = errors.New("no different-day records to print")
	ErrNothingToUpload = errors.New("no files to upload")
)

// ValidationError is a rejected request; the queue is untouched.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error) error {
	return &ValidationError{Err: err}
}

// ExportError is an artifact generation failure. Queue changes made earlier
// in the same action stay in place.
type ExportError struct {
	Stage string
	Err   error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Stage, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// UploadError is a failed share delivery. The queue was not pruned and local
// files were kept, so the action can be retried.
type UploadError struct {
	Failed []string
	Err    error
}

func (e *UploadError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for _, p := range e.Failed {
		names = append(names, filepath.Base(p))
	}
	return fmt.Sprintf("upload failed (%v): %s", e.Err, strings.Join(names, ", "))
}

func (e *UploadError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a caller mistake rather than a fault.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
