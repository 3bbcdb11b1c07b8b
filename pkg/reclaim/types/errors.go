package types

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrorKind categorizes a per-item failure for reporting and filtering.
type ErrorKind string

// Failure kinds recorded during a session.
const (
	// KindAccessDenied marks an item that could not be read due to
	// permissions.
	KindAccessDenied ErrorKind = "access-denied"

	// KindNotFound marks an item that vanished between enumeration and
	// use. This is a race with other filesystem activity, not a bug.
	KindNotFound ErrorKind = "not-found"

	// KindUnreadable marks a file whose content could not be read during
	// hashing.
	KindUnreadable ErrorKind = "unreadable-content"

	// KindSymlinkCycle marks a symlinked directory that resolved back to
	// an already-visited ancestor. Informational only.
	KindSymlinkCycle ErrorKind = "symlink-cycle"

	// KindResourceExhausted marks scheduler-detected overload. It triggers
	// throttling, never session failure.
	KindResourceExhausted ErrorKind = "resource-exhausted"

	// KindConfigInvalid marks a fatal configuration problem raised before
	// any scan work starts.
	KindConfigInvalid ErrorKind = "config-invalid"
)

// ErrConfigInvalid is the sentinel wrapped by all configuration validation
// failures.
var ErrConfigInvalid = errors.New("invalid configuration")

// ErrCancelled indicates the session was stopped by an explicit cancel.
var ErrCancelled = errors.New("scan cancelled")

// ItemError records one per-item failure with enough context to report it
// without retaining the underlying error value across serialization.
type ItemError struct {
	// Path is the item the failure occurred on.
	Path string `json:"path"`

	// Kind categorizes the failure.
	Kind ErrorKind `json:"kind"`

	// Detail is the underlying error message.
	Detail string `json:"detail"`

	err error
}

// NewItemError builds an ItemError for path, deriving Kind from err.
func NewItemError(path string, err error) ItemError {
	return ItemError{
		Path:   path,
		Kind:   KindOf(err),
		Detail: err.Error(),
		err:    err,
	}
}

// Error implements the error interface.
func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Detail)
}

// Unwrap returns the underlying error when the ItemError was built in
// process; deserialized values unwrap to nil.
func (e ItemError) Unwrap() error {
	return e.err
}

// KindOf maps an error to its taxonomy kind. Unrecognized errors are
// reported as unreadable content, the catch-all for I/O failures.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return KindAccessDenied
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, ErrConfigInvalid):
		return KindConfigInvalid
	default:
		return KindUnreadable
	}
}
