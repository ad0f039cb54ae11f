// Package txerr defines the error taxonomy shared across the tree engine:
// recoverable position/lookup errors, programmer-error write violations,
// and the unrecoverable CriticalStop condition.
package txerr

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors. Wrap with fmt.Errorf("...: %w", Sentinel) or
// errors.Wrap to add context while staying errors.Is-compatible.
var (
	// ErrDataPositionOutOfBounds is returned when a caller passes an
	// out-of-range offset or size to a DataFile operation. Recoverable.
	ErrDataPositionOutOfBounds = errors.New("txerr: data position out of bounds")

	// ErrKeyNotFound/ErrDataFileNotExists are not raised by reads of an
	// absent key; they exist for callers that want to distinguish
	// "no leaves for this key" explicitly rather than treating it as a
	// zero-size DataFile.
	ErrKeyNotFound       = errors.New("txerr: key not found")
	ErrDataFileNotExists = errors.New("txerr: data file does not exist")

	// ErrPathNotAvailable surfaces from the backing store or commit
	// manager; it is transient.
	ErrPathNotAvailable = errors.New("txerr: path not available")

	// ErrWriteViolation indicates an attempted mutation of an immutable
	// (stored or sparse) node. Always a programmer error.
	ErrWriteViolation = errors.New("txerr: write to immutable node")
)

// CriticalStop is the unrecoverable condition: once raised, the owning
// database must reject all further operations until the process restarts.
// It wraps the condition that triggered it (disk failure, corrupted node
// image, invariant check failure, tree-layer OOM).
type CriticalStop struct {
	Cause error
}

func (e *CriticalStop) Error() string {
	if e.Cause == nil {
		return "txerr: critical stop"
	}
	return "txerr: critical stop: " + e.Cause.Error()
}

func (e *CriticalStop) Unwrap() error { return e.Cause }

// NewCriticalStop wraps cause as a CriticalStop with a stack trace attached.
func NewCriticalStop(cause error) *CriticalStop {
	return &CriticalStop{Cause: errors.WithStack(cause)}
}

// IsCriticalStop reports whether err is, or wraps, a CriticalStop.
func IsCriticalStop(err error) bool {
	var cs *CriticalStop
	return errors.As(err, &cs)
}
