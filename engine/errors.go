package engine

import (
	"errors"
)

var (
	// ErrEmptyResponse marks an attempt whose transfer completed but
	// produced zero bytes. Treated as a normal attempt failure.
	ErrEmptyResponse = errors.New("engine: downloaded file is empty")

	// ErrCancelled marks work aborted by a cancellation token.
	ErrCancelled = errors.New("engine: cancelled")

	// ErrRunActive is returned by Submit while a previous run is still
	// draining.
	ErrRunActive = errors.New("engine: a run is already active")
)

// InvalidConfigError reports a bad JobSpec or pool configuration. It is
// returned synchronously from Submit, before any worker starts.
type InvalidConfigError struct {
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return "engine: invalid config: " + e.Reason
}
