package engine

import (
	"time"
)

// JobSpec describes a single download: one primary URL, an ordered list of
// fallback URLs, and the final destination path. A spec is immutable once
// submitted; workers never write to it.
type JobSpec struct {
	// ID identifies the job in events and the journal. Submit assigns a
	// UUID when the caller leaves it empty.
	ID string

	// PrimaryURL is tried first, up to MaxRetries times.
	PrimaryURL string

	// FallbackURLs are each tried exactly once, in order, after the
	// primary URL has been exhausted.
	FallbackURLs []string

	// Destination is the final path of the downloaded file. No two jobs
	// in a run may share a destination.
	Destination string

	// MaxRetries is the number of attempts against the primary URL.
	MaxRetries int

	// Timeout bounds each individual attempt, not the job as a whole.
	Timeout time.Duration
}

// urls returns the full attempt ordering: primary first, then fallbacks.
func (j JobSpec) urls() []string {
	out := make([]string, 0, 1+len(j.FallbackURLs))
	out = append(out, j.PrimaryURL)
	out = append(out, j.FallbackURLs...)
	return out
}

// validate reports the first problem that would make the spec unrunnable.
func (j JobSpec) validate() error {
	if j.PrimaryURL == "" {
		return &InvalidConfigError{Reason: "job has an empty primary URL"}
	}
	for _, u := range j.FallbackURLs {
		if u == "" {
			return &InvalidConfigError{Reason: "job has an empty fallback URL"}
		}
	}
	if j.Destination == "" {
		return &InvalidConfigError{Reason: "job has an empty destination path"}
	}
	if j.MaxRetries < 1 {
		return &InvalidConfigError{Reason: "job MaxRetries must be at least 1"}
	}
	return nil
}
