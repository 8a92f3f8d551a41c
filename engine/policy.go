package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"time"
)

// Fetcher opens a remote resource for reading. size is the expected
// payload length, or -1 when unknown. Implementations map HTTP and
// connection failures to their own error types; the policy treats every
// fetch error as a retryable attempt failure.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (body io.ReadCloser, size int64, err error)
}

// DefaultBackoffUnit is the base unit for exponential backoff between
// attempts against the same URL: sleep 2^attempt units.
const DefaultBackoffUnit = time.Second

// maxBackoffShift caps the exponent so an oversized retry budget cannot
// overflow the shift into a negative duration.
const maxBackoffShift = 10

// Policy executes one job to completion: the primary URL with retries and
// backoff, then each fallback URL exactly once, stopping at the first
// attempt that lands a complete, non-empty file. It emits exactly one
// terminal ResultEvent per executed job and never lets a failure escape
// the worker goroutine.
type Policy struct {
	Fetcher Fetcher
	Writer  *AtomicWriter

	// BackoffUnit scales the exponential backoff. Zero means
	// DefaultBackoffUnit; tests shrink it.
	BackoffUnit time.Duration

	// Checksum enables CRC64 fingerprinting of successful downloads.
	Checksum bool
}

// Execute runs spec to a terminal event on sink, honoring tok at every
// suspension point.
func (p *Policy) Execute(spec JobSpec, tok *Token, sink *Sink) {
	defer func() {
		// A panicking job must not take down the pool or swallow its
		// terminal event.
		if r := recover(); r != nil {
			sink.Result(ResultEvent{
				JobID:       spec.ID,
				Destination: spec.Destination,
				Status:      StatusFailed,
				Err:         fmt.Sprintf("worker panic: %v", r),
			})
		}
	}()

	name := filepath.Base(spec.Destination)

	if tok.Cancelled() {
		sink.Result(ResultEvent{JobID: spec.ID, Destination: spec.Destination, Status: StatusCancelled})
		return
	}

	sink.Progress(ProgressEvent{JobID: spec.ID, Message: "starting " + name, Percent: 0})

	var lastErr error
	urls := spec.urls()
	for i, u := range urls {
		if tok.Cancelled() {
			sink.Result(ResultEvent{JobID: spec.ID, Destination: spec.Destination, Status: StatusCancelled})
			return
		}

		// The primary URL gets the full retry budget; each fallback is
		// tried once.
		attempts := 1
		if i == 0 {
			attempts = spec.MaxRetries
		}

		done, err := p.tryURL(spec, u, attempts, tok, sink)
		if done {
			return
		}
		if errors.Is(err, ErrCancelled) {
			sink.Result(ResultEvent{JobID: spec.ID, Destination: spec.Destination, Status: StatusCancelled})
			return
		}
		if err != nil {
			lastErr = err
		}

		if i == 0 && len(urls) > 1 {
			sink.Progress(ProgressEvent{
				JobID:   spec.ID,
				Message: "primary URL failed, trying alternatives for " + name,
			})
		}
	}

	sink.Result(ResultEvent{
		JobID:       spec.ID,
		Destination: spec.Destination,
		Status:      StatusFailed,
		Err:         lastErr.Error(),
	})
}

// tryURL makes up to maxAttempts attempts against a single URL, sleeping
// exponentially between them. It returns done=true once a success result
// has been emitted.
func (p *Policy) tryURL(spec JobSpec, rawURL string, maxAttempts int, tok *Token, sink *Sink) (done bool, err error) {
	name := filepath.Base(spec.Destination)
	host := hostOf(rawURL)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if tok.Cancelled() {
			return false, ErrCancelled
		}

		bytes, sum, attemptErr := p.attempt(spec, rawURL, tok, sink)
		if attemptErr == nil {
			sink.Progress(ProgressEvent{JobID: spec.ID, Message: "completed " + name, Percent: 100})
			sink.Result(ResultEvent{
				JobID:       spec.ID,
				Destination: spec.Destination,
				Status:      StatusCompleted,
				Bytes:       bytes,
				Checksum:    sum,
			})
			return true, nil
		}
		if errors.Is(attemptErr, ErrCancelled) {
			return false, attemptErr
		}
		lastErr = attemptErr

		if attempt < maxAttempts {
			sink.Progress(ProgressEvent{
				JobID:   spec.ID,
				Message: fmt.Sprintf("retry %d/%d from %s: %s", attempt, maxAttempts, host, name),
			})
			if !tok.Sleep(p.backoff(attempt)) {
				return false, ErrCancelled
			}
		} else {
			sink.Progress(ProgressEvent{
				JobID:   spec.ID,
				Message: fmt.Sprintf("failed from %s: %s", host, name),
			})
		}
	}
	return false, lastErr
}

// attempt performs one fetch-and-materialize cycle against one URL.
func (p *Policy) attempt(spec JobSpec, rawURL string, tok *Token, sink *Sink) (int64, uint64, error) {
	ctx := context.Background()
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	body, size, err := p.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return 0, 0, err
	}
	defer body.Close()

	var r io.Reader = &tokenReader{r: body, tok: tok}
	if size > 0 {
		name := filepath.Base(spec.Destination)
		host := hostOf(rawURL)
		r = &progressReader{
			r:     r,
			total: size,
			emit: func(pct int) {
				sink.Progress(ProgressEvent{
					JobID:   spec.ID,
					Message: fmt.Sprintf("downloading from %s: %s", host, name),
					Percent: pct,
				})
			},
		}
	}

	var cr *ChecksumReader
	if p.Checksum {
		cr = NewChecksumReader(r)
		r = cr
	}

	n, err := p.Writer.Materialize(spec.Destination, r, tok)
	if err != nil {
		return n, 0, err
	}

	var sum uint64
	if cr != nil {
		sum = cr.Checksum()
	}
	return n, sum, nil
}

func (p *Policy) backoff(attempt int) time.Duration {
	unit := p.BackoffUnit
	if unit <= 0 {
		unit = DefaultBackoffUnit
	}
	if attempt > maxBackoffShift {
		attempt = maxBackoffShift
	}
	d := unit << uint(attempt)
	if d <= 0 {
		return unit
	}
	return d
}

// progressReader reports whole-percent progress as the payload streams
// through it.
type progressReader struct {
	r       io.Reader
	total   int64
	n       int64
	lastPct int
	emit    func(pct int)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.n += int64(n)
		pct := int(pr.n * 100 / pr.total)
		if pct > 100 {
			pct = 100
		}
		if pct != pr.lastPct {
			pr.lastPct = pct
			pr.emit(pct)
		}
	}
	return n, err
}

func hostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return rawURL
}
