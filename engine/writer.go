package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// AtomicWriter materializes a byte stream at a destination path such that
// the final name only ever refers to a complete, non-empty file. The
// stream is spooled to a uniquely named temp file and renamed into place;
// on any failure or cancellation the temp file is removed and the
// destination is left untouched.
type AtomicWriter struct {
	// TempDir is where temp files are spooled. Empty means the system
	// temp directory.
	TempDir string

	// Buffers supplies copy buffers. Nil falls back to io.Copy's own
	// allocation.
	Buffers *BufferPool
}

// Materialize writes r to dest. It returns the number of bytes written
// and ErrEmptyResponse if the stream was empty, or ErrCancelled if tok
// fired before the file could be moved into place.
func (w *AtomicWriter) Materialize(dest string, r io.Reader, tok *Token) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create destination directory: %w", err)
	}

	tmp, err := os.CreateTemp(w.TempDir, "gopull-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	n, err := w.spool(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		if errors.Is(err, ErrCancelled) || (tok != nil && tok.Cancelled()) {
			return n, ErrCancelled
		}
		return n, fmt.Errorf("write temp file: %w", err)
	}

	// A download that completed after a late cancellation is still
	// discarded; the contract holds regardless of when the token fired.
	if tok != nil && tok.Cancelled() {
		os.Remove(tmpPath)
		return n, ErrCancelled
	}

	if n == 0 {
		os.Remove(tmpPath)
		return 0, ErrEmptyResponse
	}

	// The destination directory could have been removed while the
	// transfer ran.
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		os.Remove(tmpPath)
		return n, fmt.Errorf("create destination directory: %w", err)
	}

	if err := replace(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return n, fmt.Errorf("move into place: %w", err)
	}

	// World-readable, owner-writable. Chmod failure is not worth failing
	// the job over once the content is in place.
	_ = os.Chmod(dest, 0o644)

	return n, nil
}

func (w *AtomicWriter) spool(dst io.Writer, src io.Reader) (int64, error) {
	if w.Buffers == nil {
		return io.Copy(dst, src)
	}
	buf := w.Buffers.Get()
	defer w.Buffers.Put(buf)
	return io.CopyBuffer(dst, src, *buf)
}

// replace renames tmpPath onto dest. When the temp area and the
// destination live on different filesystems the rename fails (EXDEV), so
// the file is staged through a sibling temp file in the destination
// directory and the final rename is always same-volume, hence atomic.
func replace(tmpPath, dest string) error {
	if err := os.Rename(tmpPath, dest); err == nil {
		return nil
	}
	return stageCopy(tmpPath, dest)
}

// stageCopy moves tmpPath onto dest across filesystems. The spool file is
// removed once the stage has been renamed into place, so a cross-device
// materialize leaves the spool area as clean as a same-device one.
func stageCopy(tmpPath, dest string) error {
	src, err := os.Open(tmpPath)
	if err != nil {
		return err
	}

	stage, err := os.CreateTemp(filepath.Dir(dest), ".gopull-stage-*")
	if err != nil {
		src.Close()
		return err
	}
	stagePath := stage.Name()

	_, err = io.Copy(stage, src)
	src.Close()
	if cerr := stage.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(stagePath)
		return err
	}

	if err := os.Rename(stagePath, dest); err != nil {
		os.Remove(stagePath)
		return err
	}
	os.Remove(tmpPath)
	return nil
}
