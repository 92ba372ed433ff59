package digest

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
)

type flusher interface {
	Flush() error
}

// Writer forwards every write to an inner writer and hashes the bytes
// the inner writer accepted.
type Writer struct {
	inner   io.Writer
	h       hash.Hash
	written int64
	err     error
}

// NewWriter wraps w
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		inner: w,
		h:     sha256.New(),
	}
}

// Write implements io.Writer
func (w *Writer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n, err := w.inner.Write(p)
	if n > 0 {
		w.h.Write(p[:n])
		w.written += int64(n)
	}
	if err != nil && w.err == nil {
		w.err = err
	}
	return n, err
}

// Written returns the number of bytes forwarded so far
func (w *Writer) Written() int64 {
	return w.written
}

// Finalize flushes the inner writer and returns the digest of everything
// written through w.
func (w *Writer) Finalize() (Digest, error) {
	if w.err != nil {
		return Digest{}, fmt.Errorf("%w: %v", ErrPoisoned, w.err)
	}
	if f, ok := w.inner.(flusher); ok {
		if err := f.Flush(); err != nil {
			return Digest{}, fmt.Errorf("failed to flush: %w", err)
		}
	}
	return sumOf(w.h), nil
}
