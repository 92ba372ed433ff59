package digest

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/spf13/afero"
)

// Size is the length of a digest in bytes
const Size = sha256.Size

// ErrPoisoned is returned by Finalize when a write through the Writer failed.
// The accumulated hash no longer describes what the destination holds.
var ErrPoisoned = errors.New("digest writer saw a failed write")

// Digest is a SHA-256 content fingerprint. It is stored as 32 raw bytes.
type Digest [Size]byte

// String returns the lowercase hex encoding
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 12 hex characters, for log lines
func (d Digest) Short() string {
	return d.String()[:12]
}

// IsZero reports whether d is the zero value
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Value implements driver.Valuer so a Digest binds as a BLOB
func (d Digest) Value() (driver.Value, error) {
	return d[:], nil
}

// Scan implements sql.Scanner
func (d *Digest) Scan(src any) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("digest: cannot scan %T", src)
	}
	if len(b) != Size {
		return fmt.Errorf("digest: expected %d bytes, got %d", Size, len(b))
	}
	copy(d[:], b)
	return nil
}

// Sum consumes r entirely and returns its digest and the number of bytes read
func Sum(r io.Reader) (Digest, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return Digest{}, n, err
	}
	return sumOf(h), n, nil
}

// File digests the file at path on the OS filesystem
func File(path string) (Digest, int64, error) {
	return FileFs(afero.NewOsFs(), path)
}

// FileFs digests the file at path on fsys
func FileFs(fsys afero.Fs, path string) (Digest, int64, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return Digest{}, 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	d, n, err := Sum(f)
	if err != nil {
		return Digest{}, n, fmt.Errorf("failed to hash file: %w", err)
	}
	return d, n, nil
}

func sumOf(h hash.Hash) Digest {
	var d Digest
	h.Sum(d[:0])
	return d
}
