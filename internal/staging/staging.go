// Package staging creates temporary files next to the destination tree and
// publishes them into place without ever overwriting an existing file.
package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/errs"

	"github.com/franz/photo-sync/internal/util"
)

const (
	// Prefix names every staging file so leftovers from a crashed run are recognizable
	Prefix = ".psync-"

	// PublishedMode is applied to every published file
	PublishedMode os.FileMode = 0644

	dirMode os.FileMode = 0755
)

// Error wraps staging failures
var Error = errs.Class("staging")

// Dir produces staging files on the same filesystem as a destination root
type Dir struct {
	path     string
	destRoot string
}

// New prepares stagingDir for staging files destined for destRoot. Both
// directories are created if missing. They must share a filesystem so that
// Publish is a rename.
func New(stagingDir, destRoot string) (*Dir, error) {
	for _, dir := range []string{stagingDir, destRoot} {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return nil, Error.Wrap(fmt.Errorf("failed to create %s: %w", dir, err))
		}
	}

	same, err := util.IsSameFilesystem(stagingDir, destRoot)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if !same {
		return nil, Error.Wrap(fmt.Errorf("%w: staging dir %s and destination %s are on different filesystems",
			util.ErrInvalidConfig, stagingDir, destRoot))
	}

	return &Dir{path: stagingDir, destRoot: destRoot}, nil
}

// Path returns the staging directory
func (d *Dir) Path() string {
	return d.path
}

// Create opens a new private staging file
func (d *Dir) Create() (*File, error) {
	f, err := os.CreateTemp(d.path, Prefix+"*")
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("failed to create staging file: %w", err))
	}
	return &File{f: f, path: f.Name()}, nil
}

// Leftovers lists staging files that no run is currently using. They are
// left behind only when a process dies mid-copy.
func (d *Dir) Leftovers() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	var leftovers []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasPrefix(e.Name(), Prefix) {
			leftovers = append(leftovers, filepath.Join(d.path, e.Name()))
		}
	}
	return leftovers, nil
}

// File is a staging file. Exactly one of Publish or Discard should be called.
type File struct {
	f    *os.File
	path string
	done bool
}

// Write implements io.Writer
func (s *File) Write(p []byte) (int, error) {
	return s.f.Write(p)
}

// Flush makes the written bytes durable
func (s *File) Flush() error {
	return s.f.Sync()
}

// Path returns the staging file's own location
func (s *File) Path() string {
	return s.path
}

// Publish moves the staging file to dest. It fails with util.ErrConflict
// if anything already exists at dest.
func (s *File) Publish(dest string) error {
	if s.done {
		return Error.New("staging file %s already finished", s.path)
	}

	if err := s.f.Close(); err != nil {
		return Error.Wrap(errs.Combine(fmt.Errorf("failed to close staging file: %w", err), s.Discard()))
	}

	if err := os.Chmod(s.path, PublishedMode); err != nil {
		return Error.Wrap(errs.Combine(fmt.Errorf("failed to set mode: %w", err), s.Discard()))
	}

	if err := os.MkdirAll(filepath.Dir(dest), dirMode); err != nil {
		return Error.Wrap(errs.Combine(fmt.Errorf("failed to create directory: %w", err), s.Discard()))
	}

	if err := renameNoReplace(s.path, dest); err != nil {
		if errors.Is(err, fs.ErrExist) {
			err = fmt.Errorf("%w: %s already exists", util.ErrConflict, dest)
		}
		return Error.Wrap(errs.Combine(err, s.Discard()))
	}

	s.done = true
	return nil
}

// Discard closes and removes the staging file. It is safe to call more than once.
func (s *File) Discard() error {
	if s.done {
		return nil
	}
	s.done = true

	closeErr := s.f.Close()
	if errors.Is(closeErr, os.ErrClosed) {
		closeErr = nil
	}
	removeErr := os.Remove(s.path)
	if errors.Is(removeErr, fs.ErrNotExist) {
		removeErr = nil
	}
	return errs.Combine(closeErr, removeErr)
}

// linkAndRemove publishes by hard link, which refuses to replace an existing
// name, then drops the staging name.
func linkAndRemove(oldpath, newpath string) error {
	if err := os.Link(oldpath, newpath); err != nil {
		return err
	}
	if err := os.Remove(oldpath); err != nil {
		util.WarnLog("Published %s but could not remove staging name %s: %v", newpath, oldpath, err)
	}
	return nil
}
