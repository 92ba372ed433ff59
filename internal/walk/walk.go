// Package walk enumerates the regular files below a root directory.
package walk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Entry describes one regular file found under a root
type Entry struct {
	Path    string // relative to the root, slash-separated
	ModTime int64  // unix seconds, sub-second precision dropped
	Size    uint64
}

// Tree returns every regular file below root in lexical walk order.
// A symlinked root is followed; symlinks below it are skipped, as are
// directories and other special files. Any error reading the tree is
// returned; a partial listing is never returned.
func Tree(fsys afero.Fs, root string) ([]Entry, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot access root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}

	// Walk lstats its root, so a trailing separator is needed to
	// descend through a symlinked one.
	walkRoot := root
	if !strings.HasSuffix(walkRoot, string(filepath.Separator)) {
		walkRoot += string(filepath.Separator)
	}

	var entries []Entry
	err = afero.Walk(fsys, walkRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walk error at %s: %w", path, err)
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to relativize %s: %w", path, err)
		}

		entries = append(entries, Entry{
			Path:    filepath.ToSlash(rel),
			ModTime: info.ModTime().Unix(),
			Size:    uint64(info.Size()),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Join resolves a slash-separated relative path below root
func Join(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

// TotalSize sums the sizes of entries
func TotalSize(entries []Entry) uint64 {
	var total uint64
	for _, e := range entries {
		total += e.Size
	}
	return total
}
