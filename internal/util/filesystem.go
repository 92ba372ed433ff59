package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// IsSameFilesystem reports whether two existing paths live on the same
// device, which is what a rename between them requires.
func IsSameFilesystem(path1, path2 string) (bool, error) {
	var st1, st2 unix.Stat_t
	if err := unix.Stat(path1, &st1); err != nil {
		return false, &os.PathError{Op: "stat", Path: path1, Err: err}
	}
	if err := unix.Stat(path2, &st2); err != nil {
		return false, &os.PathError{Op: "stat", Path: path2, Err: err}
	}
	return st1.Dev == st2.Dev, nil
}

// FilesystemInfo describes the filesystem holding a path
type FilesystemInfo struct {
	Network bool   // NFS, SMB/CIFS, sshfs and similar
	Type    string // filesystem type name, when known
	Mount   string // mount point, when known
}

// DetectFilesystem inspects the filesystem holding path. A path that does
// not exist yet is resolved through its nearest existing parent.
func DetectFilesystem(path string) (*FilesystemInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	return detectFilesystem(nearestExisting(abs))
}

// IsNetworkPath reports whether path is on a network filesystem. Detection
// errors count as local.
func IsNetworkPath(path string) bool {
	info, err := DetectFilesystem(path)
	if err != nil {
		return false
	}
	return info.Network
}

func nearestExisting(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

var networkTypes = []string{"nfs", "cifs", "smb", "ncpfs", "afpfs", "webdav", "fuse.sshfs", "fuse.rclone"}

func isNetworkType(name string) bool {
	name = strings.ToLower(name)
	for _, t := range networkTypes {
		if strings.Contains(name, t) {
			return true
		}
	}
	return false
}

// mountFor returns the longest mount point containing path
func mountFor(path string, mounts map[string]string) (mountPoint, fsType string) {
	for mp, typ := range mounts {
		if !withinDir(path, mp) || len(mp) <= len(mountPoint) {
			continue
		}
		mountPoint, fsType = mp, typ
	}
	return mountPoint, fsType
}

func withinDir(path, dir string) bool {
	if dir == "/" || path == dir {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(dir, "/")+"/")
}
