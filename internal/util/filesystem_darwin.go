//go:build darwin

package util

import (
	"os"

	"golang.org/x/sys/unix"
)

func detectFilesystem(path string) (*FilesystemInfo, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return nil, &os.PathError{Op: "statfs", Path: path, Err: err}
	}

	typ := unix.ByteSliceToString(st.Fstypename[:])
	return &FilesystemInfo{
		Network: isNetworkType(typ) || typ == "osxfuse",
		Type:    typ,
		Mount:   unix.ByteSliceToString(st.Mntonname[:]),
	}, nil
}
