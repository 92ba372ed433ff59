//go:build linux

package util

import (
	"bufio"
	"io"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// statfs f_type values of network filesystems
var networkMagic = map[int64]string{
	0x6969:     "nfs",
	0xff534d42: "cifs",
	0x517b:     "smb",
	0xfe534d42: "smb2",
	0x564c:     "ncpfs",
}

func detectFilesystem(path string) (*FilesystemInfo, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return nil, &os.PathError{Op: "statfs", Path: path, Err: err}
	}

	info := &FilesystemInfo{}
	if name, ok := networkMagic[int64(st.Type)]; ok {
		info.Network = true
		info.Type = name
	}

	f, err := os.Open("/proc/mounts")
	if err != nil {
		return info, nil
	}
	defer f.Close()

	mounts, err := parseMounts(f)
	if err != nil {
		return info, nil
	}

	// fuse mounts share one magic number, the mount table tells them apart
	if mp, typ := mountFor(path, mounts); mp != "" {
		info.Mount = mp
		if info.Type == "" {
			info.Type = typ
		}
		if isNetworkType(typ) {
			info.Network = true
			info.Type = typ
		}
	}
	return info, nil
}

// parseMounts reads /proc/mounts formatted lines into mount point -> fs type
func parseMounts(r io.Reader) (map[string]string, error) {
	mounts := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		// device mountpoint fstype options dump pass
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mounts[unescapeMount(fields[1])] = fields[2]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return mounts, nil
}

// unescapeMount undoes the octal escaping of spaces and tabs in mount points
func unescapeMount(s string) string {
	return strings.NewReplacer(`\040`, " ", `\011`, "\t", `\134`, `\`).Replace(s)
}
