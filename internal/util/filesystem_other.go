//go:build !linux && !darwin

package util

// detectFilesystem has no mount information on this platform and reports
// every path as local
func detectFilesystem(path string) (*FilesystemInfo, error) {
	return &FilesystemInfo{}, nil
}
