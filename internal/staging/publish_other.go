//go:build !linux

package staging

func renameNoReplace(oldpath, newpath string) error {
	return linkAndRemove(oldpath, newpath)
}
