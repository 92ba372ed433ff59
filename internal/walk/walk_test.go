package walk

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeMemFs(t *testing.T) {
	fsys := afero.NewMemMapFs()
	files := map[string]string{
		"/lib/2019/b.jpg":      "bb",
		"/lib/2019/a.jpg":      "a",
		"/lib/2020/x/deep.png": "deep",
		"/lib/top.jpg":         "top",
	}
	for p, content := range files {
		require.NoError(t, afero.WriteFile(fsys, p, []byte(content), 0644))
	}
	require.NoError(t, fsys.MkdirAll("/lib/empty", 0755))

	mtime := time.Unix(1600000000, 999_000_000)
	require.NoError(t, fsys.Chtimes("/lib/top.jpg", mtime, mtime))

	entries, err := Tree(fsys, "/lib")
	require.NoError(t, err)

	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"2019/a.jpg", "2019/b.jpg", "2020/x/deep.png", "top.jpg"}, paths)

	assert.Equal(t, uint64(2), entries[1].Size)
	assert.Equal(t, int64(1600000000), entries[3].ModTime, "mtime is truncated to seconds")
	assert.Equal(t, uint64(10), TotalSize(entries))
}

func TestTreeMissingRoot(t *testing.T) {
	_, err := Tree(afero.NewMemMapFs(), "/nope")
	assert.Error(t, err)
}

func TestTreeRootIsFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/file", []byte("x"), 0644))

	_, err := Tree(fsys, "/file")
	assert.Error(t, err)
}

func TestTreeSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "target.jpg"), []byte("x"), 0644))
	require.NoError(t, os.Symlink(filepath.Join(root, "target.jpg"), filepath.Join(root, "link.jpg")))

	entries, err := Tree(afero.NewOsFs(), root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "target.jpg", entries[0].Path)
}

func TestTreeSymlinkedRoot(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "target")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "2021"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "2021", "a.jpg"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(target, "b.jpg"), []byte("yy"), 0644))
	link := filepath.Join(base, "link")
	require.NoError(t, os.Symlink(target, link))

	want, err := Tree(afero.NewOsFs(), target)
	require.NoError(t, err)
	require.Len(t, want, 2)

	got, err := Tree(afero.NewOsFs(), link)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = Tree(afero.NewOsFs(), link+string(filepath.Separator))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTreeSymlinkToFileRoot(t *testing.T) {
	base := t.TempDir()
	file := filepath.Join(base, "file.jpg")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	link := filepath.Join(base, "link")
	require.NoError(t, os.Symlink(file, link))

	_, err := Tree(afero.NewOsFs(), link)
	assert.Error(t, err)
}

func TestJoin(t *testing.T) {
	assert.Equal(t, filepath.Join("/dest", "a", "b.jpg"), Join("/dest", "a/b.jpg"))
}
