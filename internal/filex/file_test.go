package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureDir_CreatesDirectoryInCWD(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	got, err := EnsureDir("media")
	require.NoError(t, err)

	want := filepath.Join(tmp, "media")
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
}

func TestEnsureDir_AbsoluteAndIdempotent(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "a", "b")

	first, err := EnsureDir(tmp)
	require.NoError(t, err)
	second, err := EnsureDir(tmp)
	require.NoError(t, err)

	require.Equal(t, tmp, first)
	require.Equal(t, first, second)
}

func TestEnsureDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	require.NoError(t, os.WriteFile("media", []byte("x"), 0o660))

	_, err := EnsureDir("media")
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestSafeJoin(t *testing.T) {
	root := t.TempDir()

	p, err := SafeJoin(root, "avatars/x.png")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "avatars", "x.png"), p)

	// leading dots are cleaned against the virtual root
	p, err = SafeJoin(root, "../../etc/passwd")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "etc", "passwd"), p)
}

func TestWriteFileAndRemove(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "avatars", "f.png")

	require.NoError(t, WriteFile(path, []byte("data")))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "data", string(b))

	require.NoError(t, RemoveIfExists(path))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, RemoveIfExists(path))
}
