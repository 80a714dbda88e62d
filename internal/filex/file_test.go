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

func TestEnsureParentDir_RelativeToCWD(t *testing.T) {
	tmp, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	defer chdir(t, tmp)()

	got, err := EnsureParentDir(filepath.Join("state", "session.db"))
	require.NoError(t, err)

	require.Equal(t, filepath.Join(tmp, "state", "session.db"), got)

	fi, err := os.Stat(filepath.Join(tmp, "state"))
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create the parent directory")

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}

	_, err = os.Stat(got)
	require.True(t, os.IsNotExist(err), "the file itself is not created")
}

func TestEnsureParentDir_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "session.db")

	first, err := EnsureParentDir(path)
	require.NoError(t, err)
	second, err := EnsureParentDir(path)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEnsureParentDir_ParentIsAFile(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := EnsureParentDir(filepath.Join(blocker, "session.db"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "mkdir")
}
