package file

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackupAdapter(t *testing.T) (*BackupAdapter, Directories) {
	t.Helper()
	dirs := Directories{Root: t.TempDir(), Name: "settings"}
	a, err := NewBackupAdapter(dirs, nil)
	require.NoError(t, err)
	return a, dirs
}

func TestDirectories_Layout(t *testing.T) {
	dirs := Directories{Root: "/data", Name: "app"}
	assert.Equal(t, filepath.Join("/data", "app", "values"), dirs.Values())
	assert.Equal(t, filepath.Join("/data", "app", "backup"), dirs.Backup())
	assert.Equal(t, filepath.Join("/data", "lock"), dirs.Lock())
}

func TestBackupAdapter_SaveFetch(t *testing.T) {
	a, dirs := newTestBackupAdapter(t)

	require.NoError(t, a.Save("theme", []byte("dark")))
	data, err := a.Fetch("theme")
	require.NoError(t, err)
	assert.Equal(t, []byte("dark"), data)

	require.NoError(t, a.Save("theme", []byte("light")))
	data, err = a.Fetch("theme")
	require.NoError(t, err)
	assert.Equal(t, []byte("light"), data)

	backups, err := os.ReadDir(dirs.Backup())
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestBackupAdapter_EmptyValue(t *testing.T) {
	a, _ := newTestBackupAdapter(t)

	require.NoError(t, a.Save("empty", []byte{}))
	data, err := a.Fetch("empty")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestBackupAdapter_NotFound(t *testing.T) {
	a, _ := newTestBackupAdapter(t)

	_, err := a.Fetch("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBackupAdapter_Remove(t *testing.T) {
	a, _ := newTestBackupAdapter(t)

	require.NoError(t, a.Save("k", []byte("v")))
	require.NoError(t, a.Remove("k"))
	_, err := a.Fetch("k")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, a.Remove("k"), "removing twice is fine")
}

func TestBackupAdapter_Names(t *testing.T) {
	a, dirs := newTestBackupAdapter(t)

	for _, name := range []string{"b", "a", "c"} {
		require.NoError(t, a.Save(name, []byte(name)))
	}
	temp := filepath.Join(dirs.Values(), ".inflight.tmp")
	require.NoError(t, os.WriteFile(temp, []byte("partial"), 0600))

	names, err := a.Names()
	require.NoError(t, err)
	sort.Strings(names)
	assert.Equal(t, []string{"a", "b", "c"}, names)

	_, err = os.Stat(temp)
	assert.NoError(t, err, "listing must not touch another writer's temp file")
}

func TestBackupAdapter_FetchPrefersBackup(t *testing.T) {
	a, dirs := newTestBackupAdapter(t)
	require.NoError(t, a.Save("counter", []byte("committed")))

	// A save that stopped after backing up and replacing the value
	backup := filepath.Join(dirs.Backup(), "counter.bak")
	require.NoError(t, os.WriteFile(backup, []byte("committed"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dirs.Values(), "counter"), []byte("torn"), 0600))

	data, err := a.Fetch("counter")
	require.NoError(t, err)
	assert.Equal(t, []byte("committed"), data)

	_, err = os.Stat(backup)
	assert.NoError(t, err, "fetch must leave the backup in place")
}

func TestBackupAdapter_Recover(t *testing.T) {
	a, dirs := newTestBackupAdapter(t)
	require.NoError(t, a.Save("counter", []byte("committed")))

	backup := filepath.Join(dirs.Backup(), "counter.bak")
	require.NoError(t, os.WriteFile(backup, []byte("committed"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dirs.Values(), "counter"), []byte("torn"), 0600))
	staleValue := filepath.Join(dirs.Values(), ".leftover.tmp")
	staleBackup := filepath.Join(dirs.Backup(), ".leftover.tmp")
	require.NoError(t, os.WriteFile(staleValue, []byte("partial"), 0600))
	require.NoError(t, os.WriteFile(staleBackup, []byte("partial"), 0600))

	require.NoError(t, a.Recover())

	data, err := os.ReadFile(filepath.Join(dirs.Values(), "counter"))
	require.NoError(t, err)
	assert.Equal(t, []byte("committed"), data)
	for _, path := range []string{backup, staleValue, staleBackup} {
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err), "%s should be gone", path)
	}
}

func TestBackupAdapter_NamesIncludesBackups(t *testing.T) {
	a, dirs := newTestBackupAdapter(t)

	// The value file was lost entirely
	require.NoError(t, os.WriteFile(filepath.Join(dirs.Backup(), "lost.bak"), []byte("old"), 0600))

	names, err := a.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"lost"}, names)

	data, err := a.Fetch("lost")
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), data)

	require.NoError(t, a.Recover())
	data, err = os.ReadFile(filepath.Join(dirs.Values(), "lost"))
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), data)
}

func TestBackupAdapter_ReaderDoesNotUndoSave(t *testing.T) {
	dirs := Directories{Root: t.TempDir(), Name: "settings"}
	writer, err := NewBackupAdapter(dirs, nil)
	require.NoError(t, err)
	reader, err := NewBackupAdapter(dirs, nil)
	require.NoError(t, err)

	require.NoError(t, writer.Save("k", []byte("v1")))

	// Run the writer's save step by step with a read in the middle
	target := writer.valuePath("k")
	tmp, err := writer.writeTemp(dirs.Values(), []byte("v2"))
	require.NoError(t, err)
	backedUp, err := writer.backup("k", target)
	require.NoError(t, err)
	require.True(t, backedUp)
	require.NoError(t, os.Rename(tmp, target))

	data, err := reader.Fetch("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), data, "an unfinished save is not visible yet")
	names, err := reader.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, names)

	require.NoError(t, os.Remove(writer.backupPath("k")))

	data, err = reader.Fetch("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
}

func TestBackupAdapter_InvalidNames(t *testing.T) {
	a, _ := newTestBackupAdapter(t)

	for _, name := range []string{"", ".", "..", ".hidden", "a/b", "nul\x00"} {
		assert.ErrorIs(t, a.Save(name, []byte("x")), ErrInvalidName, "name %q", name)
		_, err := a.Fetch(name)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}

	_, err := NewBackupAdapter(Directories{Root: t.TempDir(), Name: "../escape"}, nil)
	assert.ErrorIs(t, err, ErrInvalidName)
}
