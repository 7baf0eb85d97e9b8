package file

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/ksuid"
	log "github.com/sirupsen/logrus"
)

const (
	backupSuffix = ".bak"
	tempSuffix   = ".tmp"
)

// BackupAdapter keeps one file per value. Save writes the new blob to a
// temp file, backs up the current blob, renames the temp file into place
// and then drops the backup. While a backup exists the save has not
// finished, so Fetch serves the backup's bytes. Only Save, Remove and
// Recover move backups back into place, and callers must hold the store's
// process lock around them.
type BackupAdapter struct {
	dirs   Directories
	logger log.FieldLogger
}

// NewBackupAdapter creates the store directories and returns an adapter
// over them. A nil logger discards output.
func NewBackupAdapter(dirs Directories, logger log.FieldLogger) (*BackupAdapter, error) {
	if err := dirs.Create(); err != nil {
		return nil, err
	}
	if logger == nil {
		discard := log.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &BackupAdapter{
		dirs:   dirs,
		logger: logger.WithField("store", dirs.Name),
	}, nil
}

func (a *BackupAdapter) valuePath(name string) string {
	return filepath.Join(a.dirs.Values(), name)
}

func (a *BackupAdapter) backupPath(name string) string {
	return filepath.Join(a.dirs.Backup(), name+backupSuffix)
}

func (a *BackupAdapter) Names() ([]string, error) {
	entries, err := os.ReadDir(a.dirs.Values())
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(entries))
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	backups, err := a.backupNames()
	if err != nil {
		return nil, err
	}
	for _, name := range backups {
		if !seen[name] {
			names = append(names, name)
		}
	}
	return names, nil
}

func (a *BackupAdapter) Fetch(name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(a.backupPath(name))
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	data, err = os.ReadFile(a.valuePath(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Recover restores every backup left by an interrupted Save and removes
// orphaned temp files
func (a *BackupAdapter) Recover() error {
	names, err := a.backupNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := a.restore(name); err != nil {
			return err
		}
	}
	for _, dir := range []string{a.dirs.Values(), a.dirs.Backup()} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			name := entry.Name()
			if !entry.IsDir() && strings.HasPrefix(name, ".") && strings.HasSuffix(name, tempSuffix) {
				a.removeStale(filepath.Join(dir, name))
			}
		}
	}
	return nil
}

func (a *BackupAdapter) Save(name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := a.restore(name); err != nil {
		return err
	}

	tmp, err := a.writeTemp(a.dirs.Values(), data)
	if err != nil {
		return err
	}

	target := a.valuePath(name)
	backedUp, err := a.backup(name, target)
	if err != nil {
		a.removeStale(tmp)
		return err
	}

	if err := os.Rename(tmp, target); err != nil {
		a.removeStale(tmp)
		return fmt.Errorf("commit %s: %w", name, err)
	}
	if err := syncDir(a.dirs.Values()); err != nil {
		return err
	}

	if backedUp {
		if err := os.Remove(a.backupPath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("drop backup of %s: %w", name, err)
		}
	}
	return nil
}

func (a *BackupAdapter) Remove(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := a.restore(name); err != nil {
		return err
	}
	err := os.Remove(a.valuePath(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return syncDir(a.dirs.Values())
}

// writeTemp writes data to a unique hidden file in dir and fsyncs it
func (a *BackupAdapter) writeTemp(dir string, data []byte) (string, error) {
	path := filepath.Join(dir, "."+ksuid.New().String()+tempSuffix)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		a.removeStale(path)
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		a.removeStale(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		a.removeStale(path)
		return "", err
	}
	return path, nil
}

// backup copies the committed blob of name, if any, into the backup
// directory. The copy is renamed into place so readers never see it torn.
func (a *BackupAdapter) backup(name, target string) (bool, error) {
	current, err := os.ReadFile(target)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	tmp, err := a.writeTemp(a.dirs.Backup(), current)
	if err != nil {
		return false, err
	}
	if err := os.Rename(tmp, a.backupPath(name)); err != nil {
		a.removeStale(tmp)
		return false, fmt.Errorf("back up %s: %w", name, err)
	}
	return true, syncDir(a.dirs.Backup())
}

// restore puts back a backup left by an interrupted Save
func (a *BackupAdapter) restore(name string) error {
	path := a.backupPath(name)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return err
	}

	a.logger.WithField("key", name).Warn("restoring value from backup")
	if err := os.Rename(path, a.valuePath(name)); err != nil {
		return fmt.Errorf("restore %s: %w", name, err)
	}
	return syncDir(a.dirs.Values())
}

func (a *BackupAdapter) backupNames() ([]string, error) {
	entries, err := os.ReadDir(a.dirs.Backup())
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), backupSuffix)
		if !ok || entry.IsDir() || ValidateName(name) != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func (a *BackupAdapter) removeStale(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.logger.WithError(err).WithField("path", path).Warn("failed to remove temp file")
	}
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return fmt.Errorf("sync %s: %w", dir, err)
	}
	return nil
}
