// Package file stores serialized preference values, one blob per key.
package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Errors
var (
	ErrNotFound    = errors.New("file: value not found")
	ErrInvalidName = errors.New("file: invalid value name")
)

// Adapter persists named blobs. Implementations must make Save atomic: a
// reader sees either the previous blob or the new one, never a mix.
type Adapter interface {
	// Names lists every stored name in no particular order
	Names() ([]string, error)
	// Fetch returns the blob stored under name or ErrNotFound
	Fetch(name string) ([]byte, error)
	// Save replaces the blob stored under name
	Save(name string, data []byte) error
	// Remove deletes name; removing a missing name is not an error
	Remove(name string) error
}

// Recoverer is implemented by adapters that can be left with unfinished
// saves. Recover must run while the store's process lock is held.
type Recoverer interface {
	Recover() error
}

var _ Recoverer = (*BackupAdapter)(nil)

// ValidateName rejects names that can not be used as a single path element
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q is reserved", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`+string(os.PathSeparator)+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

// Directories lays out the files of one store under a shared root:
//
//	{root}/{name}/values   committed blobs
//	{root}/{name}/backup   backups of blobs being replaced
//	{root}/lock            process lock files of every store
type Directories struct {
	Root string
	Name string
}

func (d Directories) Values() string { return filepath.Join(d.Root, d.Name, "values") }

func (d Directories) Backup() string { return filepath.Join(d.Root, d.Name, "backup") }

func (d Directories) Lock() string { return filepath.Join(d.Root, "lock") }

// Create makes every directory of the layout
func (d Directories) Create() error {
	if err := ValidateName(d.Name); err != nil {
		return err
	}
	for _, dir := range []string{d.Values(), d.Backup(), d.Lock()} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
