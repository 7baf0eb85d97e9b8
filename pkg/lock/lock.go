// Package lock hands out the locks that serialize access to one store: a
// read/write mutex shared by every handle in the process and a file lock
// shared with other processes.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ProcessLock excludes other processes from a store while held
type ProcessLock interface {
	Lock() error
	Unlock() error
}

// Locks bundles the locks of one store
type Locks struct {
	Read    sync.Locker
	Write   sync.Locker
	Process ProcessLock
}

// Factory returns the same locks for the same store name. Create one per
// process and pass it to every store.
type Factory struct {
	dir     string
	mutexes map[string]*sync.RWMutex
	files   map[string]*FileLock
	mutex   sync.Mutex
}

// NewFactory creates a factory that keeps lock files in dir
func NewFactory(dir string) *Factory {
	return &Factory{
		dir:     dir,
		mutexes: make(map[string]*sync.RWMutex),
		files:   make(map[string]*FileLock),
	}
}

// Get returns the locks of store name
func (f *Factory) Get(name string) (Locks, error) {
	if name == "" {
		return Locks{}, fmt.Errorf("lock: empty store name")
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	rw, exists := f.mutexes[name]
	if !exists {
		rw = &sync.RWMutex{}
		f.mutexes[name] = rw
	}
	fl, exists := f.files[name]
	if !exists {
		if err := os.MkdirAll(f.dir, 0750); err != nil {
			return Locks{}, err
		}
		fl = NewFileLock(filepath.Join(f.dir, name+".lock"))
		f.files[name] = fl
	}
	return Locks{Read: rw.RLocker(), Write: rw, Process: fl}, nil
}

// FileLock is an advisory exclusive lock on a file. It is reentrant within
// one process: nested Lock calls are counted and only the outermost pair
// touches the file. Mutual exclusion between goroutines is the job of the
// store's write mutex.
type FileLock struct {
	path  string
	file  *os.File
	depth int
	mutex sync.Mutex
}

// NewFileLock creates an unlocked lock on path
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Path returns the lock file path
func (l *FileLock) Path() string { return l.path }

func (l *FileLock) Lock() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.depth > 0 {
		l.depth++
		return nil
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("lock: open %s: %w", l.path, err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return fmt.Errorf("lock: %s: %w", l.path, err)
	}
	l.file = f
	l.depth = 1
	return nil
}

func (l *FileLock) Unlock() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	switch {
	case l.depth == 0:
		return fmt.Errorf("lock: %s is not locked", l.path)
	case l.depth > 1:
		l.depth--
		return nil
	}
	l.depth = 0
	f := l.file
	l.file = nil
	if err := unlockFile(f); err != nil {
		f.Close()
		return fmt.Errorf("lock: unlock %s: %w", l.path, err)
	}
	return f.Close()
}
