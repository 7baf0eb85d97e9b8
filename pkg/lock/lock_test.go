package lock

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_SameLocksPerName(t *testing.T) {
	f := NewFactory(t.TempDir())

	a, err := f.Get("settings")
	require.NoError(t, err)
	b, err := f.Get("settings")
	require.NoError(t, err)
	c, err := f.Get("other")
	require.NoError(t, err)

	assert.Same(t, a.Write, b.Write)
	assert.Same(t, a.Process, b.Process)
	assert.NotSame(t, a.Write, c.Write)

	_, err = f.Get("")
	assert.Error(t, err)
}

func TestFactory_WriteExcludesReaders(t *testing.T) {
	f := NewFactory(t.TempDir())
	locks, err := f.Get("settings")
	require.NoError(t, err)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			locks.Write.Lock()
			counter++
			locks.Write.Unlock()
		}()
		go func() {
			defer wg.Done()
			locks.Read.Lock()
			_ = counter
			locks.Read.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestFileLock_Reentrant(t *testing.T) {
	l := NewFileLock(filepath.Join(t.TempDir(), "store.lock"))

	require.NoError(t, l.Lock())
	require.NoError(t, l.Lock())
	require.NoError(t, l.Unlock())
	assert.NotNil(t, l.file)
	require.NoError(t, l.Unlock())
	assert.Nil(t, l.file)

	assert.Error(t, l.Unlock())
}
