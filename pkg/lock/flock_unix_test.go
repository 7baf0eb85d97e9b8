//go:build unix

package lock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileLock_ExcludesSecondHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.lock")
	first := NewFileLock(path)
	second := NewFileLock(path)

	require.NoError(t, first.Lock())

	acquired := make(chan struct{})
	go func() {
		if err := second.Lock(); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second handle acquired a held lock")
	default:
	}

	require.NoError(t, first.Unlock())
	<-acquired
	require.NoError(t, second.Unlock())
}
