package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWatcher_FiresOnWrite(t *testing.T) {
	dir, err := os.MkdirTemp("", "watcher_test_*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "methodology.md")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0600))

	var fired atomic.Int32
	w, err := New(path, func() { fired.Add(1) })
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0600))
	waitFor(t, func() bool { return fired.Load() >= 1 })
}

func TestWatcher_FiresOnCreate(t *testing.T) {
	dir, err := os.MkdirTemp("", "watcher_test_*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "methodology.md")

	var fired atomic.Int32
	w, err := New(path, func() { fired.Add(1) })
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	// File appears after the watch started.
	require.NoError(t, os.WriteFile(path, []byte("new"), 0600))
	waitFor(t, func() bool { return fired.Load() >= 1 })
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	dir, err := os.MkdirTemp("", "watcher_test_*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "methodology.md")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0600))

	var fired atomic.Int32
	w, err := New(path, func() { fired.Add(1) })
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.md"), []byte("x"), 0600))
	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	dir, err := os.MkdirTemp("", "watcher_test_*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	w, err := New(filepath.Join(dir, "methodology.md"), func() {})
	require.NoError(t, err)
	require.NoError(t, w.Start())

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
