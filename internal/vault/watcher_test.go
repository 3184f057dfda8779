package vault

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/fsnotify/fsnotify.(*Watcher).readEvents"),
	)
}

func TestWatcherDebouncesRapidEvents(t *testing.T) {
	root := t.TempDir()

	var calls int32
	w, err := NewWatcher(root, func() { atomic.AddInt32(&calls, 1) })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))

	path := filepath.Join(root, "Note.md")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("v"), 0o644))
		time.Sleep(20 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) >= 1
	}, 2*time.Second, 50*time.Millisecond, "debounced writes should fire onStale at least once")

	require.Equal(t, int32(1), atomic.LoadInt32(&calls), "rapid writes within the debounce window must collapse to one call")

	cancel()
	require.NoError(t, w.Stop())
}

func TestWatcherIgnoresNonMarkdownFiles(t *testing.T) {
	root := t.TempDir()

	var calls int32
	w, err := NewWatcher(root, func() { atomic.AddInt32(&calls, 1) })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("v"), 0o644))
	time.Sleep(500 * time.Millisecond)

	require.Equal(t, int32(0), atomic.LoadInt32(&calls))

	cancel()
	require.NoError(t, w.Stop())
}
