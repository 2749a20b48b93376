package watch_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"

	"scriptmenu/internal/watch"
)

func TestWatchMissingDirectoryIsInert(t *testing.T) {
	t.Parallel()
	h := watch.Watch(filepath.Join(t.TempDir(), "missing"), func() { t.Error("unexpected stale signal") })

	require.False(t, h.Active())
	require.False(t, h.Degraded())
	require.ErrorIs(t, h.Err(), watch.ErrNoDirectory)
	h.Cancel()
	h.Cancel()

	var nilHandle *watch.Handle
	nilHandle.Cancel()
}

func TestWatchSubscriptionFailureDegrades(t *testing.T) {
	t.Parallel()
	errInotify := errors.New("too many open files")
	closedWatcher := func() (*fsnotify.Watcher, error) {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, err
		}
		return w, w.Close()
	}

	tests := []struct {
		name    string
		factory func() (*fsnotify.Watcher, error)
		wantErr error
	}{
		{"watcher creation fails", func() (*fsnotify.Watcher, error) { return nil, errInotify }, errInotify},
		{"adding the directory fails", closedWatcher, fsnotify.ErrClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			var fired atomic.Int32
			h := watch.Watch(dir, func() { fired.Add(1) },
				watch.WithDelay(20*time.Millisecond), watch.WithNewWatcher(tt.factory))

			require.False(t, h.Active())
			require.True(t, h.Degraded())
			require.ErrorIs(t, h.Err(), tt.wantErr)
			require.Equal(t, dir, h.Dir())

			require.NoError(t, os.WriteFile(filepath.Join(dir, "a.sh"), nil, 0o755))
			time.Sleep(100 * time.Millisecond)
			require.Zero(t, fired.Load())

			h.Cancel()
			h.Cancel()
		})
	}
}

func TestWatchSignalsOncePerBurst(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	var stale atomic.Int32
	h := watch.Watch(dir, func() { stale.Add(1) }, watch.WithDelay(100*time.Millisecond))
	t.Cleanup(h.Cancel)
	require.True(t, h.Active())
	require.NoError(t, h.Err())
	require.Equal(t, dir, h.Dir())

	// editor style save: temp file, write, rename over the target
	tmp := filepath.Join(dir, ".deploy.sh.swp")
	require.NoError(t, os.WriteFile(tmp, []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, "deploy.sh")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.sh"), nil, 0o755))

	require.Eventually(t, func() bool { return stale.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(250 * time.Millisecond)
	require.Equal(t, int32(1), stale.Load())
}

func TestWatchCancelStopsSignals(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	var stale atomic.Int32
	h := watch.Watch(dir, func() { stale.Add(1) }, watch.WithDelay(50*time.Millisecond))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.sh"), nil, 0o755))
	h.Cancel()
	h.Cancel()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.sh"), nil, 0o755))

	time.Sleep(200 * time.Millisecond)
	require.Zero(t, stale.Load())
}

func TestWatchFilter(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	target := filepath.Join(dir, "settings.toml")
	var stale atomic.Int32
	h := watch.Watch(dir, func() { stale.Add(1) },
		watch.WithDelay(30*time.Millisecond),
		watch.WithFilter(func(path string) bool { return path == target }),
	)
	t.Cleanup(h.Cancel)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), nil, 0o644))
	time.Sleep(150 * time.Millisecond)
	require.Zero(t, stale.Load())

	require.NoError(t, os.WriteFile(target, []byte("path = \"/tmp\"\n"), 0o644))
	require.Eventually(t, func() bool { return stale.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}
