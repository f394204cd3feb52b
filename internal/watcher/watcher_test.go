package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startWatcher(t *testing.T, dir string, trigger TriggerFunc, opts ...Option) {
	t.Helper()
	w, err := New(dir, trigger, zap.NewNop(), append([]Option{WithDebounce(50 * time.Millisecond)}, opts...)...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	// Give Run a moment to register the folder.
	time.Sleep(50 * time.Millisecond)
}

func write(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
}

func TestWatcher_DebouncesBurstIntoOneRebuild(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	startWatcher(t, dir, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	for _, name := range []string{"a.jpg", "b.png", "c.tif", "a.jpg.yaml"} {
		write(t, filepath.Join(dir, name))
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return calls.Load() > 1 }, 200*time.Millisecond, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "b.png")))
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "gallery")
	require.NoError(t, os.Mkdir(out, 0o755))

	var calls atomic.Int32
	startWatcher(t, dir, func(context.Context) error {
		calls.Add(1)
		return nil
	}, WithIgnore(out))

	write(t, filepath.Join(dir, "notes.txt"))
	write(t, filepath.Join(dir, ".hidden.jpg"))
	write(t, filepath.Join(dir, "index.html"))

	assert.Never(t, func() bool { return calls.Load() > 0 }, 300*time.Millisecond, 20*time.Millisecond)
}

func TestWatcher_KeepsRunningAfterFailedRebuild(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	startWatcher(t, dir, func(context.Context) error {
		calls.Add(1)
		return errors.New("boom")
	})

	write(t, filepath.Join(dir, "a.jpg"))
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	write(t, filepath.Join(dir, "b.jpg"))
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestRelevant(t *testing.T) {
	w := &Watcher{}
	WithIgnore("/photos/out")(w)

	tests := []struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		{"/photos/a.jpg", fsnotify.Create, true},
		{"/photos/a.JPEG", fsnotify.Write, true},
		{"/photos/a.jpg", fsnotify.Remove, true},
		{"/photos/a.jpg", fsnotify.Chmod, false},
		{"/photos/a.yml", fsnotify.Write, true},
		{"/photos/a.txt", fsnotify.Write, false},
		{"/photos/.a.jpg", fsnotify.Create, false},
		{"/photos/out/images/a.jpg", fsnotify.Create, false},
		{"/photos/outside.jpg", fsnotify.Create, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, w.relevant(fsnotify.Event{Name: tt.name, Op: tt.op}), "%s %s", tt.op, tt.name)
	}
}
