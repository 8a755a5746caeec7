package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collector() (Handler, chan []string) {
	batches := make(chan []string, 8)
	return func(files []string) error {
		batches <- files
		return nil
	}, batches
}

func TestWatcher_HandleEvent_Debounces(t *testing.T) {
	handler, batches := collector()
	w, err := New(t.TempDir(), handler, WithDebounceDelay(20*time.Millisecond))
	require.NoError(t, err)
	defer w.Stop()

	w.handleEvent(fsnotify.Event{Name: "/p/b.go", Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: "/p/a.go", Op: fsnotify.Create})
	w.handleEvent(fsnotify.Event{Name: "/p/b.go", Op: fsnotify.Write})

	select {
	case files := <-batches:
		assert.Equal(t, []string{"/p/a.go", "/p/b.go"}, files)
	case <-time.After(5 * time.Second):
		t.Fatal("no batch delivered")
	}

	select {
	case files := <-batches:
		t.Fatalf("unexpected second batch %v", files)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_HandleEvent_Ignores(t *testing.T) {
	handler, batches := collector()
	w, err := New(t.TempDir(), handler, WithDebounceDelay(10*time.Millisecond))
	require.NoError(t, err)
	defer w.Stop()

	tests := []struct {
		name  string
		event fsnotify.Event
	}{
		{"Test file", fsnotify.Event{Name: "/p/a_test.go", Op: fsnotify.Write}},
		{"Non-Go file", fsnotify.Event{Name: "/p/README.md", Op: fsnotify.Write}},
		{"Chmod only", fsnotify.Event{Name: "/p/a.go", Op: fsnotify.Chmod}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w.handleEvent(tt.event)
		})
	}

	select {
	case files := <-batches:
		t.Fatalf("unexpected batch %v", files)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_ReportsHandlerErrors(t *testing.T) {
	errs := make(chan error, 1)
	w, err := New(t.TempDir(), func([]string) error { return errors.New("boom") },
		WithDebounceDelay(10*time.Millisecond),
		WithOnError(func(err error) { errs <- err }))
	require.NoError(t, err)
	defer w.Stop()

	w.handleEvent(fsnotify.Event{Name: "/p/a.go", Op: fsnotify.Write})

	select {
	case err := <-errs:
		assert.ErrorContains(t, err, "boom")
	case <-time.After(5 * time.Second):
		t.Fatal("no error reported")
	}
}

func TestWatcher_FileSystem(t *testing.T) {
	root := t.TempDir()
	handler, batches := collector()

	done := make(chan int, 1)
	w, err := New(root, handler,
		WithDebounceDelay(50*time.Millisecond),
		WithOnChangeDone(func(files int, _ time.Duration) { done <- files }))
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	path := filepath.Join(root, "demo.go")
	require.NoError(t, os.WriteFile(path, []byte("package demo\n"), 0644))

	select {
	case files := <-batches:
		assert.Contains(t, files, path)
	case <-time.After(10 * time.Second):
		t.Fatal("no batch for written file")
	}
	select {
	case n := <-done:
		assert.GreaterOrEqual(t, n, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("done callback not called")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	handler, _ := collector()
	w, err := New(t.TempDir(), handler)
	require.NoError(t, err)
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
