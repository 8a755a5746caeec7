package watcher

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"docblocks/internal/crawler"
)

// Handler receives a debounced batch of changed source files.
type Handler func(files []string) error

// Watcher watches a project for source changes and hands debounced batches
// to a Handler.
type Watcher struct {
	projectPath string
	fsWatcher   *fsnotify.Watcher
	handler     Handler
	logger      *logrus.Logger

	// Debouncing
	debounceDelay time.Duration
	pendingFiles  map[string]struct{}
	pendingMu     sync.Mutex
	debounceTimer *time.Timer

	// Runs are serialized so a slow handler never overlaps the next batch.
	runMu sync.Mutex

	// Callbacks
	onChangeStart func(files []string)
	onChangeDone  func(files int, duration time.Duration)
	onError       func(error)

	// Control
	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures the watcher
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the debounce delay
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounceDelay = d
		}
	}
}

// WithOnChangeStart sets the callback run before a batch is handled
func WithOnChangeStart(fn func(files []string)) WatcherOption {
	return func(w *Watcher) {
		w.onChangeStart = fn
	}
}

// WithOnChangeDone sets the callback run after a batch was handled
func WithOnChangeDone(fn func(files int, duration time.Duration)) WatcherOption {
	return func(w *Watcher) {
		w.onChangeDone = fn
	}
}

// WithOnError sets the callback for errors
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithLogger sets the logger for watch diagnostics
func WithLogger(logger *logrus.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a Watcher on every directory below projectPath.
func New(projectPath string, handler Handler, opts ...WatcherOption) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	w := &Watcher{
		projectPath:   projectPath,
		fsWatcher:     fsWatcher,
		handler:       handler,
		logger:        discard,
		debounceDelay: 500 * time.Millisecond,
		pendingFiles:  make(map[string]struct{}),
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if err := w.addDirs(w.projectPath); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to add directories to watch: %w", err)
	}

	return w, nil
}

// addDirs recursively adds root and the directories below it
func (w *Watcher) addDirs(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && skipDir(info.Name()) {
			return filepath.SkipDir
		}
		w.logger.Debugf("Watching %s", path)
		return w.fsWatcher.Add(path)
	})
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules" || name == "testdata" || name == "_examples"
}

// Start begins watching for changes
func (w *Watcher) Start() {
	go w.eventLoop()
}

// Stop stops the watcher. Pending changes are dropped.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.pendingMu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.pendingMu.Unlock()
		err = w.fsWatcher.Close()
	})
	return err
}

// eventLoop handles file system events
func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// New directories are watched too
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !skipDir(info.Name()) {
				if err := w.addDirs(event.Name); err != nil {
					w.reportError(err)
				}
			}
			return
		}
	}

	if !crawler.IsSource(event.Name) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	w.pendingFiles[event.Name] = struct{}{}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.flush)
}

// flush hands the pending batch to the handler
func (w *Watcher) flush() {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	w.pendingMu.Lock()
	files := make([]string, 0, len(w.pendingFiles))
	for f := range w.pendingFiles {
		files = append(files, f)
	}
	w.pendingFiles = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(files) == 0 {
		return
	}
	sort.Strings(files)

	if w.onChangeStart != nil {
		w.onChangeStart(files)
	}

	startTime := time.Now()
	if err := w.handler(files); err != nil {
		w.reportError(fmt.Errorf("update failed: %w", err))
		return
	}

	if w.onChangeDone != nil {
		w.onChangeDone(len(files), time.Since(startTime))
	}
}

func (w *Watcher) reportError(err error) {
	w.logger.Errorf("Watch error: %v", err)
	if w.onError != nil {
		w.onError(err)
	}
}
