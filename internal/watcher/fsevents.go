package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/blackwell-systems/apkident/internal/scanner"
)

// DefaultDebounce is how long an archive must stay quiet before it is
// scanned.
const DefaultDebounce = 2 * time.Second

// Handler receives settled archive paths. *scanner.Scanner implements it.
type Handler interface {
	ScanFiles(ctx context.Context, paths []string) (*scanner.Result, error)
	Forget(path string) (int64, error)
}

// Options configures a Watcher.
type Options struct {
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher turns filesystem events in the archive directories into scans
// and forgets.
type Watcher struct {
	handler  Handler
	dirs     []string
	debounce time.Duration
	logger   *slog.Logger

	fsw    *fsnotify.Watcher
	ctx    context.Context
	cancel context.CancelFunc
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates a new Watcher for dirs.
func New(h Handler, dirs []string, opts Options) (*Watcher, error) {
	if h == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no archive directories to watch")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		handler:  h,
		dirs:     dirs,
		debounce: opts.Debounce,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start registers the watches and starts the event loop. Directories that
// do not exist are skipped with a warning.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return fmt.Errorf("watcher already started")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	watched := 0
	for _, dir := range w.dirs {
		n, err := w.addTree(fsw, dir)
		if err != nil {
			w.logger.Warn("Failed to watch archive directory", "dir", dir, "error", err)
		}
		watched += n
	}
	if watched == 0 {
		fsw.Close()
		return fmt.Errorf("none of the archive directories could be watched")
	}

	w.fsw = fsw
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.started = true

	w.wg.Add(1)
	go w.run()

	w.logger.Info("Watching archive directories", "dirs", w.dirs, "watches", watched)
	return nil
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) (int, error) {
	added := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		added++
		return nil
	})
	return added, err
}

// run is the event loop. It owns the debouncer and calls the handler
// serially.
func (w *Watcher) run() {
	defer w.wg.Done()

	pending := newDebouncer(w.debounce)
	ticker := time.NewTicker(w.debounce / 4)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(pending, ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Filesystem watcher error", "error", err)

		case now := <-ticker.C:
			w.flush(pending.due(now))

		case <-w.stopCh:
			// Pending scans are dropped; the next scan picks them up.
			_, forget := pending.drain()
			w.flush(nil, forget)
			return
		}
	}
}

func (w *Watcher) handleEvent(pending *debouncer, ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.watchNewDir(pending, ev.Name)
			return
		}
	}

	a, ok := classify(ev)
	if !ok {
		return
	}
	w.logger.Debug("Archive event", "path", ev.Name, "op", ev.Op.String())
	pending.add(ev.Name, a, time.Now())
}

// watchNewDir watches a directory created under a watched one and queues
// the archives already inside it, which were written before the watch.
func (w *Watcher) watchNewDir(pending *debouncer, dir string) {
	if _, err := w.addTree(w.fsw, dir); err != nil {
		w.logger.Warn("Failed to watch new directory", "dir", dir, "error", err)
	}
	paths, err := scanner.FindArchives([]string{dir})
	if err != nil {
		w.logger.Warn("Failed to list new directory", "dir", dir, "error", err)
		return
	}
	now := time.Now()
	for _, p := range paths {
		pending.add(p, actionScan, now)
	}
}

func (w *Watcher) flush(scan, forget []string) {
	for _, path := range forget {
		n, err := w.handler.Forget(path)
		if err != nil {
			w.logger.Warn("Failed to forget archive", "path", path, "error", err)
			continue
		}
		w.logger.Info("Forgot removed archive", "path", path, "records", n)
	}

	if len(scan) == 0 {
		return
	}
	res, err := w.handler.ScanFiles(w.ctx, scan)
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Warn("Failed to scan changed archives", "count", len(scan), "error", err)
	}
	if res != nil && res.Run != nil {
		w.logger.Info("Scanned changed archives",
			"archives", res.Run.ArchiveCount,
			"built", res.Run.BuiltCount,
			"skipped", res.Run.SkippedCount,
			"failed", res.Run.FailedCount)
	}
}

// Stop halts the watcher and waits for the event loop to exit. An
// in-flight scan is canceled.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started || w.stopped {
		return nil
	}
	w.stopped = true

	w.cancel()
	close(w.stopCh)
	w.wg.Wait()

	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("failed to close filesystem watcher: %w", err)
	}
	return nil
}
