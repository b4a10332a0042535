// Package watcher runs a recursive filesystem watch over the library
// directory on a dedicated goroutine, coalescing event bursts into a single
// rescan and publishing atomic (tracks, playlists) snapshots to the UI
// thread.
package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"aria/internal/library"
	"aria/pkg/models"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// ErrWatch means the filesystem watch could not be established.
var ErrWatch = errors.New("watcher: cannot watch path")

// DefaultDebounce is the quiet period after a burst of filesystem events
// before a rescan is triggered.
const DefaultDebounce = 2 * time.Second

type commandKind int

const (
	cmdRefresh commandKind = iota
	cmdChangePath
	cmdShutdown
)

type command struct {
	kind commandKind
	path string
}

// Watcher owns the fsnotify handle and the scanning goroutine. Commands are
// processed strictly in send order; results are delivered as atomic
// snapshots that the consumer drains without blocking, once per tick.
type Watcher struct {
	scanner  *library.Scanner
	logger   *logrus.Logger
	fsw      *fsnotify.Watcher
	debounce time.Duration

	commands chan command
	results  chan models.Snapshot
	done     chan struct{}
}

// New creates the watcher and starts its goroutine. No path is watched until
// ChangeWatchedPath is called.
func New(scanner *library.Scanner, logger *logrus.Logger, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatch, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		scanner:  scanner,
		logger:   logger,
		fsw:      fsw,
		debounce: debounce,
		commands: make(chan command, 16),
		results:  make(chan models.Snapshot, 1),
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Results is the snapshot channel. Consumers must drain it non-blocking.
func (w *Watcher) Results() <-chan models.Snapshot {
	return w.results
}

// Refresh forces a rescan of the currently watched path.
func (w *Watcher) Refresh() {
	w.send(command{kind: cmdRefresh})
}

// ChangeWatchedPath unwatches the old path, watches the new one, and
// triggers a rescan. A watch failure is logged and leaves the watcher with
// no active path; it keeps serving commands.
func (w *Watcher) ChangeWatchedPath(path string) {
	w.send(command{kind: cmdChangePath, path: path})
}

// Shutdown terminates the watcher goroutine. Safe to call more than once.
func (w *Watcher) Shutdown() {
	select {
	case <-w.done:
		return
	default:
	}
	w.send(command{kind: cmdShutdown})
}

func (w *Watcher) send(cmd command) {
	select {
	case w.commands <- cmd:
	case <-w.done:
	}
}

func (w *Watcher) run() {
	defer w.fsw.Close()
	defer close(w.done)

	var current string
	debounce := time.NewTimer(w.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false

	for {
		select {
		case cmd := <-w.commands:
			switch cmd.kind {
			case cmdShutdown:
				w.logger.Info("Library watcher shutting down")
				return
			case cmdRefresh:
				w.rescan(current)
			case cmdChangePath:
				if current != "" {
					w.unwatchTree(current)
				}
				if err := w.watchTree(cmd.path); err != nil {
					w.logger.WithFields(logrus.Fields{
						"path":  cmd.path,
						"error": err.Error(),
					}).Error("Failed to watch new library directory")
					current = ""
					continue
				}
				current = cmd.path
				w.rescan(current)
			}

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevantEvent(event) {
				continue
			}
			// New subdirectories join the recursive watch.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.fsw.Add(event.Name); err != nil {
						w.logger.WithError(err).Warn("Failed to watch new directory")
					}
				}
			}
			if pending {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
			}
			debounce.Reset(w.debounce)
			pending = true

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("Filesystem watch error")

		case <-debounce.C:
			pending = false
			w.rescan(current)
		}
	}
}

// relevantEvent filters out temporary and hidden files.
func (w *Watcher) relevantEvent(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
		return false
	}
	return true
}

// rescan scans the current path and publishes the snapshot. A stale
// undrained snapshot is replaced by the new one, so the consumer always
// sees the latest state and the goroutine never blocks on a slow receiver.
func (w *Watcher) rescan(path string) {
	if path == "" {
		return
	}
	snapshot, err := w.scanner.Scan(path)
	if err != nil {
		w.logger.WithFields(logrus.Fields{
			"path":  path,
			"error": err.Error(),
		}).Error("Library rescan failed")
		return
	}

	select {
	case <-w.results:
	default:
	}
	select {
	case w.results <- snapshot:
	default:
	}
}

func (w *Watcher) watchTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("%w: %v", ErrWatch, err)
		}
		if info.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("%w: %v", ErrWatch, err)
			}
		}
		return nil
	})
}

func (w *Watcher) unwatchTree(root string) {
	for _, watched := range w.fsw.WatchList() {
		if watched == root || strings.HasPrefix(watched, root+string(os.PathSeparator)) {
			if err := w.fsw.Remove(watched); err != nil {
				w.logger.WithError(err).Debug("Failed to unwatch directory")
			}
		}
	}
}
