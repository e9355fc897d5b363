// Package watcher keeps inbox directories in sync with the knowledge base:
// files dropped into a watched directory are ingested, files removed or
// renamed away are deleted.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Handler applies file changes to the knowledge base.
type Handler interface {
	// IngestFile ingests or re-ingests the file at path.
	IngestFile(ctx context.Context, path string) error
	// RemoveFile deletes the article of a file that no longer exists.
	RemoveFile(ctx context.Context, path string) error
	// SyncDirectory ingests files under root that changed since their last ingestion.
	SyncDirectory(ctx context.Context, root string) error
}

// Stats counts handled file events.
type Stats struct {
	Directories []string `json:"directories"`
	Pending     int      `json:"pending"`
	Ingested    int64    `json:"ingested"`
	Removed     int64    `json:"removed"`
	Failed      int64    `json:"failed"`
}

// Watcher watches inbox directories and forwards debounced changes to a Handler.
type Watcher struct {
	roots       []string
	extensions  []string
	recursive   bool
	handler     Handler
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	ctx         context.Context
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	rootPaths   map[string][]string // root -> watched directories under it
	done        chan struct{}
	started     bool
	logger      *zap.Logger

	ingested atomic.Int64
	removed  atomic.Int64
	failed   atomic.Int64
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a file must stay quiet before it is ingested.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher creates a watcher over roots. extensions filters files (empty
// means all); recursive also watches subdirectories.
func NewWatcher(roots, extensions []string, recursive bool, handler Handler, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		roots:       append([]string(nil), roots...),
		extensions:  extensions,
		recursive:   recursive,
		handler:     handler,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		rootPaths:   make(map[string][]string),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It returns once every root is registered; events
// are handled until ctx is cancelled or Stop is called. A stopped watcher
// can be started again.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fw
	w.logger.Debug("Inbox watcher starting",
		zap.Strings("roots", w.roots), zap.Strings("extensions", w.extensions), zap.Bool("recursive", w.recursive))
	for i, root := range w.roots {
		abs, err := filepath.Abs(root)
		if err == nil {
			err = w.addRootLocked(abs)
		}
		if err != nil {
			_ = fw.Close()
			w.watcher = nil
			clear(w.rootPaths)
			return err
		}
		w.roots[i] = abs
	}
	done := make(chan struct{})
	w.done = done
	w.ctx = ctx
	w.started = true
	go w.run(ctx, fw, done)
	return nil
}

// run owns fw and done for one Start/Stop cycle and never reads w.watcher.
func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			w.stop(done)
			return
		case <-done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Inbox watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if !w.underRoot(path) || ignored(path) {
		return
	}
	w.logger.Debug("Inbox event", zap.String("op", ev.Op.String()), zap.String("path", path))

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if err == nil && w.matchExtension(path) {
			w.debounceIngest(path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancelDebounce(path)
		if w.matchExtension(path) {
			w.remove(path)
		}
	}
}

// ignored filters editor swap files and other hidden or temporary files.
func ignored(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") || strings.HasSuffix(base, ".tmp")
}

func (w *Watcher) handleNewDirectory(dirPath string) {
	w.mu.Lock()
	fw := w.watcher
	recursive := w.recursive
	w.mu.Unlock()
	if fw == nil || !recursive {
		return
	}
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := fw.Add(path); err != nil {
				w.logger.Debug("Failed to watch directory", zap.String("path", path), zap.Error(err))
			}
		}
		return nil
	})
	w.sync(dirPath)
}

func (w *Watcher) underRoot(path string) bool {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	clean := filepath.Clean(path)
	for _, root := range roots {
		rootClean := filepath.Clean(root)
		if rootClean == clean || inDir(rootClean, clean) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) matchExtension(path string) bool {
	return matchExtension(path, w.extensions)
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	extNorm := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == extNorm {
			return true
		}
	}
	return false
}

func (w *Watcher) baseContext() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx == nil {
		return context.Background()
	}
	return w.ctx
}

func (w *Watcher) debounceIngest(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.ingest(path)
	})
}

func (w *Watcher) ingest(path string) {
	if err := w.handler.IngestFile(w.baseContext(), path); err != nil {
		w.failed.Add(1)
		w.logger.Warn("Inbox ingest failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.ingested.Add(1)
	w.logger.Info("Inbox file ingested", zap.String("path", path))
}

func (w *Watcher) remove(path string) {
	if err := w.handler.RemoveFile(w.baseContext(), path); err != nil {
		w.failed.Add(1)
		w.logger.Warn("Inbox removal failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.removed.Add(1)
	w.logger.Info("Inbox file removed", zap.String("path", path))
}

func (w *Watcher) sync(root string) {
	if err := w.handler.SyncDirectory(w.baseContext(), root); err != nil {
		w.failed.Add(1)
		w.logger.Warn("Inbox sync failed", zap.String("root", root), zap.Error(err))
	}
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

// AddDirectory starts watching root, creating it if missing, and optionally
// ingests the files already in it.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	for _, r := range w.roots {
		if filepath.Clean(r) == abs {
			return nil
		}
	}
	if err := w.addRootLocked(abs); err != nil {
		return err
	}
	w.roots = append(w.roots, abs)
	w.logger.Debug("Inbox directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if syncExisting {
		go w.sync(abs)
	}
	return nil
}

func (w *Watcher) addRootLocked(root string) error {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	var paths []string
	if w.recursive {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if err := w.watcher.Add(path); err != nil {
				return err
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			return err
		}
	} else {
		if err := w.watcher.Add(root); err != nil {
			return err
		}
		paths = append(paths, root)
	}
	w.rootPaths[root] = paths
	return nil
}

// RemoveDirectory stops watching root. Articles already ingested stay.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	idx := -1
	for i, r := range w.roots {
		if filepath.Clean(r) == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	for _, p := range w.rootPaths[abs] {
		_ = w.watcher.Remove(p)
	}
	delete(w.rootPaths, abs)
	w.roots = append(w.roots[:idx], w.roots[idx+1:]...)
	for path, t := range w.debounceMap {
		if inDir(abs, path) {
			t.Stop()
			delete(w.debounceMap, path)
		}
	}
	w.logger.Debug("Inbox directory removed", zap.String("path", abs))
	return nil
}

// Directories returns the watched root directories.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// SyncExistingFiles ingests changed files already present in every root.
// Call it after Start.
func (w *Watcher) SyncExistingFiles() {
	for _, root := range w.Directories() {
		w.sync(root)
	}
}

// Stats reports watched roots and event counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	s := Stats{
		Directories: append([]string(nil), w.roots...),
		Pending:     len(w.debounceMap),
	}
	w.mu.Unlock()
	s.Ingested = w.ingested.Load()
	s.Removed = w.removed.Load()
	s.Failed = w.failed.Load()
	return s
}

// Stop stops the watcher and drops pending ingestions.
func (w *Watcher) Stop() {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	w.stop(done)
}

// stop ends the cycle that owns done; a later cycle is left running.
func (w *Watcher) stop(done chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started || w.done != done {
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	clear(w.rootPaths)
	w.started = false
	close(done)
}
