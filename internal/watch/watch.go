// Package watch re-analyzes components as they change on disk.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dgallion1/headingmap/internal/crawler"
	"github.com/dgallion1/headingmap/internal/extract"
	"github.com/dgallion1/headingmap/internal/headings"
	"github.com/dgallion1/headingmap/internal/parser"
	"github.com/dgallion1/headingmap/internal/pipeline"
)

// DefaultDebounce is the quiet period before a changed file is analyzed.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Debounce         time.Duration
	Ignored          []string
	MaxDocumentBytes int64
	Extractor        *extract.Extractor
	Log              *slog.Logger

	// Rules is consulted for every analysis so config reloads apply to the
	// next change. Nil means headings.DefaultConfig.
	Rules func() headings.Config
}

// Event is one re-analysis. Removed is set when the file is gone.
type Event struct {
	Path     string
	Removed  bool
	Analysis pipeline.Analysis
}

// Watcher watches directory trees for component changes.
type Watcher struct {
	fs      *fsnotify.Watcher
	opts    Options
	crawler *crawler.Crawler
	log     *slog.Logger

	mu    sync.Mutex
	roots []string

	ready   chan string
	refresh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// New creates a watcher. Call Add for each root, then Run.
func New(opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Extractor == nil {
		opts.Extractor = extract.NewExtractor(nil)
	}
	if opts.Rules == nil {
		opts.Rules = headings.DefaultConfig
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		fs:      fw,
		opts:    opts,
		crawler: crawler.NewCrawler(opts.Ignored),
		log:     log,
		ready:   make(chan string, 64),
		refresh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}, nil
}

// Add watches root and every non-ignored directory below it.
func (w *Watcher) Add(root string) error {
	if err := w.addTree(root); err != nil {
		return err
	}
	w.mu.Lock()
	w.roots = append(w.roots, root)
	w.mu.Unlock()
	return nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.crawler.Ignored(d.Name()) {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

// Refresh re-analyzes every component under the watched roots, for example
// after the validation rules changed.
func (w *Watcher) Refresh() {
	select {
	case w.refresh <- struct{}{}:
	default:
	}
}

// Run delivers events to onEvent until ctx is done or Close is called.
// onEvent runs on the Run goroutine.
func (w *Watcher) Run(ctx context.Context, onEvent func(Event)) error {
	d := newDebouncer(w.opts.Debounce, w.ready, ctx.Done(), w.done)
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ev, d.schedule)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)

		case path := <-w.ready:
			d.fired(path)
			onEvent(w.analyze(path))

		case <-w.refresh:
			for _, root := range w.snapshotRoots() {
				err := w.crawler.ScanProject(ctx, root, func(path string) error {
					d.schedule(path)
					return nil
				})
				if err != nil {
					w.log.Warn("refresh failed", "root", root, "error", err)
				}
			}
		}
	}
}

// debouncer holds one timer per path. All methods except send run on the
// Run goroutine. A path stays pending from its first schedule until Run
// reads it from ready.
type debouncer struct {
	delay   time.Duration
	ready   chan<- string
	done    <-chan struct{}
	closed  <-chan struct{}
	pending map[string]*time.Timer
}

func newDebouncer(delay time.Duration, ready chan<- string, done, closed <-chan struct{}) *debouncer {
	return &debouncer{
		delay:   delay,
		ready:   ready,
		done:    done,
		closed:  closed,
		pending: make(map[string]*time.Timer),
	}
}

// schedule (re)starts the quiet period for path. A path whose timer already
// fired is queued on ready and will be analyzed with its latest contents,
// so it is not scheduled again.
func (d *debouncer) schedule(path string) {
	if t, ok := d.pending[path]; ok {
		if t.Stop() {
			t.Reset(d.delay)
		}
		return
	}
	d.pending[path] = time.AfterFunc(d.delay, func() { d.send(path) })
}

// send runs on the timer goroutine and gives up once Run has stopped.
func (d *debouncer) send(path string) {
	select {
	case d.ready <- path:
	case <-d.done:
	case <-d.closed:
	}
}

// fired forgets path once Run has taken it from ready.
func (d *debouncer) fired(path string) {
	delete(d.pending, path)
}

func (d *debouncer) stop() {
	for _, t := range d.pending {
		t.Stop()
	}
}

func (w *Watcher) handle(ev fsnotify.Event, schedule func(string)) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if w.crawler.Ignored(filepath.Base(ev.Name)) {
				return
			}
			if err := w.addTree(ev.Name); err != nil {
				w.log.Warn("watch directory failed", "path", ev.Name, "error", err)
			}
			// Files may land before the directory watch is in place.
			_ = w.crawler.ScanProject(context.Background(), ev.Name, func(path string) error {
				schedule(path)
				return nil
			})
			return
		}
	}
	if !parser.IsSupportedExtension(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		schedule(ev.Name)
	}
}

func (w *Watcher) analyze(path string) Event {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		w.log.Debug("component removed", "path", path)
		return Event{Path: path, Removed: true}
	}

	a, err := pipeline.AnalyzeFile(w.opts.Extractor, path, w.opts.Rules(), w.opts.MaxDocumentBytes)
	if err != nil {
		w.log.Warn("analysis failed", "path", path, "error", err)
	} else {
		w.log.Debug("component analyzed", "path", path, "occurrences", len(a.Occurrences), "warnings", a.Warnings)
	}
	return Event{Path: path, Analysis: a}
}

func (w *Watcher) snapshotRoots() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.roots))
	copy(out, w.roots)
	return out
}

// Close stops Run and releases the OS watches.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
	})
	return err
}
