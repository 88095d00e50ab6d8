package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/headingmap/internal/headings"
)

const page = "<template>\n  <h1>Title</h1>\n  <h3>Skip</h3>\n</template>\n"

func startWatcher(t *testing.T, root string, opts Options) <-chan Event {
	t.Helper()
	opts.Debounce = 30 * time.Millisecond
	opts.Log = slog.New(slog.NewTextHandler(io.Discard, nil))

	w, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, w.Add(root))

	events := make(chan Event, 16)
	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx, func(e Event) { events <- e })
	t.Cleanup(func() {
		cancel()
		w.Close()
	})
	return events
}

func next(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch event")
		return Event{}
	}
}

func TestWatcher_AnalyzesChangedFile(t *testing.T) {
	root := t.TempDir()
	events := startWatcher(t, root, Options{})

	path := filepath.Join(root, "Page.vue")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o644))

	e := next(t, events)
	assert.Equal(t, path, e.Path)
	assert.False(t, e.Removed)
	assert.Len(t, e.Analysis.Occurrences, 2)
	assert.Equal(t, 1, e.Analysis.Warnings)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	events := startWatcher(t, root, Options{})

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("# x"), 0o644))
	path := filepath.Join(root, "App.vue")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o644))

	assert.Equal(t, path, next(t, events).Path)
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	root := t.TempDir()
	events := startWatcher(t, root, Options{})

	dir := filepath.Join(root, "components")
	require.NoError(t, os.Mkdir(dir, 0o755))
	// Give the watcher a moment to register the new directory.
	time.Sleep(50 * time.Millisecond)
	path := filepath.Join(dir, "Card.vue")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o644))

	assert.Equal(t, path, next(t, events).Path)
}

func TestWatcher_Removed(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "Gone.vue")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o644))
	events := startWatcher(t, root, Options{})

	require.NoError(t, os.Remove(path))

	e := next(t, events)
	assert.Equal(t, path, e.Path)
	assert.True(t, e.Removed)
}

func TestWatcher_RefreshUsesCurrentRules(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "Page.vue")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o644))

	var skipOff atomic.Bool
	rules := func() headings.Config {
		cfg := headings.DefaultConfig()
		cfg.WarnOnHeadingLevelSkip = !skipOff.Load()
		return cfg
	}

	opts := Options{Rules: rules, Debounce: 30 * time.Millisecond, Log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	w, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, w.Add(root))
	events := make(chan Event, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer w.Close()
	go w.Run(ctx, func(e Event) { events <- e })

	skipOff.Store(true)
	w.Refresh()

	e := next(t, events)
	assert.Equal(t, path, e.Path)
	assert.Equal(t, 0, e.Analysis.Warnings)
}

func TestDebouncer_FiredPathNotRequeued(t *testing.T) {
	ready := make(chan string, 4)
	d := newDebouncer(10*time.Millisecond, ready, nil, nil)
	defer d.stop()

	d.schedule("a.vue")
	require.Eventually(t, func() bool { return len(ready) == 1 }, time.Second, 5*time.Millisecond)

	// A change arriving before Run reads the queued path is covered by
	// that pending analysis.
	d.schedule("a.vue")
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, ready, 1)

	assert.Equal(t, "a.vue", <-ready)
	d.fired("a.vue")
	d.schedule("a.vue")
	require.Eventually(t, func() bool { return len(ready) == 1 }, time.Second, 5*time.Millisecond)
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	ready := make(chan string, 4)
	d := newDebouncer(40*time.Millisecond, ready, nil, nil)
	defer d.stop()

	for range 5 {
		d.schedule("b.vue")
	}
	time.Sleep(150 * time.Millisecond)
	assert.Len(t, ready, 1)
}

func TestDebouncer_SendStopsWithRun(t *testing.T) {
	for _, name := range []string{"done", "closed"} {
		t.Run(name, func(t *testing.T) {
			stop := make(chan struct{})
			var d *debouncer
			if name == "done" {
				d = newDebouncer(time.Millisecond, make(chan string), stop, nil)
			} else {
				d = newDebouncer(time.Millisecond, make(chan string), nil, stop)
			}

			finished := make(chan struct{})
			go func() {
				d.send("c.vue")
				close(finished)
			}()
			close(stop)

			select {
			case <-finished:
			case <-time.After(time.Second):
				t.Fatal("send still blocked after stop")
			}
		})
	}
}
