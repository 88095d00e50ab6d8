package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/headingmap/internal/crawler"
	"github.com/dgallion1/headingmap/internal/extract"
	"github.com/dgallion1/headingmap/internal/headings"
)

// SweepOptions controls a project-wide sweep.
type SweepOptions struct {
	Config headings.Config

	// Concurrency bounds parallel documents. <= 0 means GOMAXPROCS.
	Concurrency int

	MaxDocumentBytes int64

	// Ignored directory names; nil uses the crawler defaults.
	Ignored []string

	// IncludeEmpty keeps documents that produced no headings.
	IncludeEmpty bool

	Extractor *extract.Extractor
	Stats     *AnalysisStats
	Log       *slog.Logger

	// OnDiscover is called once with the number of files found.
	OnDiscover func(total int)
	// OnResult is called for every analyzed document, possibly concurrently.
	OnResult func(Analysis)
}

// SweepResult maps document paths to their analyses.
type SweepResult struct {
	Root     string              `json:"root" yaml:"root"`
	Files    map[string]Analysis `json:"files" yaml:"files"`
	Scanned  int                 `json:"scanned" yaml:"scanned"`
	Failed   int                 `json:"failed" yaml:"failed"`
	Warnings int                 `json:"warnings" yaml:"warnings"`
}

// Paths returns the result paths in lexical order.
func (r *SweepResult) Paths() []string {
	paths := make([]string, 0, len(r.Files))
	for p := range r.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Sweep analyzes every component under root. Documents are independent and
// run concurrently; a failing document is recorded on its own result and
// never stops the others. When ctx is cancelled the partial result is
// discarded and ctx's error returned.
func Sweep(ctx context.Context, root string, opts SweepOptions) (*SweepResult, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	ext := opts.Extractor
	if ext == nil {
		ext = extract.NewExtractor(nil)
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	files, err := crawler.NewCrawler(opts.Ignored).WithLogger(log).Files(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", root, err)
	}
	if opts.OnDiscover != nil {
		opts.OnDiscover(len(files))
	}
	log.Info("sweep started", "root", root, "files", len(files))

	res := &SweepResult{Root: root, Files: make(map[string]Analysis, len(files))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			a, err := AnalyzeFile(ext, path, opts.Config, opts.MaxDocumentBytes)
			if err != nil {
				log.Warn("document failed", "path", path, "error", err)
			} else {
				log.Debug("document analyzed", "path", path,
					"occurrences", len(a.Occurrences), "warnings", a.Warnings, "duration_ms", a.DurationMs)
			}
			if opts.Stats != nil {
				opts.Stats.Record(a)
			}
			if opts.OnResult != nil {
				opts.OnResult(a)
			}

			mu.Lock()
			defer mu.Unlock()
			res.Scanned++
			if a.Failed() {
				res.Failed++
			}
			res.Warnings += a.Warnings
			if a.Failed() || len(a.Occurrences) > 0 || opts.IncludeEmpty {
				res.Files[path] = a
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Info("sweep finished", "root", root, "scanned", res.Scanned, "failed", res.Failed, "warnings", res.Warnings)
	return res, nil
}
