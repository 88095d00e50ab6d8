package crawler

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/dgallion1/headingmap/internal/parser"
)

// DefaultIgnored lists directory names that never hold project components.
var DefaultIgnored = []string{".git", "node_modules", "dist", "vendor"}

// Crawler finds component files under a directory.
type Crawler struct {
	ignored map[string]bool
	log     *slog.Logger
}

// NewCrawler creates a crawler. A nil ignored list means DefaultIgnored.
func NewCrawler(ignored []string) *Crawler {
	if ignored == nil {
		ignored = DefaultIgnored
	}
	c := &Crawler{ignored: make(map[string]bool, len(ignored)), log: slog.Default()}
	for _, name := range ignored {
		c.ignored[name] = true
	}
	return c
}

// WithLogger sets where skipped entries are reported.
func (c *Crawler) WithLogger(log *slog.Logger) *Crawler {
	if log != nil {
		c.log = log
	}
	return c
}

// Ignored reports whether a directory with this name is skipped.
func (c *Crawler) Ignored(name string) bool {
	return c.ignored[name]
}

// ScanProject walks root and calls onFile for every supported component,
// in lexical order. A root that is itself a file is passed through when
// supported. Walking stops early when ctx is done or onFile fails.
func (c *Crawler) ScanProject(ctx context.Context, root string, onFile func(path string) error) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		if parser.IsSupportedExtension(root) {
			return onFile(root)
		}
		return nil
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return c.skip(root, path, d, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			if path != root && c.ignored[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !parser.IsSupportedExtension(d.Name()) {
			return nil
		}
		return onFile(path)
	})
}

// skip handles a walk error. Only a failure on root itself stops the walk;
// an unreadable entry below it is logged and left out.
func (c *Crawler) skip(root, path string, d fs.DirEntry, err error) error {
	if path == root {
		return err
	}
	c.log.Warn("skipping unreadable entry", "path", path, "error", err)
	if d != nil && d.IsDir() {
		return filepath.SkipDir
	}
	return nil
}

// Files collects the supported components under root.
func (c *Crawler) Files(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := c.ScanProject(ctx, root, func(path string) error {
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
