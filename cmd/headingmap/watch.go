package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dgallion1/headingmap/internal/config"
	"github.com/dgallion1/headingmap/internal/headings"
	"github.com/dgallion1/headingmap/internal/pipeline"
	"github.com/dgallion1/headingmap/internal/report"
	"github.com/dgallion1/headingmap/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]...",
	Short: "Re-check components as they change",
	Long: `Watch checks every component under the given directories once, then
re-checks each file shortly after it is saved.

Editing the config file re-applies its validation rules to every watched
component.

Examples:
  headingmap watch
  headingmap watch ./src ./packages/ui`,
	RunE: func(cmd *cobra.Command, args []string) error {
		roots := args
		if len(roots) == 0 {
			roots = []string{"."}
		}
		format, err := outputAs()
		if err != nil {
			return err
		}

		m, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := m.Get()
		log := cliLogger(cfg)

		var mu sync.RWMutex
		current := rules(cfg)

		w, err := watch.New(watch.Options{
			Debounce:         cfg.WatchDebounce,
			Ignored:          cfg.IgnoredDirs,
			MaxDocumentBytes: cfg.MaxDocumentBytes,
			Log:              log,
			Rules: func() headings.Config {
				mu.RLock()
				defer mu.RUnlock()
				return current
			},
		})
		if err != nil {
			return err
		}
		defer w.Close()

		for _, root := range roots {
			abs, err := filepath.Abs(root)
			if err != nil {
				return err
			}
			if err := w.Add(abs); err != nil {
				return fmt.Errorf("watch %s: %w", root, err)
			}
			log.Info("watching", "root", abs)
		}

		if m.ConfigFile() != "" {
			m.OnChange(func(next config.Config) {
				mu.Lock()
				current = rules(next)
				mu.Unlock()
				log.Info("config reloaded, re-checking", "file", m.ConfigFile())
				w.Refresh()
			})
			m.WatchConfig()
		}

		w.Refresh()
		err = w.Run(cmd.Context(), func(e watch.Event) {
			if e.Removed {
				fmt.Fprintf(os.Stdout, "%s: removed\n", e.Path)
				return
			}
			if err := report.Write(os.Stdout, format, []pipeline.Analysis{e.Analysis}); err != nil {
				log.Warn("write report", "error", err)
			}
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
