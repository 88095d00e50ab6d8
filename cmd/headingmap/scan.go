package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/headingmap/internal/api"
	"github.com/dgallion1/headingmap/internal/apiclient"
	"github.com/dgallion1/headingmap/internal/pipeline"
)

var (
	scanServer       string
	scanAPIKey       string
	scanIncludeEmpty bool
	scanConcurrency  int
)

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "Check every component under a directory",
	Long: `Scan walks a project directory and checks every .vue file below it.
Directories such as node_modules and .git are skipped (see ignored_dirs).

With --server the directory is scanned by a running "headingmap serve";
it must then be a path on the server's filesystem.

Examples:
  headingmap scan
  headingmap scan ./src --fail-on-warning
  headingmap scan --server http://localhost:8090 /srv/app`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return err
		}

		m, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := m.Get()
		log := cliLogger(cfg)
		r := rules(cfg)

		var res *pipeline.SweepResult
		if scanServer != "" {
			res, err = scanRemote(cmd, abs, overrides(r))
		} else {
			concurrency := cfg.MaxConcurrentFiles
			if scanConcurrency > 0 {
				concurrency = scanConcurrency
			}
			res, err = pipeline.Sweep(cmd.Context(), abs, pipeline.SweepOptions{
				Config:           r,
				Concurrency:      concurrency,
				MaxDocumentBytes: cfg.MaxDocumentBytes,
				Ignored:          cfg.IgnoredDirs,
				IncludeEmpty:     scanIncludeEmpty,
				Log:              log,
			})
		}
		if err != nil {
			return err
		}

		analyses := make([]pipeline.Analysis, 0, len(res.Files))
		for _, p := range res.Paths() {
			a := res.Files[p]
			if rel, err := filepath.Rel(abs, p); err == nil && rel != "." {
				a.Path = rel
			}
			analyses = append(analyses, a)
		}
		return finish(analyses)
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanServer, "server", "", "scan on a headingmap server at this URL")
	scanCmd.Flags().StringVar(&scanAPIKey, "api-key", os.Getenv("HEADINGMAP_API_KEY"), "bearer token for --server")
	scanCmd.Flags().BoolVar(&scanIncludeEmpty, "include-empty", false, "report components without headings")
	scanCmd.Flags().IntVar(&scanConcurrency, "concurrency", 0, "files analyzed in parallel (default from config)")
}

func scanRemote(cmd *cobra.Command, root string, rules *api.RuleOverrides) (*pipeline.SweepResult, error) {
	client := apiclient.NewClient(scanServer, scanAPIKey)
	defer client.Close()

	ctx := cmd.Context()
	accepted, err := client.Scan(ctx, api.ScanRequest{Root: root, Config: rules})
	if err != nil {
		return nil, err
	}
	snap, err := client.WaitScan(ctx, accepted.JobID, 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	if snap.Status == pipeline.StatusCancelled {
		return nil, fmt.Errorf("scan %s was cancelled", accepted.JobID)
	}
	res, err := client.ScanResults(ctx, accepted.JobID)
	if err != nil {
		return nil, fmt.Errorf("scan %s %s: %w (errors: %v)", accepted.JobID, snap.Status, err, snap.Progress.Errors)
	}
	return res, nil
}
