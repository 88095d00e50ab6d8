package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/headingmap/internal/api"
	"github.com/dgallion1/headingmap/internal/apiclient"
	"github.com/dgallion1/headingmap/internal/extract"
	"github.com/dgallion1/headingmap/internal/headings"
	"github.com/dgallion1/headingmap/internal/parser"
	"github.com/dgallion1/headingmap/internal/pipeline"
)

var (
	checkServer string
	checkAPIKey string
)

var checkCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "Check the headings of one or more components",
	Long: `Check extracts and validates the headings of each component given.

With --server the documents are sent to a running "headingmap serve"
instead of being analyzed locally.

Examples:
  headingmap check src/App.vue
  headingmap check -o json src/components/*.vue
  headingmap check --server http://localhost:8090 src/App.vue`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := m.Get()
		log := cliLogger(cfg)
		r := rules(cfg)

		var analyses []pipeline.Analysis
		if checkServer != "" {
			client := apiclient.NewClient(checkServer, checkAPIKey)
			defer client.Close()
			for _, path := range args {
				analyses = append(analyses, checkRemote(cmd, client, path, r, cfg.MaxDocumentBytes))
			}
			return finish(analyses)
		}

		ext := extract.NewExtractor(nil)
		for _, path := range args {
			if !parser.IsSupportedExtension(path) {
				analyses = append(analyses, unsupported(path))
				continue
			}
			a, err := pipeline.AnalyzeFile(ext, path, r, cfg.MaxDocumentBytes)
			if err != nil {
				log.Debug("analysis failed", "path", path, "error", err)
			}
			analyses = append(analyses, a)
		}
		return finish(analyses)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkServer, "server", "", "analyze on a headingmap server at this URL")
	checkCmd.Flags().StringVar(&checkAPIKey, "api-key", os.Getenv("HEADINGMAP_API_KEY"), "bearer token for --server")
}

func checkRemote(cmd *cobra.Command, client *apiclient.Client, path string, r headings.Config, maxBytes int64) pipeline.Analysis {
	fail := func(err error) pipeline.Analysis {
		return pipeline.Analysis{Path: path, Occurrences: []headings.Occurrence{}, Error: err.Error()}
	}
	if !parser.IsSupportedExtension(path) {
		return unsupported(path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fail(err)
	}
	if info.Size() > maxBytes {
		return fail(fmt.Errorf("file exceeds max size (%d bytes)", maxBytes))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fail(err)
	}

	resp, err := client.Analyze(cmd.Context(), api.AnalyzeRequest{
		Filename: filepath.Base(path),
		Text:     string(data),
		Config:   overrides(r),
	})
	if err != nil {
		return fail(err)
	}
	return pipeline.Analysis{
		Path:        path,
		Occurrences: resp.Occurrences,
		Forest:      resp.Forest,
		Warnings:    resp.Warnings,
		DurationMs:  resp.DurationMs,
	}
}

func unsupported(path string) pipeline.Analysis {
	return pipeline.Analysis{
		Path:        path,
		Occurrences: []headings.Occurrence{},
		Error:       fmt.Sprintf("unsupported file type: %s", filepath.Ext(path)),
	}
}
