package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/headingmap/internal/api"
	"github.com/dgallion1/headingmap/internal/config"
	"github.com/dgallion1/headingmap/internal/headings"
	"github.com/dgallion1/headingmap/internal/pipeline"
	"github.com/dgallion1/headingmap/internal/report"
)

var (
	cfgFile       string
	outputFormat  string
	logLevel      string
	noRequireH1   bool
	noSkipWarning bool
	failOnWarning bool
)

var rootCmd = &cobra.Command{
	Use:   "headingmap",
	Short: "Map and check the heading structure of Vue components",
	Long: `headingmap finds the headings declared in Vue single-file components,
checks their order and nesting, and reports an outline per component.

Headings are recognized from literal <h1>-<h6> tags, heading-level
attributes, conditional tags, render functions, computed tag names,
JSX in the script block and <component :is> bindings.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./headingmap.yaml or ~/.headingmap/headingmap.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "text", "output format: text, json or yaml",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn or error (default from config)",
	)
	rootCmd.PersistentFlags().BoolVar(
		&noRequireH1, "no-require-h1", false, "do not require the first heading to be h1",
	)
	rootCmd.PersistentFlags().BoolVar(
		&noSkipWarning, "no-skip-warning", false, "do not warn when a heading level is skipped",
	)
	rootCmd.PersistentFlags().BoolVar(
		&failOnWarning, "fail-on-warning", false, "exit non-zero when any heading has a warning",
	)

	rootCmd.AddCommand(checkCmd, scanCmd, serveCmd, watchCmd, versionCmd)
}

// loadConfig reads the config and applies the logging flag.
func loadConfig() (*config.Manager, error) {
	m, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		if _, err := config.ParseLogLevel(logLevel); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// rules returns the validation switches from cfg with the rule flags applied.
func rules(cfg config.Config) headings.Config {
	r := cfg.Validation()
	if noRequireH1 {
		r.RequireH1AsFirstHeading = false
	}
	if noSkipWarning {
		r.WarnOnHeadingLevelSkip = false
	}
	return r
}

// overrides carries the effective rules to a server.
func overrides(r headings.Config) *api.RuleOverrides {
	return &api.RuleOverrides{
		RequireH1AsFirstHeading: &r.RequireH1AsFirstHeading,
		WarnOnHeadingLevelSkip:  &r.WarnOnHeadingLevelSkip,
	}
}

// cliLogger logs to stderr so stdout only carries the report.
func cliLogger(cfg config.Config) *slog.Logger {
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	l, _ := config.ParseLogLevel(level)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func outputAs() (report.Format, error) {
	return report.ParseFormat(outputFormat)
}

// finish writes analyses and turns failures or, with --fail-on-warning,
// warnings into a command error.
func finish(analyses []pipeline.Analysis) error {
	format, err := outputAs()
	if err != nil {
		return err
	}
	if err := report.Write(os.Stdout, format, analyses); err != nil {
		return err
	}
	s := report.Summarize(analyses)
	if s.Failures > 0 {
		return fmt.Errorf("%d of %d files could not be analyzed", s.Failures, s.Files)
	}
	if failOnWarning && s.Warnings > 0 {
		return fmt.Errorf("found %d heading warnings", s.Warnings)
	}
	return nil
}
