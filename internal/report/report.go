// Package report writes analyses for the command line.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/headingmap/internal/pipeline"
)

// Format selects how analyses are written.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts text, json or yaml. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown output format: %s", s)
}

// Summary totals a set of analyses.
type Summary struct {
	Files    int `json:"files" yaml:"files"`
	Headings int `json:"headings" yaml:"headings"`
	Warnings int `json:"warnings" yaml:"warnings"`
	Failures int `json:"failures" yaml:"failures"`
}

// Summarize totals analyses.
func Summarize(analyses []pipeline.Analysis) Summary {
	s := Summary{Files: len(analyses)}
	for _, a := range analyses {
		s.Headings += len(a.Occurrences)
		s.Warnings += a.Warnings
		if a.Failed() {
			s.Failures++
		}
	}
	return s
}

type document struct {
	Summary  Summary             `json:"summary" yaml:"summary"`
	Analyses []pipeline.Analysis `json:"analyses" yaml:"analyses"`
}

// Write renders analyses to w in the given format. Text output lists only
// warnings and failures, one per line, followed by a summary.
func Write(w io.Writer, format Format, analyses []pipeline.Analysis) error {
	if analyses == nil {
		analyses = []pipeline.Analysis{}
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(document{Summary: Summarize(analyses), Analyses: analyses})
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(document{Summary: Summarize(analyses), Analyses: analyses})
	case FormatText, "":
		return writeText(w, analyses)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func writeText(w io.Writer, analyses []pipeline.Analysis) error {
	for _, a := range analyses {
		if a.Failed() {
			if _, err := fmt.Fprintf(w, "%s: error: %s\n", a.Path, a.Error); err != nil {
				return err
			}
			continue
		}
		for _, o := range a.Occurrences {
			if !o.HasWarning {
				continue
			}
			_, err := fmt.Fprintf(w, "%s:%s: %s %q [%s]: %s\n",
				a.Path, o.Position, o.Tag(), o.Content, o.Dialect, o.WarningMessage)
			if err != nil {
				return err
			}
		}
	}
	s := Summarize(analyses)
	_, err := fmt.Fprintf(w, "%d files, %d headings, %d warnings, %d failures\n",
		s.Files, s.Headings, s.Warnings, s.Failures)
	return err
}
