package pipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/dgallion1/headingmap/internal/doctree"
	"github.com/dgallion1/headingmap/internal/extract"
	"github.com/dgallion1/headingmap/internal/headings"
)

// Analysis is the full result for one document.
type Analysis struct {
	Path        string                `json:"path,omitempty" yaml:"path,omitempty"`
	Occurrences []headings.Occurrence `json:"occurrences" yaml:"occurrences"`
	Forest      *doctree.Forest       `json:"forest" yaml:"forest"`
	Warnings    int                   `json:"warnings" yaml:"warnings"`
	DurationMs  int64                 `json:"duration_ms" yaml:"duration_ms"`

	// Error is set when the document could not be analyzed. The other
	// fields are then empty.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the document could not be analyzed.
func (a Analysis) Failed() bool { return a.Error != "" }

// AnalyzeDocument runs extraction, validation and nesting over one text.
// On failure it returns an empty analysis and the error.
func AnalyzeDocument(ext *extract.Extractor, text string, cfg headings.Config) (Analysis, error) {
	start := time.Now()
	occs, err := ext.Extract(text)
	if err != nil {
		return emptyAnalysis(), err
	}
	return finish(occs, cfg, start), nil
}

func finish(occs []headings.Occurrence, cfg headings.Config, start time.Time) Analysis {
	validated := extract.Validate(occs, cfg)
	if validated == nil {
		validated = []headings.Occurrence{}
	}
	return Analysis{
		Occurrences: validated,
		Forest:      doctree.Build(validated),
		Warnings:    headings.CountWarnings(validated),
		DurationMs:  time.Since(start).Milliseconds(),
	}
}

// AnalyzeFile reads and analyzes path. Failures are recorded on the result
// and also returned. maxBytes <= 0 disables the size check.
func AnalyzeFile(ext *extract.Extractor, path string, cfg headings.Config, maxBytes int64) (Analysis, error) {
	a, err := analyzeFile(ext, path, cfg, maxBytes)
	a.Path = path
	if err != nil {
		a.Error = err.Error()
	}
	return a, err
}

func analyzeFile(ext *extract.Extractor, path string, cfg headings.Config, maxBytes int64) (Analysis, error) {
	start := time.Now()
	if maxBytes > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return emptyAnalysis(), &headings.ReadError{Path: path, Err: err}
		}
		if info.Size() > maxBytes {
			return emptyAnalysis(), &headings.ReadError{
				Path: path,
				Err:  fmt.Errorf("document is %d bytes, limit is %d", info.Size(), maxBytes),
			}
		}
	}

	occs, err := ext.ExtractFile(path)
	if err != nil {
		return emptyAnalysis(), err
	}
	return finish(occs, cfg, start), nil
}

func emptyAnalysis() Analysis {
	return Analysis{
		Occurrences: []headings.Occurrence{},
		Forest:      doctree.Build(nil),
	}
}
