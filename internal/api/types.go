package api

import (
	"github.com/dgallion1/headingmap/internal/doctree"
	"github.com/dgallion1/headingmap/internal/headings"
	"github.com/dgallion1/headingmap/internal/outline"
	"github.com/dgallion1/headingmap/internal/pipeline"
)

// RuleOverrides adjusts the server's validation defaults for one request.
// Nil fields keep the default.
type RuleOverrides struct {
	RequireH1AsFirstHeading *bool `json:"require_h1_as_first_heading,omitempty"`
	WarnOnHeadingLevelSkip  *bool `json:"warn_on_heading_level_skip,omitempty"`
}

// Apply returns base with the set overrides applied.
func (o *RuleOverrides) Apply(base headings.Config) headings.Config {
	if o == nil {
		return base
	}
	if o.RequireH1AsFirstHeading != nil {
		base.RequireH1AsFirstHeading = *o.RequireH1AsFirstHeading
	}
	if o.WarnOnHeadingLevelSkip != nil {
		base.WarnOnHeadingLevelSkip = *o.WarnOnHeadingLevelSkip
	}
	return base
}

// AnalyzeRequest is the body for POST /api/analyze and /api/outline.
type AnalyzeRequest struct {
	Filename string         `json:"filename"`
	Text     string         `json:"text"`
	Config   *RuleOverrides `json:"config,omitempty"`
}

// AnalyzeResponse is one analyzed document.
type AnalyzeResponse struct {
	Filename    string                `json:"filename"`
	Occurrences []headings.Occurrence `json:"occurrences"`
	Forest      *doctree.Forest       `json:"forest"`
	Outline     []outline.Entry       `json:"outline"`
	Warnings    int                   `json:"warnings"`
	DurationMs  int64                 `json:"duration_ms"`
}

// ScanRequest is the body for POST /api/scan.
type ScanRequest struct {
	Root   string         `json:"root"`
	Config *RuleOverrides `json:"config,omitempty"`
}

// ScanAccepted is returned when a scan job is queued.
type ScanAccepted struct {
	JobID      string             `json:"job_id"`
	Status     pipeline.JobStatus `json:"status"`
	PollURL    string             `json:"poll_url"`
	ResultsURL string             `json:"results_url"`
}

// DialectInfo describes one catalog rule.
type DialectInfo struct {
	Name    string           `json:"name"`
	Dialect headings.Dialect `json:"dialect"`
	Region  string           `json:"region"`
}
