package extract

import (
	"fmt"

	"github.com/dgallion1/headingmap/internal/headings"
)

// Whole-document messages.
const (
	MsgNoTopLevel   = "No h1 heading found in document"
	MsgBeforeFirst  = "This heading appears before h1"
	msgFirstNotH1   = "First heading should be h1 (found h%d)"
	msgH1AfterDeep  = "h1 appears after deeper heading h%d"
	msgLevelDropped = "Heading level decreased from h%d to h%d"
	msgLevelSkipped = "Heading level skipped from h%d to h%d"
)

// Validate returns a position-sorted copy of occs with warnings assigned.
// Earlier warnings on the input are discarded first, so repeated calls with
// the same config give identical results. occs is not modified.
func Validate(occs []headings.Occurrence, cfg headings.Config) []headings.Occurrence {
	out := headings.Clone(occs)
	headings.SortByPosition(out)
	ResetWarnings(out)

	validateSequence(out, cfg)
	validateDocument(out)
	return out
}

// ResetWarnings clears every warning flag and message in place.
func ResetWarnings(occs []headings.Occurrence) {
	for i := range occs {
		occs[i].ClearWarning()
	}
}

// validateSequence applies the per-heading rules in one forward pass.
// Placeholder levels still advance lastLevel.
func validateSequence(occs []headings.Occurrence, cfg headings.Config) {
	lastLevel := 0
	seenH1 := false
	for i := range occs {
		o := &occs[i]
		if o.Dynamic {
			o.Warn(o.Reason)
		}
		if msg := sequenceWarning(o.Level, lastLevel, seenH1, cfg); msg != "" {
			o.Warn(msg)
		}
		lastLevel = o.Level
		seenH1 = seenH1 || o.Level == 1
	}
}

// sequenceWarning returns the first rule that fires for level given the
// previous heading's level, or "". The h1 rule only covers an h1 that
// reappears; a first h1 after stray deeper headings is left to the
// whole-document pass, which flags the stray headings instead.
func sequenceWarning(level, lastLevel int, seenH1 bool, cfg headings.Config) string {
	switch {
	case lastLevel == 0:
		if level != 1 && cfg.RequireH1AsFirstHeading {
			return fmt.Sprintf(msgFirstNotH1, level)
		}
		return ""
	case level == 1 && lastLevel > 1 && seenH1:
		return fmt.Sprintf(msgH1AfterDeep, lastLevel)
	case level < lastLevel && level > 1:
		return fmt.Sprintf(msgLevelDropped, lastLevel, level)
	case level > lastLevel+1 && cfg.WarnOnHeadingLevelSkip:
		return fmt.Sprintf(msgLevelSkipped, lastLevel, level)
	}
	return ""
}

// validateDocument fills in warnings that need the whole document: no h1 at
// all, or headings that come before the first h1. Existing messages win.
func validateDocument(occs []headings.Occurrence) {
	firstH1 := -1
	for i, o := range occs {
		if o.Level == 1 {
			firstH1 = i
			break
		}
	}

	if firstH1 < 0 {
		for i := range occs {
			if occs[i].Level >= 2 {
				occs[i].Warn(MsgNoTopLevel)
			}
		}
		return
	}
	for i := 0; i < firstH1; i++ {
		if occs[i].Level >= 2 {
			occs[i].Warn(MsgBeforeFirst)
		}
	}
}
