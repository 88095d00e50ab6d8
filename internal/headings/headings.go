package headings

import (
	"fmt"
	"sort"
)

// Dialect names the syntactic pattern a heading was recognized from.
type Dialect string

const (
	DialectLiteral          Dialect = "literal"
	DialectAttribute        Dialect = "attribute"
	DialectConditional      Dialect = "conditional"
	DialectRender           Dialect = "render"
	DialectComputed         Dialect = "computed"
	DialectEmbedded         Dialect = "embedded"
	DialectDynamicElement   Dialect = "dynamic-element"
	DialectDynamicComponent Dialect = "dynamic-component"
)

// PlaceholderLevel is used when a heading's level cannot be known statically.
const PlaceholderLevel = 1

// Position is a zero-based line and a zero-based column counted in characters.
type Position struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Column+1)
}

// Occurrence is one detected heading construct.
type Occurrence struct {
	Level    int      `json:"level" yaml:"level"`
	Content  string   `json:"content" yaml:"content"`
	Position Position `json:"position" yaml:"position"`
	Offset   int      `json:"offset" yaml:"offset"` // Rune offset into the full document.
	Dialect  Dialect  `json:"dialect" yaml:"dialect"`

	// Dynamic marks a placeholder level. Reason is the warning that is
	// always attached to such an occurrence.
	Dynamic bool   `json:"dynamic,omitempty" yaml:"dynamic,omitempty"`
	Reason  string `json:"-" yaml:"-"`

	HasWarning     bool   `json:"has_warning" yaml:"has_warning"`
	WarningMessage string `json:"warning_message,omitempty" yaml:"warning_message,omitempty"`
}

// Warn flags the occurrence. An already set message is kept.
func (o *Occurrence) Warn(msg string) {
	o.HasWarning = true
	if o.WarningMessage == "" {
		o.WarningMessage = msg
	}
}

// ClearWarning resets the validator-owned fields.
func (o *Occurrence) ClearWarning() {
	o.HasWarning = false
	o.WarningMessage = ""
}

// Tag returns the element name for the level, e.g. "h2".
func (o Occurrence) Tag() string {
	return fmt.Sprintf("h%d", o.Level)
}

// ValidLevel reports whether n is a heading level 1-6.
func ValidLevel(n int) bool {
	return n >= 1 && n <= 6
}

// SortByPosition orders occurrences by document offset. Ties keep their
// relative order.
func SortByPosition(occs []Occurrence) {
	sort.SliceStable(occs, func(i, j int) bool { return occs[i].Offset < occs[j].Offset })
}

// Clone returns an independent copy of occs.
func Clone(occs []Occurrence) []Occurrence {
	if occs == nil {
		return nil
	}
	out := make([]Occurrence, len(occs))
	copy(out, occs)
	return out
}

// CountWarnings returns how many occurrences carry a warning.
func CountWarnings(occs []Occurrence) int {
	n := 0
	for _, o := range occs {
		if o.HasWarning {
			n++
		}
	}
	return n
}

// Config holds the validator switches.
type Config struct {
	RequireH1AsFirstHeading bool `json:"require_h1_as_first_heading" yaml:"require_h1_as_first_heading"`
	WarnOnHeadingLevelSkip  bool `json:"warn_on_heading_level_skip" yaml:"warn_on_heading_level_skip"`
}

// DefaultConfig enables both checks.
func DefaultConfig() Config {
	return Config{
		RequireH1AsFirstHeading: true,
		WarnOnHeadingLevelSkip:  true,
	}
}
