// Package pattern holds the ordered catalog of heading dialect rules. Each
// rule is a pure function from region text to raw matches; the extractor
// owns positions and ordering.
package pattern

import (
	"github.com/dlclark/regexp2"

	"github.com/dgallion1/headingmap/internal/headings"
)

// Region selects which part of a component a rule scans.
type Region int

const (
	Structural Region = iota // <template>
	Logic                    // <script>
)

func (r Region) String() string {
	switch r {
	case Structural:
		return "template"
	case Logic:
		return "script"
	}
	return "unknown"
}

// Match is a raw rule hit. Index is a rune offset into the region text.
type Match struct {
	Index   int
	Level   int
	Content string

	// Dialect overrides the rule's dialect when set.
	Dialect headings.Dialect

	Dynamic bool
	Reason  string
}

// Rule recognizes one dialect.
type Rule struct {
	Name    string
	Dialect headings.Dialect
	Region  Region
	Find    func(text string) ([]Match, error)
}

// Catalog is an ordered rule list. Results are concatenated in this order.
type Catalog []Rule

// Labels used when the literal heading text is not available.
const (
	LabelAttribute        = "Dynamic Heading Component"
	LabelConditional      = "Conditional Heading"
	LabelRender           = "Render Function Heading"
	LabelComputed         = "Computed Heading Tag"
	LabelEmbedded         = "JSX Heading"
	LabelDynamicElement   = "Dynamic JSX Heading"
	LabelDynamicComponent = "Dynamic Component"
)

// Mandatory warnings for placeholder-level dialects.
const (
	ReasonComputed         = "Dynamic heading level detected in computed property"
	ReasonDynamicElement   = "Dynamic heading element detected in JSX/TSX"
	ReasonDynamicComponent = "Dynamic heading level detected in dynamic component"
)

// DefaultCatalog returns every known dialect in evaluation order.
func DefaultCatalog() Catalog {
	return Catalog{
		{Name: "literal-tag", Dialect: headings.DialectLiteral, Region: Structural, Find: findLiteralTags},
		{Name: "attribute-level", Dialect: headings.DialectAttribute, Region: Structural, Find: findAttributeLevels},
		{Name: "conditional-tag", Dialect: headings.DialectConditional, Region: Structural, Find: findConditionalTags},
		{Name: "render-call", Dialect: headings.DialectRender, Region: Logic, Find: findRenderCalls},
		{Name: "computed-tag", Dialect: headings.DialectComputed, Region: Logic, Find: findComputedTags},
		{Name: "embedded-markup", Dialect: headings.DialectEmbedded, Region: Logic, Find: findEmbeddedMarkup},
		{Name: "dynamic-component", Dialect: headings.DialectDynamicComponent, Region: Structural, Find: findDynamicComponents},
	}
}

// Names lists rule names in order.
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, r := range c {
		names[i] = r.Name
	}
	return names
}

// scan walks every non-overlapping match of re in text. fn may reject a
// match by returning false.
func scan(re *regexp2.Regexp, text string, fn func(m *regexp2.Match) (Match, bool)) ([]Match, error) {
	var out []Match
	m, err := re.FindStringMatch(text)
	for m != nil && err == nil {
		if hit, ok := fn(m); ok {
			out = append(out, hit)
		}
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// group returns the text of capture n, or "" when it did not participate.
func group(m *regexp2.Match, n int) string {
	g := m.GroupByNumber(n)
	if g == nil || len(g.Captures) == 0 {
		return ""
	}
	return g.String()
}
