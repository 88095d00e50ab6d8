package pattern

import (
	"strconv"

	"github.com/dlclark/regexp2"

	"github.com/dgallion1/headingmap/internal/headings"
	"github.com/dgallion1/headingmap/internal/parser"
)

var (
	renderCallRe = parser.MustCompile("\\b(?:h|createElement)\\(\\s*([`'\"])h([1-6])\\1")

	// A returned `h${...}` string, either after `return` or as an arrow
	// function body. Concatenation ('h' + level) is not recognized.
	computedTagRe = parser.MustCompile("(?:\\breturn\\s+|=>\\s*\\(?\\s*)([`'\"])h\\$\\{([^}]+)\\}\\1")

	// Literal headings and placeholder tag names inside JSX or template
	// strings in the script block.
	embeddedRe = parser.MustCompile(`<(h[1-6]|Tag|HeadingTag)` + attrs + `>([\s\S]*?)</\1\s*>`)
)

func findRenderCalls(text string) ([]Match, error) {
	return scan(renderCallRe, text, func(m *regexp2.Match) (Match, bool) {
		level, _ := strconv.Atoi(group(m, 2))
		return Match{Index: m.Index, Level: level, Content: LabelRender}, true
	})
}

func findComputedTags(text string) ([]Match, error) {
	return scan(computedTagRe, text, func(m *regexp2.Match) (Match, bool) {
		return Match{
			Index:   m.Index,
			Level:   headings.PlaceholderLevel,
			Content: LabelComputed,
			Dynamic: true,
			Reason:  ReasonComputed,
		}, true
	})
}

func findEmbeddedMarkup(text string) ([]Match, error) {
	return scan(embeddedRe, text, func(m *regexp2.Match) (Match, bool) {
		if level := parser.HeadingLevel(group(m, 1)); level > 0 {
			content := parser.CleanText(group(m, 3))
			if content == "" {
				content = LabelEmbedded
			}
			return Match{Index: m.Index, Level: level, Content: content}, true
		}
		return Match{
			Index:   m.Index,
			Level:   headings.PlaceholderLevel,
			Content: LabelDynamicElement,
			Dialect: headings.DialectDynamicElement,
			Dynamic: true,
			Reason:  ReasonDynamicElement,
		}, true
	})
}
