package pattern

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/dgallion1/headingmap/internal/headings"
	"github.com/dgallion1/headingmap/internal/parser"
)

// attrs matches the attribute run of an opening tag. Quoted values and
// single-level {...} expressions may contain '>'.
const attrs = `(\s(?:"[^"]*"|'[^']*'|\{[^}]*\}|[^>"'{])*)?`

var (
	literalTagRe  = parser.MustCompile(`<h([1-6])` + attrs + `>([\s\S]*?)</h\1\s*>`)
	openHeadingRe = parser.MustCompile(`<h([1-6])` + attrs + `/?>`)
	attributeRe   = parser.MustCompile(`(?<![\w-])(?::|v-bind:)?(?:headingLevel|heading-level)\s*=\s*(["'])\s*(\d+)\s*\1`)
	componentRe   = parser.MustCompile(`<component` + attrs + `/?>`)

	conditionalDirective = regexp.MustCompile(`(?:^|\s)v-(?:else-)?if\b`)
	isBinding            = regexp.MustCompile(`(?:^|\s)(v-bind:is|:is|is)\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	literalHeadingValue  = regexp.MustCompile("^(?:'h([1-6])'|\"h([1-6])\"|`h([1-6])`|h([1-6]))$")
)

// findLiteralTags matches <hN>...</hN>. Tags guarded by v-if/v-else-if are
// left to the conditional rule; a bare v-else heading stays here.
func findLiteralTags(text string) ([]Match, error) {
	return scan(literalTagRe, text, func(m *regexp2.Match) (Match, bool) {
		if conditionalDirective.MatchString(group(m, 2)) {
			return Match{}, false
		}
		level, _ := strconv.Atoi(group(m, 1))
		return Match{
			Index:   m.Index,
			Level:   level,
			Content: parser.CleanText(group(m, 3)),
		}, true
	})
}

// findAttributeLevels reports each literal heading-level attribute at the
// '<' of the tag carrying it.
func findAttributeLevels(text string) ([]Match, error) {
	var runes []rune
	return scan(attributeRe, text, func(m *regexp2.Match) (Match, bool) {
		level, err := strconv.Atoi(group(m, 2))
		if err != nil || level < 1 || level > 6 {
			return Match{}, false
		}
		if runes == nil {
			runes = []rune(text)
		}
		return Match{Index: tagStart(runes, m.Index), Level: level, Content: LabelAttribute}, true
	})
}

// tagStart walks back from i to the '<' opening the enclosing tag. When a
// '>' comes first, i is not clearly inside a tag and is returned unchanged.
func tagStart(runes []rune, i int) int {
	for j := i - 1; j >= 0; j-- {
		switch runes[j] {
		case '<':
			return j
		case '>':
			return i
		}
	}
	return i
}

func findConditionalTags(text string) ([]Match, error) {
	return scan(openHeadingRe, text, func(m *regexp2.Match) (Match, bool) {
		if !conditionalDirective.MatchString(group(m, 2)) {
			return Match{}, false
		}
		level, _ := strconv.Atoi(group(m, 1))
		return Match{Index: m.Index, Level: level, Content: LabelConditional}, true
	})
}

// findDynamicComponents handles <component :is="...">. A literal h1-h6 value
// keeps its level; any other bound expression is a placeholder.
func findDynamicComponents(text string) ([]Match, error) {
	return scan(componentRe, text, func(m *regexp2.Match) (Match, bool) {
		b := isBinding.FindStringSubmatch(group(m, 1))
		if b == nil {
			return Match{}, false
		}
		bound := b[1] != "is"
		expr := strings.TrimSpace(b[2] + b[3])

		if lv := literalHeadingValue.FindStringSubmatch(expr); lv != nil {
			level, _ := strconv.Atoi(lv[1] + lv[2] + lv[3] + lv[4])
			return Match{Index: m.Index, Level: level, Content: LabelDynamicComponent}, true
		}
		if !bound || expr == "" {
			// A static is="Widget" names a concrete component.
			return Match{}, false
		}
		return Match{
			Index:   m.Index,
			Level:   headings.PlaceholderLevel,
			Content: LabelDynamicComponent + " (" + expr + ")",
			Dynamic: true,
			Reason:  ReasonDynamicComponent,
		}, true
	})
}
