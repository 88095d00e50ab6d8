package extract

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/dgallion1/headingmap/internal/headings"
	"github.com/dgallion1/headingmap/internal/parser"
	"github.com/dgallion1/headingmap/internal/pattern"
)

// Extractor runs a pattern catalog over the regions of one component.
type Extractor struct {
	catalog pattern.Catalog
}

// NewExtractor creates an extractor. A nil catalog means the default one.
func NewExtractor(catalog pattern.Catalog) *Extractor {
	if catalog == nil {
		catalog = pattern.DefaultCatalog()
	}
	return &Extractor{catalog: catalog}
}

// Catalog returns the rules in evaluation order.
func (e *Extractor) Catalog() pattern.Catalog {
	return e.catalog
}

// ExtractFile reads path and extracts its headings. A read failure is
// returned as *headings.ReadError with no occurrences.
func (e *Extractor) ExtractFile(path string) ([]headings.Occurrence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &headings.ReadError{Path: path, Err: err}
	}
	return e.Extract(string(data))
}

// Extract returns the headings of text ordered by position. A document
// without template or script yields no occurrences and no error. Any rule
// failure discards the whole document's result.
func (e *Extractor) Extract(text string) (occs []headings.Occurrence, err error) {
	defer func() {
		if r := recover(); r != nil {
			occs, err = nil, fmt.Errorf("extract: %v", r)
		}
	}()

	doc, err := parser.Split(text)
	if err != nil {
		return nil, fmt.Errorf("split regions: %w", err)
	}
	if !doc.HasRegions() {
		return nil, nil
	}

	// Commented-out markup must not count as a heading. Masking keeps every
	// rune in place so offsets still map to the original text.
	structural := doc.Structural
	structural.Text = maskComments(structural.Text)

	for _, rule := range e.catalog {
		region := structural
		if rule.Region == pattern.Logic {
			region = doc.Logic
		}
		if !region.Found {
			continue
		}

		matches, err := rule.Find(region.Text)
		if err != nil {
			return nil, &headings.MatchError{Rule: rule.Name, Err: err}
		}
		for _, m := range matches {
			occs = append(occs, toOccurrence(doc, rule, region, m))
		}
	}

	headings.SortByPosition(occs)
	return occs, nil
}

func toOccurrence(doc *parser.Document, rule pattern.Rule, region parser.Region, m pattern.Match) headings.Occurrence {
	offset := region.Offset + m.Index
	dialect := rule.Dialect
	if m.Dialect != "" {
		dialect = m.Dialect
	}
	return headings.Occurrence{
		Level:    m.Level,
		Content:  m.Content,
		Position: doc.Lines.Position(offset),
		Offset:   offset,
		Dialect:  dialect,
		Dynamic:  m.Dynamic,
		Reason:   m.Reason,
	}
}

var commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)

// maskComments blanks HTML comments, keeping newlines and rune count.
func maskComments(text string) string {
	return commentRe.ReplaceAllStringFunc(text, func(c string) string {
		var sb strings.Builder
		for _, r := range c {
			if r == '\n' {
				sb.WriteRune('\n')
			} else {
				sb.WriteByte(' ')
			}
		}
		return sb.String()
	})
}
