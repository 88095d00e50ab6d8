package parser

import (
	"strings"

	"golang.org/x/net/html"
)

// CleanText returns the visible text of a markup fragment: tags are
// dropped, entities unescaped and runs of whitespace collapsed.
func CleanText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var buf strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(buf.String()), " ")
		case html.TextToken:
			buf.Write(z.Text())
		}
	}
}

// HeadingLevel returns 1-6 for h1..h6 (case-insensitive) and 0 otherwise.
func HeadingLevel(tag string) int {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if len(tag) != 2 || tag[0] != 'h' {
		return 0
	}
	if tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}
