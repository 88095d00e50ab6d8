package parser

import (
	"sort"

	"github.com/dgallion1/headingmap/internal/headings"
)

// LineIndex maps rune offsets of a document to zero-based line/column pairs.
type LineIndex struct {
	starts []int // Rune offset of the first character of each line.
	total  int
}

// NewLineIndex scans text once and records where each line begins.
func NewLineIndex(text string) *LineIndex {
	idx := &LineIndex{starts: []int{0}}
	n := 0
	for _, r := range text {
		n++
		if r == '\n' {
			idx.starts = append(idx.starts, n)
		}
	}
	idx.total = n
	return idx
}

// Position converts an absolute rune offset. Offsets past the end clamp to
// the last character.
func (l *LineIndex) Position(offset int) headings.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > l.total {
		offset = l.total
	}
	line := sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > offset }) - 1
	return headings.Position{Line: line, Column: offset - l.starts[line]}
}

// Lines returns the number of lines.
func (l *LineIndex) Lines() int {
	return len(l.starts)
}
