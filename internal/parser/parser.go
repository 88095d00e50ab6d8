package parser

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// SupportedExtensions lists file extensions this service can analyze.
var SupportedExtensions = map[string]bool{
	".vue": true,
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Region is the inner content of a root block. Offset is the rune offset of
// the first content character within the full document.
type Region struct {
	Text   string
	Offset int
	Found  bool
}

// Document is a component source split into its structural (template) and
// logic (script) regions.
type Document struct {
	Text       string
	Structural Region
	Logic      Region
	Lines      *LineIndex
}

// HasRegions reports whether either region was located.
func (d *Document) HasRegions() bool {
	return d.Structural.Found || d.Logic.Found
}

// The template region runs to the last closing tag so nested
// <template v-slot> blocks stay inside it. The script region ends at the
// first closing tag.
var (
	templateRe = MustCompile(`<template(?:\s[^>]*)?>([\s\S]*)</template>`)
	scriptRe   = MustCompile(`<script(?:\s[^>]*)?>([\s\S]*?)</script>`)
)

// MatchTimeout bounds a single regexp2 match so a pathological document
// fails instead of hanging the sweep.
const MatchTimeout = 2 * time.Second

// MustCompile compiles a backtracking pattern with MatchTimeout applied.
func MustCompile(expr string) *regexp2.Regexp {
	re := regexp2.MustCompile(expr, regexp2.None)
	re.MatchTimeout = MatchTimeout
	return re
}

// Split locates the regions of text. A document with neither region is
// returned with both Found flags false.
func Split(text string) (*Document, error) {
	doc := &Document{Text: text, Lines: NewLineIndex(text)}

	var err error
	if doc.Structural, err = findRegion(templateRe, text); err != nil {
		return nil, err
	}
	if doc.Logic, err = findRegion(scriptRe, text); err != nil {
		return nil, err
	}
	return doc, nil
}

func findRegion(re *regexp2.Regexp, text string) (Region, error) {
	m, err := re.FindStringMatch(text)
	if err != nil {
		return Region{}, err
	}
	if m == nil {
		return Region{}, nil
	}
	g := m.GroupByNumber(1)
	if g == nil || len(g.Captures) == 0 {
		return Region{}, nil
	}
	return Region{Text: g.String(), Offset: g.Index, Found: true}, nil
}
