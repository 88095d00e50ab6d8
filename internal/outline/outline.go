// Package outline renders a heading forest for people and for tools.
package outline

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/dgallion1/headingmap/internal/doctree"
	"github.com/dgallion1/headingmap/internal/headings"
)

// WarningMark prefixes a warning message in rendered outlines.
const WarningMark = "⚠"

// Entry is one heading flattened with its structural context.
type Entry struct {
	Level      int              `json:"level" yaml:"level"`
	Content    string           `json:"content" yaml:"content"`
	Line       int              `json:"line" yaml:"line"`     // 1-based
	Column     int              `json:"column" yaml:"column"` // 1-based
	Depth      int              `json:"depth" yaml:"depth"`
	Dialect    headings.Dialect `json:"dialect" yaml:"dialect"`
	Breadcrumb []string         `json:"breadcrumb" yaml:"breadcrumb"` // Heading path, e.g. ["Guide", "Install", "Linux"]
	Warning    string           `json:"warning,omitempty" yaml:"warning,omitempty"`
}

// Entries flattens the forest in document order.
func Entries(f *doctree.Forest) []Entry {
	var out []Entry
	walkNode(f, nil, &out)
	return out
}

func walkNode(f *doctree.Forest, breadcrumb []string, out *[]Entry) {
	var visit func(idx int, bc []string)
	visit = func(idx int, bc []string) {
		n := f.Node(idx)
		path := append(copyBreadcrumb(bc), n.Heading.Content)
		*out = append(*out, Entry{
			Level:      n.Heading.Level,
			Content:    n.Heading.Content,
			Line:       n.Heading.Position.Line + 1,
			Column:     n.Heading.Position.Column + 1,
			Depth:      len(bc),
			Dialect:    n.Heading.Dialect,
			Breadcrumb: path,
			Warning:    n.Heading.WarningMessage,
		})
		for _, c := range n.Children {
			visit(c, path)
		}
	}
	for _, r := range f.Roots {
		visit(r, breadcrumb)
	}
}

func copyBreadcrumb(bc []string) []string {
	out := make([]string, len(bc), len(bc)+1)
	copy(out, bc)
	return out
}

// Markdown renders the forest as a nested list under a title heading.
func Markdown(title string, f *doctree.Forest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escape(title))
	if f == nil || f.Len() == 0 {
		b.WriteString("_No headings found._\n")
		return b.String()
	}
	f.Walk(func(idx, depth int) bool {
		h := f.Node(idx).Heading
		fmt.Fprintf(&b, "%s- %s %s (line %d)", strings.Repeat("  ", depth), h.Tag(), escape(h.Content), h.Position.Line+1)
		if h.HasWarning {
			fmt.Fprintf(&b, " %s %s", WarningMark, escape(h.WarningMessage))
		}
		b.WriteByte('\n')
		return true
	})
	return b.String()
}

// HTML renders the Markdown outline to an HTML fragment.
func HTML(title string, f *doctree.Forest) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(title, f)), &buf); err != nil {
		return "", fmt.Errorf("render outline: %w", err)
	}
	return buf.String(), nil
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`,
	"[", `\[`, "]", `\]`, "<", `\<`, ">", `\>`, "#", `\#`,
)

// escape neutralizes inline markdown so heading text renders literally.
func escape(s string) string {
	return mdEscaper.Replace(s)
}
