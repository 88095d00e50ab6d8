// Package doctree nests position-ordered headings into a forest.
//
// Nodes live in a single arena slice and refer to each other by index, so a
// node's parent link never owns anything and the forest can be copied or
// serialized as plain data.
package doctree

import "github.com/dgallion1/headingmap/internal/headings"

// NoParent marks a root node.
const NoParent = -1

// Node is a heading with its place in the forest.
type Node struct {
	Heading  headings.Occurrence `json:"heading" yaml:"heading"`
	Parent   int                 `json:"parent" yaml:"parent"`
	Children []int               `json:"children,omitempty" yaml:"children,omitempty"`
}

// Forest holds every node in document order. Roots indexes the top-level
// nodes, also in document order.
type Forest struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Roots []int  `json:"roots" yaml:"roots"`
}

// Build nests occs, which must already be sorted by position. A heading
// becomes a child of the nearest earlier heading with a smaller level;
// skipped levels still nest.
func Build(occs []headings.Occurrence) *Forest {
	f := &Forest{Nodes: make([]Node, 0, len(occs)), Roots: []int{}}

	// Stack of ancestor candidates, shallowest first.
	var stack []int
	for _, o := range occs {
		for len(stack) > 0 && f.Nodes[stack[len(stack)-1]].Heading.Level >= o.Level {
			stack = stack[:len(stack)-1]
		}

		idx := len(f.Nodes)
		parent := NoParent
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
			f.Nodes[parent].Children = append(f.Nodes[parent].Children, idx)
		} else {
			f.Roots = append(f.Roots, idx)
		}
		f.Nodes = append(f.Nodes, Node{Heading: o, Parent: parent})
		stack = append(stack, idx)
	}
	return f
}

// Len returns the number of nodes.
func (f *Forest) Len() int { return len(f.Nodes) }

// Root returns the i-th root node.
func (f *Forest) Root(i int) *Node {
	return &f.Nodes[f.Roots[i]]
}

// Node returns the node at arena index idx.
func (f *Forest) Node(idx int) *Node {
	return &f.Nodes[idx]
}

// Children returns the arena indexes of idx's children.
func (f *Forest) Children(idx int) []int {
	return f.Nodes[idx].Children
}

// ParentOf returns the parent's arena index and false for a root.
func (f *Forest) ParentOf(idx int) (int, bool) {
	p := f.Nodes[idx].Parent
	return p, p != NoParent
}

// Depth is 0 for roots.
func (f *Forest) Depth(idx int) int {
	d := 0
	for p := f.Nodes[idx].Parent; p != NoParent; p = f.Nodes[p].Parent {
		d++
	}
	return d
}

// Walk visits nodes depth-first in document order. Returning false from fn
// skips the node's children.
func (f *Forest) Walk(fn func(idx, depth int) bool) {
	var visit func(idx, depth int)
	visit = func(idx, depth int) {
		if !fn(idx, depth) {
			return
		}
		for _, c := range f.Nodes[idx].Children {
			visit(c, depth+1)
		}
	}
	for _, r := range f.Roots {
		visit(r, 0)
	}
}

// Breadcrumb returns the heading contents from the root down to idx.
func (f *Forest) Breadcrumb(idx int) []string {
	var bc []string
	for i := idx; i != NoParent; i = f.Nodes[i].Parent {
		bc = append(bc, f.Nodes[i].Heading.Content)
	}
	for l, r := 0, len(bc)-1; l < r; l, r = l+1, r-1 {
		bc[l], bc[r] = bc[r], bc[l]
	}
	return bc
}
