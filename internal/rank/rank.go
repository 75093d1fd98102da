// Package rank computes advisory priority scores over the question forest.
// Scores are derived purely from tree shape, never from answer state: a
// question gating more of the tree (larger subtree, shallower position)
// outranks a narrow, deep one. The scoring formula lives only here so it can
// be swapped without touching the store or the synchronizer.
package rank

import (
	"sort"

	"qastore/internal/tree"
)

// Forest is a stateless in-memory view over a flat parent-pointer node list.
// Children, depth, and descendant counts are derived by indexing; nothing is
// stored redundantly. Rebuilding it is cheap enough to do on every use.
type Forest struct {
	nodes    map[int64]tree.QuestionNode
	children map[int64][]int64
	roots    []int64
}

// NewForest builds the child index for a set of question nodes.
func NewForest(nodes []tree.QuestionNode) *Forest {
	f := &Forest{
		nodes:    make(map[int64]tree.QuestionNode, len(nodes)),
		children: make(map[int64][]int64),
	}
	for _, n := range nodes {
		f.nodes[n.ID] = n
	}
	for _, n := range nodes {
		if n.ParentID == nil {
			f.roots = append(f.roots, n.ID)
			continue
		}
		f.children[*n.ParentID] = append(f.children[*n.ParentID], n.ID)
	}
	sort.Slice(f.roots, func(i, j int) bool { return f.roots[i] < f.roots[j] })
	for _, ids := range f.children {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return f
}

// Roots returns the ids of all parentless nodes in ascending order.
func (f *Forest) Roots() []int64 {
	return f.roots
}

// Node returns the node for an id, if present.
func (f *Forest) Node(id int64) (tree.QuestionNode, bool) {
	n, ok := f.nodes[id]
	return n, ok
}

// Children returns the child ids of a node in ascending id order.
func (f *Forest) Children(id int64) []int64 {
	return f.children[id]
}

// Len returns the number of nodes in the forest.
func (f *Forest) Len() int {
	return len(f.nodes)
}

// Depth returns the number of parent hops from the node to its root.
// Roots are at depth 0. Nodes whose parent chain leaves the forest are
// treated as roots of their visible fragment.
func (f *Forest) Depth(id int64) int {
	depth := 0
	for {
		n, ok := f.nodes[id]
		if !ok || n.ParentID == nil {
			return depth
		}
		if _, ok := f.nodes[*n.ParentID]; !ok {
			return depth
		}
		id = *n.ParentID
		depth++
	}
}

// DescendantCount returns the number of transitive children of a node.
func (f *Forest) DescendantCount(id int64) int {
	count := 0
	for _, child := range f.children[id] {
		count += 1 + f.DescendantCount(child)
	}
	return count
}

// Scores computes a priority for every node in one pass:
//
//	priority(n) = (descendants(n) + 1) / (depth(n) + 1)
//
// Monotonically increasing in subtree size and decreasing in depth, so broad
// foundational questions rank above narrow derived ones.
func Scores(f *Forest) map[int64]float64 {
	scores := make(map[int64]float64, f.Len())
	for id := range f.nodes {
		scores[id] = float64(f.DescendantCount(id)+1) / float64(f.Depth(id)+1)
	}
	return scores
}
