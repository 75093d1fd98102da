package rank

import (
	"fmt"
	"sort"
	"strings"
)

// DOT renders the forest as a Graphviz digraph. Labels carry the question
// (truncated), id, priority, and the answer when present. The scores map may
// be nil, in which case stored priorities are shown.
func (f *Forest) DOT(scores map[int64]float64) string {
	var b strings.Builder
	b.WriteString("digraph questions {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [shape=box];\n")

	ids := make([]int64, 0, len(f.nodes))
	for id := range f.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		n := f.nodes[id]
		priority := n.Priority
		if scores != nil {
			priority = scores[id]
		}
		label := fmt.Sprintf(`%s\nID: %d\nPriority: %.2f`, escapeLabel(truncate(n.Question, 30)), n.ID, priority)
		if n.Answer != nil {
			label += `\nAnswer: ` + escapeLabel(truncate(*n.Answer, 20))
		}
		fmt.Fprintf(&b, "  q%d [label=\"%s\"];\n", id, label)
	}
	for _, id := range ids {
		for _, child := range f.children[id] {
			fmt.Fprintf(&b, "  q%d -> q%d;\n", id, child)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// escapeLabel escapes characters that would break a double-quoted DOT label.
func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
