package rank

import (
	"strings"
	"testing"

	"qastore/internal/tree"
)

func int64Ptr(v int64) *int64 { return &v }

func node(id int64, question string, parentID *int64) tree.QuestionNode {
	return tree.QuestionNode{ID: id, Question: question, ParentID: parentID}
}

func TestScores_RootOutranksLeaves(t *testing.T) {
	forest := NewForest([]tree.QuestionNode{
		node(1, "What is the main goal?", nil),
		node(2, "What are the objectives?", int64Ptr(1)),
		node(3, "What is the timeline?", int64Ptr(1)),
	})

	scores := Scores(forest)
	// root: (2 descendants + 1) / (depth 0 + 1) = 3
	if scores[1] != 3.0 {
		t.Errorf("root score = %v, want 3", scores[1])
	}
	// leaves: (0 + 1) / (1 + 1) = 0.5
	if scores[2] != 0.5 || scores[3] != 0.5 {
		t.Errorf("leaf scores = %v, %v, want 0.5", scores[2], scores[3])
	}
	if scores[1] <= scores[2] {
		t.Error("root must outrank its leaves")
	}
}

func TestDepthAndDescendants(t *testing.T) {
	forest := NewForest([]tree.QuestionNode{
		node(1, "root", nil),
		node(2, "child", int64Ptr(1)),
		node(3, "grandchild", int64Ptr(2)),
		node(4, "grandchild", int64Ptr(2)),
	})

	if d := forest.Depth(1); d != 0 {
		t.Errorf("root depth = %d, want 0", d)
	}
	if d := forest.Depth(3); d != 2 {
		t.Errorf("grandchild depth = %d, want 2", d)
	}
	if c := forest.DescendantCount(1); c != 3 {
		t.Errorf("root descendants = %d, want 3", c)
	}
	if c := forest.DescendantCount(2); c != 2 {
		t.Errorf("child descendants = %d, want 2", c)
	}
	if c := forest.DescendantCount(4); c != 0 {
		t.Errorf("leaf descendants = %d, want 0", c)
	}
}

func TestScores_DeeperIsLower(t *testing.T) {
	forest := NewForest([]tree.QuestionNode{
		node(1, "root", nil),
		node(2, "child", int64Ptr(1)),
		node(3, "grandchild", int64Ptr(2)),
	})
	scores := Scores(forest)
	if !(scores[1] > scores[2] && scores[2] > scores[3]) {
		t.Errorf("scores should strictly decrease along the chain: %v", scores)
	}
}

func TestForest_MultipleRoots(t *testing.T) {
	forest := NewForest([]tree.QuestionNode{
		node(1, "first root", nil),
		node(2, "second root", nil),
		node(3, "child of second", int64Ptr(2)),
	})

	roots := forest.Roots()
	if len(roots) != 2 || roots[0] != 1 || roots[1] != 2 {
		t.Errorf("roots = %v, want [1 2]", roots)
	}

	scores := Scores(forest)
	if scores[1] != 1.0 {
		t.Errorf("bare root score = %v, want 1", scores[1])
	}
	if scores[2] != 2.0 {
		t.Errorf("root with one child score = %v, want 2", scores[2])
	}
}

func TestScores_Empty(t *testing.T) {
	forest := NewForest(nil)
	if len(Scores(forest)) != 0 {
		t.Error("empty forest should produce no scores")
	}
	if forest.Len() != 0 {
		t.Errorf("empty forest Len = %d", forest.Len())
	}
}

func TestDOT_Output(t *testing.T) {
	answer := "42"
	forest := NewForest([]tree.QuestionNode{
		{ID: 1, Question: "What is the \"answer\"?", Answer: &answer},
		node(2, "Why?", int64Ptr(1)),
	})
	out := forest.DOT(Scores(forest))

	if !strings.HasPrefix(out, "digraph questions {") {
		t.Errorf("missing digraph header:\n%s", out)
	}
	if !strings.Contains(out, "q1 ") || !strings.Contains(out, "q2 ") {
		t.Errorf("missing node statements:\n%s", out)
	}
	if !strings.Contains(out, "q1 -> q2;") {
		t.Errorf("missing edge:\n%s", out)
	}
	if !strings.Contains(out, `\"answer\"`) {
		t.Errorf("quotes not escaped:\n%s", out)
	}
	if !strings.Contains(out, "Answer: 42") {
		t.Errorf("answer missing from label:\n%s", out)
	}
}

func TestDOT_TruncatesLongQuestions(t *testing.T) {
	long := strings.Repeat("x", 50)
	forest := NewForest([]tree.QuestionNode{node(1, long, nil)})
	out := forest.DOT(nil)
	if strings.Contains(out, long) {
		t.Error("long question should be truncated")
	}
	if !strings.Contains(out, strings.Repeat("x", 30)+"...") {
		t.Errorf("expected truncation marker:\n%s", out)
	}
}
