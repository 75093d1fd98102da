package system

import (
	"context"
	"hash/fnv"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"qastore/internal/kb"
	"qastore/internal/kb/memstore"
	"qastore/internal/llm"
	"qastore/internal/tree"
)

// hashEmbedder is a deterministic local embedder so tests need no service.
type hashEmbedder struct{}

func (hashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 64)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(word))
			vec[h.Sum32()%64]++
		}
		vectors[i] = vec
	}
	return vectors, nil
}

type scriptedCompleter struct {
	responses []string
	calls     int
}

func (f *scriptedCompleter) Complete(ctx context.Context, model string, messages []llm.Message) (string, error) {
	f.calls++
	if f.calls > len(f.responses) {
		return "", &llm.ServiceError{Endpoint: "chat/completions", Detail: "no response scripted"}
	}
	return f.responses[f.calls-1], nil
}

func newTestSystem(t *testing.T, completer kb.Completer) *System {
	t.Helper()
	dir := t.TempDir()

	tr, err := tree.Open(filepath.Join(dir, "questions.db"))
	if err != nil {
		t.Fatalf("opening tree: %v", err)
	}
	t.Cleanup(func() { tr.Close() })

	store, err := memstore.Open(filepath.Join(dir, "documents.db"), hashEmbedder{})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if completer == nil {
		completer = &scriptedCompleter{}
	}
	return New(tr, kb.New(store, completer, kb.Config{}, nil), nil)
}

func TestAddQuestion_MirrorsIntoKB(t *testing.T) {
	s := newTestSystem(t, nil)
	ctx := context.Background()

	id, err := s.AddQuestion(ctx, "What is the main goal?", nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	entries, err := s.KB().TreeQuestions(ctx)
	if err != nil {
		t.Fatalf("tree questions: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d mirrored entries, want 1", len(entries))
	}
	if entries[0].TreeID != id || entries[0].Question != "What is the main goal?" {
		t.Errorf("mirrored entry = %+v", entries[0])
	}
	if entries[0].Answer != "" {
		t.Errorf("new entry should be unanswered, got %q", entries[0].Answer)
	}
}

func TestAnswerQuestion_MirrorsIntoKB(t *testing.T) {
	s := newTestSystem(t, nil)
	ctx := context.Background()

	id, err := s.AddQuestion(ctx, "What is the timeline?", nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AnswerQuestion(ctx, id, "two weeks"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	q, err := s.Tree().GetQuestion(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if q.Answer == nil || *q.Answer != "two weeks" {
		t.Errorf("tree answer = %v", q.Answer)
	}

	entries, err := s.KB().TreeQuestions(ctx)
	if err != nil {
		t.Fatalf("tree questions: %v", err)
	}
	if len(entries) != 1 || entries[0].Answer != "two weeks" {
		t.Errorf("mirrored entries = %+v", entries)
	}
}

func TestAnswerQuestion_MissingID(t *testing.T) {
	s := newTestSystem(t, nil)
	err := s.AnswerQuestion(context.Background(), 42, "x")
	if err == nil {
		t.Fatal("expected error answering a missing question")
	}
}

func TestSuggestNextQuestion_SkipsAnsweredRoot(t *testing.T) {
	s := newTestSystem(t, nil)
	ctx := context.Background()

	rootID, err := s.AddQuestion(ctx, "What is the main goal?", nil)
	if err != nil {
		t.Fatalf("add root: %v", err)
	}
	childA, err := s.AddQuestion(ctx, "What are the objectives?", &rootID)
	if err != nil {
		t.Fatalf("add child: %v", err)
	}
	if _, err := s.AddQuestion(ctx, "What is the timeline?", &rootID); err != nil {
		t.Fatalf("add child: %v", err)
	}

	// The root outranks its children, so it is suggested first.
	suggestion, err := s.SuggestNextQuestion(ctx)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if suggestion == nil || suggestion.ID != rootID {
		t.Fatalf("suggestion = %+v, want the root", suggestion)
	}
	if suggestion.Priority != 3.0 {
		t.Errorf("root priority = %v, want 3", suggestion.Priority)
	}

	// Once answered, the root must never be suggested again.
	if err := s.AnswerQuestion(ctx, rootID, "ship the prototype"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	suggestion, err = s.SuggestNextQuestion(ctx)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if suggestion == nil || suggestion.ID == rootID {
		t.Fatalf("suggestion = %+v, want an unanswered child", suggestion)
	}
	// Children tie at 0.5; the lower id wins.
	if suggestion.ID != childA {
		t.Errorf("suggestion id = %d, want %d", suggestion.ID, childA)
	}
}

func TestSuggestNextQuestion_EmptyAndExhausted(t *testing.T) {
	s := newTestSystem(t, nil)
	ctx := context.Background()

	suggestion, err := s.SuggestNextQuestion(ctx)
	if err != nil {
		t.Fatalf("suggest on empty tree: %v", err)
	}
	if suggestion != nil {
		t.Errorf("empty tree suggested %+v", suggestion)
	}

	id, err := s.AddQuestion(ctx, "only question?", nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AnswerQuestion(ctx, id, "done"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	suggestion, err = s.SuggestNextQuestion(ctx)
	if err != nil {
		t.Fatalf("suggest on answered tree: %v", err)
	}
	if suggestion != nil {
		t.Errorf("fully answered tree suggested %+v", suggestion)
	}
}

func TestSyncKBToTree_FillsUnansweredOnly(t *testing.T) {
	s := newTestSystem(t, nil)
	ctx := context.Background()

	openID, err := s.AddQuestion(ctx, "open question?", nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	settledID, err := s.AddQuestion(ctx, "settled question?", nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	// Answer one node on the tree side only; give both answers on the KB side.
	if err := s.Tree().UpdateAnswer(settledID, "tree answer"); err != nil {
		t.Fatalf("tree answer: %v", err)
	}
	if err := s.KB().UpdateTreeQuestion(ctx, openID, "kb answer"); err != nil {
		t.Fatalf("kb answer: %v", err)
	}
	if err := s.KB().UpdateTreeQuestion(ctx, settledID, "stale kb answer"); err != nil {
		t.Fatalf("kb answer: %v", err)
	}

	if err := s.SyncKBToTree(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}

	open, err := s.Tree().GetQuestion(openID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if open.Answer == nil || *open.Answer != "kb answer" {
		t.Errorf("unanswered node not filled: %v", open.Answer)
	}

	settled, err := s.Tree().GetQuestion(settledID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if settled.Answer == nil || *settled.Answer != "tree answer" {
		t.Errorf("tree-side answer overwritten: %v", settled.Answer)
	}
}

func TestSyncTreeToKB_OverwritesAndIsIdempotent(t *testing.T) {
	s := newTestSystem(t, nil)
	ctx := context.Background()

	id, err := s.AddQuestion(ctx, "what changed?", nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	// Tree-side answer bypassing the mirror, plus a conflicting KB answer.
	if err := s.Tree().UpdateAnswer(id, "the schema"); err != nil {
		t.Fatalf("tree answer: %v", err)
	}
	if err := s.KB().UpdateTreeQuestion(ctx, id, "old kb answer"); err != nil {
		t.Fatalf("kb answer: %v", err)
	}

	if err := s.SyncTreeToKB(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	first := snapshotKB(t, s)
	if first[id] != "the schema" {
		t.Errorf("kb answer after sync = %q, want the tree answer", first[id])
	}

	// A second pass with no intervening mutation changes nothing.
	if err := s.SyncTreeToKB(ctx); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	second := snapshotKB(t, s)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second pass changed state:\nfirst:  %v\nsecond: %v", first, second)
	}
}

func TestSyncTreeToKB_CollectsFailuresWithoutAborting(t *testing.T) {
	s := newTestSystem(t, nil)
	ctx := context.Background()

	brokenID, err := s.AddQuestion(ctx, "mirror got lost?", nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	okID, err := s.AddQuestion(ctx, "mirror intact?", nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Tree().UpdateAnswer(brokenID, "a"); err != nil {
		t.Fatalf("tree answer: %v", err)
	}
	if err := s.Tree().UpdateAnswer(okID, "b"); err != nil {
		t.Fatalf("tree answer: %v", err)
	}
	// Drop one mirror so its sync step fails.
	if err := s.KB().DeleteTreeQuestions(ctx, []int64{brokenID}); err != nil {
		t.Fatalf("delete mirror: %v", err)
	}

	err = s.SyncTreeToKB(ctx)
	if err == nil {
		t.Fatal("expected the missing mirror to surface as an error")
	}
	// The intact node must still have been synced.
	if snap := snapshotKB(t, s); snap[okID] != "b" {
		t.Errorf("intact mirror answer = %q, want %q", snap[okID], "b")
	}
}

func snapshotKB(t *testing.T, s *System) map[int64]string {
	t.Helper()
	entries, err := s.KB().TreeQuestions(context.Background())
	if err != nil {
		t.Fatalf("tree questions: %v", err)
	}
	snap := make(map[int64]string, len(entries))
	for _, e := range entries {
		snap[e.TreeID] = e.Answer
	}
	return snap
}

func TestRemoveQuestion_CleansMirroredEntries(t *testing.T) {
	s := newTestSystem(t, nil)
	ctx := context.Background()

	rootID, err := s.AddQuestion(ctx, "doomed root?", nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := s.AddQuestion(ctx, "doomed child?", &rootID); err != nil {
		t.Fatalf("add: %v", err)
	}
	keepID, err := s.AddQuestion(ctx, "survivor?", nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	ids, err := s.RemoveQuestion(ctx, rootID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("removed ids = %v, want root and child", ids)
	}

	entries, err := s.KB().TreeQuestions(ctx)
	if err != nil {
		t.Fatalf("tree questions: %v", err)
	}
	if len(entries) != 1 || entries[0].TreeID != keepID {
		t.Errorf("remaining entries = %+v, want only the survivor", entries)
	}
}

func TestQuery_RetrievesMirroredAnswer(t *testing.T) {
	s := newTestSystem(t, nil)
	ctx := context.Background()

	id, err := s.AddQuestion(ctx, "what is the capital of italy", nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AnswerQuestion(ctx, id, "Rome"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	results, err := s.Query(ctx, "what is the capital of italy", kb.QueryOptions{NResults: 1})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 1 || results[0].Answer != "Rome" {
		t.Fatalf("results = %+v, want Rome", results)
	}
}

func TestIngest_IndexesExtractedPairs(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		`[{"q": "What drives the water cycle?", "a": "Solar energy."},
		  {"q": "What is condensation?", "a": "Vapor turning back into liquid."}]`,
	}}
	s := newTestSystem(t, completer)
	ctx := context.Background()

	n, err := s.Ingest(ctx, "some prose about the water cycle", map[string]any{"source": "notes"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if n != 2 {
		t.Errorf("ingested %d pairs, want 2", n)
	}

	questions, err := s.KB().Questions(ctx)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	sort.Strings(questions)
	want := []string{"What drives the water cycle?", "What is condensation?"}
	if !reflect.DeepEqual(questions, want) {
		t.Errorf("indexed questions = %v, want %v", questions, want)
	}
}

func TestIngest_ExtractionFailureDegradesToZero(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"garbage", "garbage", "garbage"}}
	s := newTestSystem(t, completer)

	n, err := s.Ingest(context.Background(), "prose", nil)
	if err != nil {
		t.Fatalf("degraded extraction must not fail: %v", err)
	}
	if n != 0 {
		t.Errorf("ingested %d pairs, want 0", n)
	}
	if completer.calls != 3 {
		t.Errorf("extraction attempted %d times, want 3", completer.calls)
	}
}
