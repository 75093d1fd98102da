// Package kb manages the similarity-searchable store of question/answer
// pairs: adding entries, fan-out retrieval with answer-level deduplication,
// and the tagged documents that mirror question-tree nodes.
package kb

import (
	"context"
	"fmt"

	"qastore/internal/llm"
)

// Metadata keys carried on stored documents.
const (
	MetaAnswer   = "answer"
	MetaTreeID   = "tree_id"
	MetaFromTree = "from_tree"
)

// Hit is one similarity match returned by a store query. Distance is
// store-native (lower is closer).
type Hit struct {
	ID       string
	Document string
	Metadata map[string]any
	Distance float64
}

// Document is one stored entry, as returned by an unranked Get.
type Document struct {
	ID       string
	Document string
	Metadata map[string]any
}

// VectorStore is the external similarity store consumed by the KB. The three
// parallel slices passed to Add and Update must have equal length.
type VectorStore interface {
	Add(ctx context.Context, ids []string, documents []string, metadatas []map[string]any) error
	Query(ctx context.Context, text string, nResults int, filter map[string]any) ([]Hit, error)
	Get(ctx context.Context, filter map[string]any) ([]Document, error)
	Update(ctx context.Context, ids []string, documents []string, metadatas []map[string]any) error
	Delete(ctx context.Context, ids []string) error
	Reset(ctx context.Context) error
}

// Completer is the hosted text-completion capability used for rewording and
// QA-pair extraction.
type Completer interface {
	Complete(ctx context.Context, model string, messages []llm.Message) (string, error)
}

// NotFoundError indicates an answer update that targets a question absent
// from the store.
type NotFoundError struct {
	Question string
	TreeID   int64
}

func (e NotFoundError) Error() string {
	if e.Question != "" {
		return fmt.Sprintf("question %q not found in knowledge base", e.Question)
	}
	return fmt.Sprintf("no knowledge base entry for tree question %d", e.TreeID)
}

// ValidationError indicates extracted QA pairs with the wrong shape:
// non-list JSON or objects missing the question/answer keys.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return "invalid QA pairs: " + e.Reason
}
