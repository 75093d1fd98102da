// Package system composes the question tree, the priority ranker, and the
// knowledge base into the question-suggestion service, and runs the
// synchronizer passes that reconcile answer state between the two stores.
package system

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"qastore/internal/kb"
	"qastore/internal/rank"
	"qastore/internal/tree"
)

// System is the user-facing façade. Add and answer operations mirror into
// the knowledge base synchronously; the Sync passes are the bulk,
// re-runnable reconciliation.
type System struct {
	tree *tree.Tree
	kb   *kb.KB
	log  *slog.Logger
}

// New builds a System. A nil logger discards output.
func New(t *tree.Tree, k *kb.KB, logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &System{tree: t, kb: k, log: logger}
}

// Tree exposes the underlying tree store for read-only inspection commands.
func (s *System) Tree() *tree.Tree {
	return s.tree
}

// KB exposes the underlying knowledge base.
func (s *System) KB() *kb.KB {
	return s.kb
}

// AddQuestion records a question in the tree, then mirrors it into the
// knowledge base as a tagged entry.
func (s *System) AddQuestion(ctx context.Context, question string, parentID *int64) (int64, error) {
	id, err := s.tree.AddQuestion(question, parentID)
	if err != nil {
		return 0, err
	}
	if err := s.kb.AddTreeQuestion(ctx, question, id); err != nil {
		return 0, fmt.Errorf("mirroring question %d: %w", id, err)
	}
	return id, nil
}

// AnswerQuestion sets the answer in the tree, then pushes it into the
// tagged knowledge base entry.
func (s *System) AnswerQuestion(ctx context.Context, id int64, answer string) error {
	if err := s.tree.UpdateAnswer(id, answer); err != nil {
		return err
	}
	if err := s.kb.UpdateTreeQuestion(ctx, id, answer); err != nil {
		return fmt.Errorf("mirroring answer for %d: %w", id, err)
	}
	return nil
}

// SyncKBToTree pushes answers found on tagged knowledge base entries into
// tree nodes that are still unanswered. Tree-side answers are never
// overwritten from this direction. The pass runs over every entry even when
// individual nodes fail; failures are collected and returned together.
func (s *System) SyncKBToTree(ctx context.Context) error {
	entries, err := s.kb.TreeQuestions(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, e := range entries {
		if e.Answer == "" {
			continue
		}
		answered, err := s.tree.IsAnswered(e.TreeID)
		if err != nil {
			errs = append(errs, fmt.Errorf("tree question %d: %w", e.TreeID, err))
			continue
		}
		if answered {
			continue
		}
		if err := s.tree.UpdateAnswer(e.TreeID, e.Answer); err != nil {
			errs = append(errs, fmt.Errorf("tree question %d: %w", e.TreeID, err))
			continue
		}
		s.log.Info("answer pulled from knowledge base", "id", e.TreeID)
	}
	return errors.Join(errs...)
}

// SyncTreeToKB pushes the answer of every answered tree node into its tagged
// knowledge base entries, overwriting whatever was stored there. Running it
// twice with no intervening mutation changes nothing the second time.
func (s *System) SyncTreeToKB(ctx context.Context) error {
	answered, err := s.tree.AnsweredQuestions()
	if err != nil {
		return err
	}

	var errs []error
	for _, q := range answered {
		if err := s.kb.UpdateTreeQuestion(ctx, q.ID, *q.Answer); err != nil {
			errs = append(errs, fmt.Errorf("tree question %d: %w", q.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Suggestion is the next question worth asking, with its priority score so
// callers can reason about confidence.
type Suggestion struct {
	ID       int64   `json:"id"`
	Question string  `json:"question"`
	ParentID *int64  `json:"parent_id"`
	Priority float64 `json:"priority"`
}

// SuggestNextQuestion recomputes priorities over the whole tree, persists
// them, and returns the highest-ranked unanswered question, or nil when the
// tree is empty or fully answered.
func (s *System) SuggestNextQuestion(ctx context.Context) (*Suggestion, error) {
	nodes, err := s.tree.AllQuestions()
	if err != nil {
		return nil, err
	}
	forest := rank.NewForest(nodes)
	if err := s.tree.SetPriorities(rank.Scores(forest)); err != nil {
		return nil, err
	}

	ranked, err := s.tree.HighPriorityQuestions(0)
	if err != nil {
		return nil, err
	}
	for _, q := range ranked {
		if q.Answered() {
			continue
		}
		return &Suggestion{
			ID:       q.ID,
			Question: q.Question,
			ParentID: q.ParentID,
			Priority: q.Priority,
		}, nil
	}
	return nil, nil
}

// Query retrieves answers from the knowledge base.
func (s *System) Query(ctx context.Context, question string, opts kb.QueryOptions) ([]kb.Result, error) {
	return s.kb.Query(ctx, question, opts)
}

// Ingest extracts QA pairs from prose and indexes each into the knowledge
// base, returning how many were added. Extraction failures degrade to zero
// pairs (already logged by the KB); indexing failures are real errors.
func (s *System) Ingest(ctx context.Context, text string, metadata map[string]any) (int, error) {
	pairs, err := s.kb.GenerateQAPairs(ctx, text)
	if err != nil {
		return 0, err
	}
	for i, p := range pairs {
		if _, err := s.kb.AddQA(ctx, p.Question, p.Answer, metadata, 0); err != nil {
			return i, fmt.Errorf("indexing pair %d: %w", i+1, err)
		}
	}
	return len(pairs), nil
}

// RemoveQuestion deletes a question and its whole subtree from the tree,
// plus every tagged knowledge base entry mirroring the removed nodes.
// Returns the removed tree ids.
func (s *System) RemoveQuestion(ctx context.Context, id int64) ([]int64, error) {
	ids, err := s.tree.CascadeDelete(id)
	if err != nil {
		return nil, err
	}
	if err := s.kb.DeleteTreeQuestions(ctx, ids); err != nil {
		return ids, fmt.Errorf("removing mirrored entries: %w", err)
	}
	return ids, nil
}
