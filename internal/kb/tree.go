package kb

import (
	"context"
	"fmt"
)

// TreeQuestion is a tagged store entry joined back to a tree node. Answer is
// empty while the entry is unanswered.
type TreeQuestion struct {
	TreeID   int64
	Question string
	Answer   string
}

// AddTreeQuestion mirrors a tree node into the store as a tagged entry.
// The tree_id metadata is the join key; it has no foreign-key enforcement,
// consistency comes from the synchronizer's explicit passes.
func (k *KB) AddTreeQuestion(ctx context.Context, question string, treeID int64) error {
	metadata := map[string]any{
		MetaTreeID:   treeID,
		MetaFromTree: true,
	}
	if _, err := k.AddQA(ctx, question, "", metadata, 0); err != nil {
		return fmt.Errorf("adding tree question %d: %w", treeID, err)
	}
	return nil
}

// TreeQuestions returns every tagged entry in the store.
func (k *KB) TreeQuestions(ctx context.Context) ([]TreeQuestion, error) {
	docs, err := k.store.Get(ctx, map[string]any{MetaFromTree: true})
	if err != nil {
		return nil, fmt.Errorf("listing tree questions: %w", err)
	}

	var questions []TreeQuestion
	for _, d := range docs {
		treeID, ok := metadataTreeID(d.Metadata)
		if !ok {
			continue
		}
		answer, _ := d.Metadata[MetaAnswer].(string)
		questions = append(questions, TreeQuestion{
			TreeID:   treeID,
			Question: d.Document,
			Answer:   answer,
		})
	}
	return questions, nil
}

// UpdateTreeQuestion pushes an answer into every tagged entry carrying the
// given tree_id, so reworded variants stay consistent with each other.
func (k *KB) UpdateTreeQuestion(ctx context.Context, treeID int64, answer string) error {
	docs, err := k.store.Get(ctx, map[string]any{MetaTreeID: treeID})
	if err != nil {
		return fmt.Errorf("locating tree question %d: %w", treeID, err)
	}
	if len(docs) == 0 {
		return NotFoundError{TreeID: treeID}
	}

	ids := make([]string, len(docs))
	documents := make([]string, len(docs))
	metadatas := make([]map[string]any, len(docs))
	for i, d := range docs {
		d.Metadata[MetaAnswer] = answer
		ids[i] = d.ID
		documents[i] = d.Document
		metadatas[i] = d.Metadata
	}
	if err := k.store.Update(ctx, ids, documents, metadatas); err != nil {
		return fmt.Errorf("updating tree question %d: %w", treeID, err)
	}
	return nil
}

// DeleteTreeQuestions removes every tagged entry for the given tree ids.
func (k *KB) DeleteTreeQuestions(ctx context.Context, treeIDs []int64) error {
	var ids []string
	for _, treeID := range treeIDs {
		docs, err := k.store.Get(ctx, map[string]any{MetaTreeID: treeID})
		if err != nil {
			return fmt.Errorf("locating tree question %d: %w", treeID, err)
		}
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	if err := k.store.Delete(ctx, ids); err != nil {
		return fmt.Errorf("deleting tree questions: %w", err)
	}
	return nil
}

// metadataTreeID extracts the tree_id join key. JSON round trips store
// numbers as float64, so both widths are accepted.
func metadataTreeID(metadata map[string]any) (int64, bool) {
	switch v := metadata[MetaTreeID].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
