package kb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"qastore/internal/llm"
)

// Config holds model names for the two completion-backed operations.
type Config struct {
	RewordModel  string
	QAPairsModel string
}

// KB wraps a vector store and a completion service. All blocking calls take
// a context; the KB itself holds no mutable state beyond its collaborators.
type KB struct {
	store     VectorStore
	completer Completer
	cfg       Config
	log       *slog.Logger
}

// New builds a KB. A nil logger discards output.
func New(store VectorStore, completer Completer, cfg Config, logger *slog.Logger) *KB {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &KB{store: store, completer: completer, cfg: cfg, log: logger}
}

// Result is one deduplicated retrieval hit. Similarity is 1 - distance, so
// higher is always better.
type Result struct {
	Question   string         `json:"question"`
	Answer     string         `json:"answer"`
	Metadata   map[string]any `json:"metadata"`
	Similarity float64        `json:"similarity"`
}

// GenerateRewordings asks the completion service for numRewordings extra
// phrasings and returns the original question followed by the variants.
// numRewordings == 0 skips the service entirely. Failures propagate: a caller
// who asked for variants must not silently get degraded recall.
func (k *KB) GenerateRewordings(ctx context.Context, question string, numRewordings int) ([]string, error) {
	if numRewordings == 0 {
		return []string{question}, nil
	}

	prompt := fmt.Sprintf(rewordingPrompt, numRewordings, question)
	content, err := k.completer.Complete(ctx, k.cfg.RewordModel, []llm.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("generating rewordings: %w", err)
	}

	questions := []string{question}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			questions = append(questions, line)
		}
	}
	for i, q := range questions {
		k.log.Debug("reworded question", "n", i+1, "question", q)
	}
	return questions, nil
}

// AddQA indexes a question/answer pair, plus numRewordings variant phrasings
// of the question, all carrying the same answer in their metadata. Returns
// the set of question strings that were indexed. Callers must pre-serialize
// non-text answers to a canonical string.
func (k *KB) AddQA(ctx context.Context, question, answer string, metadata map[string]any, numRewordings int) ([]string, error) {
	questions := []string{question}
	if numRewordings > 0 {
		var err error
		questions, err = k.GenerateRewordings(ctx, question, numRewordings)
		if err != nil {
			return nil, err
		}
	}
	return k.addAll(ctx, questions, answer, metadata)
}

// AddQAList indexes a caller-supplied list of phrasings verbatim, with no
// generation step.
func (k *KB) AddQAList(ctx context.Context, questions []string, answer string, metadata map[string]any) ([]string, error) {
	return k.addAll(ctx, questions, answer, metadata)
}

func (k *KB) addAll(ctx context.Context, questions []string, answer string, metadata map[string]any) ([]string, error) {
	ids := make([]string, len(questions))
	metadatas := make([]map[string]any, len(questions))
	for i, q := range questions {
		meta := make(map[string]any, len(metadata)+1)
		for key, v := range metadata {
			meta[key] = v
		}
		meta[MetaAnswer] = answer
		metadatas[i] = meta
		// Random unique ids: safe under concurrent writers, unlike a
		// collection-count suffix.
		ids[i] = "qa_" + uuid.NewString()
		k.log.Debug("adding question", "question", q)
	}
	if err := k.store.Add(ctx, ids, questions, metadatas); err != nil {
		return nil, fmt.Errorf("adding QA documents: %w", err)
	}
	return questions, nil
}

// QueryOptions tunes a retrieval call. NResults defaults to 5.
type QueryOptions struct {
	NResults      int
	Filter        map[string]any
	NumRewordings int
}

// Query retrieves answers for a question, fanning out over generated
// rewordings when requested.
func (k *KB) Query(ctx context.Context, question string, opts QueryOptions) ([]Result, error) {
	questions := []string{question}
	if opts.NumRewordings > 0 {
		var err error
		questions, err = k.GenerateRewordings(ctx, question, opts.NumRewordings)
		if err != nil {
			return nil, err
		}
	}
	return k.QueryAll(ctx, questions, opts)
}

// QueryAll retrieves answers for a caller-supplied query set verbatim: one
// store query per string, hits pooled, deduplicated by answer value (first
// hit for an answer wins), sorted by descending similarity, and truncated to
// NResults. Zero hits across every variant is an empty result, not an error.
func (k *KB) QueryAll(ctx context.Context, questions []string, opts QueryOptions) ([]Result, error) {
	nResults := opts.NResults
	if nResults <= 0 {
		nResults = 5
	}

	var pool []Result
	for _, q := range questions {
		k.log.Debug("querying question", "question", q)
		hits, err := k.store.Query(ctx, q, nResults, opts.Filter)
		if err != nil {
			return nil, fmt.Errorf("querying %q: %w", q, err)
		}
		for _, h := range hits {
			answer, _ := h.Metadata[MetaAnswer].(string)
			meta := make(map[string]any, len(h.Metadata))
			for key, v := range h.Metadata {
				if key == MetaAnswer {
					continue
				}
				meta[key] = v
			}
			pool = append(pool, Result{
				Question:   h.Document,
				Answer:     answer,
				Metadata:   meta,
				Similarity: 1 - h.Distance,
			})
		}
	}

	// Dedup by answer value: fan-out raises recall over phrasing variance,
	// it must not return the same fact twice.
	seen := make(map[string]bool)
	unique := pool[:0]
	for _, r := range pool {
		if seen[r.Answer] {
			continue
		}
		seen[r.Answer] = true
		unique = append(unique, r)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Similarity > unique[j].Similarity
	})
	if len(unique) > nResults {
		unique = unique[:nResults]
	}
	return unique, nil
}

// UpdateAnswer overwrites the answer on the stored entry nearest to the
// given question text.
func (k *KB) UpdateAnswer(ctx context.Context, question, answer string) error {
	hits, err := k.store.Query(ctx, question, 1, nil)
	if err != nil {
		return fmt.Errorf("locating %q: %w", question, err)
	}
	if len(hits) == 0 {
		return NotFoundError{Question: question}
	}

	hit := hits[0]
	hit.Metadata[MetaAnswer] = answer
	if err := k.store.Update(ctx, []string{hit.ID}, []string{hit.Document}, []map[string]any{hit.Metadata}); err != nil {
		return fmt.Errorf("updating answer for %q: %w", question, err)
	}
	k.log.Info("answer updated", "question", question)
	return nil
}

// Questions returns the text of every stored entry.
func (k *KB) Questions(ctx context.Context) ([]string, error) {
	docs, err := k.store.Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("listing questions: %w", err)
	}
	questions := make([]string, len(docs))
	for i, d := range docs {
		questions[i] = d.Document
	}
	return questions, nil
}

// Reset drops every stored entry.
func (k *KB) Reset(ctx context.Context) error {
	return k.store.Reset(ctx)
}
