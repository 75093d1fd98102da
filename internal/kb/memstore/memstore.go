// Package memstore is an embedded similarity store backed by SQLite.
// Documents, JSON metadata, and embedding vectors live in one table;
// queries embed the query text and rank all candidate rows by cosine
// similarity, reported as distance = 1 - cosine so lower is closer.
package memstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	_ "modernc.org/sqlite"

	"qastore/internal/kb"
)

// Embedder turns texts into embedding vectors, one per input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store implements kb.VectorStore over a local SQLite file.
type Store struct {
	conn     *sql.DB
	embedder Embedder
	Path     string
}

// Open opens (creating if needed) a document database.
func Open(path string, embedder Embedder) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening document database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			document TEXT NOT NULL,
			metadata TEXT,
			embedding BLOB NOT NULL
		)
	`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{conn: conn, embedder: embedder, Path: path}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// Add stores documents with their metadata and freshly computed embeddings.
func (s *Store) Add(ctx context.Context, ids []string, documents []string, metadatas []map[string]any) error {
	if len(ids) != len(documents) || len(ids) != len(metadatas) {
		return fmt.Errorf("add: mismatched lengths (ids=%d documents=%d metadatas=%d)",
			len(ids), len(documents), len(metadatas))
	}
	embeddings, err := s.embedder.Embed(ctx, documents)
	if err != nil {
		return fmt.Errorf("embedding documents: %w", err)
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("starting add: %w", err)
	}
	for i := range ids {
		meta, err := json.Marshal(metadatas[i])
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encoding metadata for %s: %w", ids[i], err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO documents (id, document, metadata, embedding) VALUES (?, ?, ?, ?)",
			ids[i], documents[i], string(meta), embeddingToBytes(embeddings[i]),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting document %s: %w", ids[i], err)
		}
	}
	return tx.Commit()
}

// Query embeds the text and returns the nResults nearest documents passing
// the metadata filter, ordered by ascending distance.
func (s *Store) Query(ctx context.Context, text string, nResults int, filter map[string]any) ([]kb.Hit, error) {
	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	target := vectors[0]

	rows, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	var hits []kb.Hit
	for _, r := range rows {
		if !matchesFilter(r.metadata, filter) {
			continue
		}
		sim := cosineSimilarity(target, r.embedding)
		hits = append(hits, kb.Hit{
			ID:       r.id,
			Document: r.document,
			Metadata: r.metadata,
			Distance: float64(1 - sim),
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > nResults {
		hits = hits[:nResults]
	}
	return hits, nil
}

// Get returns every document passing the metadata filter, in insertion order.
// A nil filter returns everything.
func (s *Store) Get(ctx context.Context, filter map[string]any) ([]kb.Document, error) {
	rows, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	var docs []kb.Document
	for _, r := range rows {
		if !matchesFilter(r.metadata, filter) {
			continue
		}
		docs = append(docs, kb.Document{ID: r.id, Document: r.document, Metadata: r.metadata})
	}
	return docs, nil
}

// Update overwrites documents and metadata for the given ids, re-embedding
// the new document text.
func (s *Store) Update(ctx context.Context, ids []string, documents []string, metadatas []map[string]any) error {
	if len(ids) != len(documents) || len(ids) != len(metadatas) {
		return fmt.Errorf("update: mismatched lengths (ids=%d documents=%d metadatas=%d)",
			len(ids), len(documents), len(metadatas))
	}
	embeddings, err := s.embedder.Embed(ctx, documents)
	if err != nil {
		return fmt.Errorf("embedding documents: %w", err)
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("starting update: %w", err)
	}
	for i := range ids {
		meta, err := json.Marshal(metadatas[i])
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encoding metadata for %s: %w", ids[i], err)
		}
		res, err := tx.ExecContext(ctx,
			"UPDATE documents SET document = ?, metadata = ?, embedding = ? WHERE id = ?",
			documents[i], string(meta), embeddingToBytes(embeddings[i]), ids[i],
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("updating document %s: %w", ids[i], err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			tx.Rollback()
			return fmt.Errorf("updating document %s: no such document", ids[i])
		}
	}
	return tx.Commit()
}

// Delete removes the given documents.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("starting delete: %w", err)
	}
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
			tx.Rollback()
			return fmt.Errorf("deleting document %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// Reset removes every document.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("resetting store: %w", err)
	}
	return nil
}

type docRow struct {
	id        string
	document  string
	metadata  map[string]any
	embedding []float32
}

func (s *Store) loadAll(ctx context.Context) ([]docRow, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT id, document, metadata, embedding FROM documents ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("loading documents: %w", err)
	}
	defer rows.Close()

	var result []docRow
	for rows.Next() {
		var r docRow
		var meta sql.NullString
		var blob []byte
		if err := rows.Scan(&r.id, &r.document, &meta, &blob); err != nil {
			return nil, err
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &r.metadata); err != nil {
				return nil, fmt.Errorf("decoding metadata for %s: %w", r.id, err)
			}
		}
		r.embedding = bytesToEmbedding(blob)
		result = append(result, r)
	}
	return result, rows.Err()
}

// matchesFilter applies equality matching on metadata. Numbers are compared
// as float64 since JSON decoding loses integer width.
func matchesFilter(metadata, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
