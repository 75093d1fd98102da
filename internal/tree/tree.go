package tree

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// Tree wraps a SQLite database holding the question forest.
type Tree struct {
	conn *sql.DB
	Path string
}

// Open opens (creating if needed) a question database with WAL mode and
// foreign keys enabled.
func Open(path string) (*Tree, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS questions (
			id INTEGER PRIMARY KEY,
			question TEXT NOT NULL,
			answer TEXT,
			priority REAL NOT NULL DEFAULT 0,
			parent_id INTEGER REFERENCES questions(id)
		)
	`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Tree{conn: conn, Path: path}, nil
}

// Close closes the database connection
func (t *Tree) Close() error {
	return t.conn.Close()
}

// Conn returns the underlying sql.DB for custom queries
func (t *Tree) Conn() *sql.DB {
	return t.conn
}

// scanQuestion scans a row into a QuestionNode. The row must have the five
// standard columns in order.
func scanQuestion(scanner interface{ Scan(dest ...any) error }) (QuestionNode, error) {
	var n QuestionNode
	err := scanner.Scan(&n.ID, &n.Question, &n.Answer, &n.Priority, &n.ParentID)
	return n, err
}

const questionColumns = "id, question, answer, priority, parent_id"

// AddQuestion inserts a new unanswered question and returns its id.
// The parent, when given, must already exist; ids are assigned by SQLite's
// rowid allocator, so a child's id is always greater than its parent's and
// parent chains cannot form cycles.
func (t *Tree) AddQuestion(question string, parentID *int64) (int64, error) {
	if question == "" {
		return 0, errors.New("question text must not be empty")
	}
	if parentID != nil {
		var exists bool
		err := t.conn.QueryRow(
			"SELECT EXISTS(SELECT 1 FROM questions WHERE id = ?)", *parentID,
		).Scan(&exists)
		if err != nil {
			return 0, fmt.Errorf("checking parent %d: %w", *parentID, err)
		}
		if !exists {
			return 0, ReferenceError{ParentID: *parentID}
		}
	}

	res, err := t.conn.Exec(
		"INSERT INTO questions (question, parent_id) VALUES (?, ?)",
		question, parentID,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting question: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading new question id: %w", err)
	}
	return id, nil
}

// GetQuestion returns a single question by id.
func (t *Tree) GetQuestion(id int64) (*QuestionNode, error) {
	row := t.conn.QueryRow(
		"SELECT "+questionColumns+" FROM questions WHERE id = ?", id,
	)
	n, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("reading question %d: %w", id, err)
	}
	return &n, nil
}

// GetChildren returns the direct children of a question in insertion order.
func (t *Tree) GetChildren(id int64) ([]QuestionNode, error) {
	rows, err := t.conn.Query(
		"SELECT "+questionColumns+" FROM questions WHERE parent_id = ? ORDER BY id", id,
	)
	if err != nil {
		return nil, fmt.Errorf("reading children of %d: %w", id, err)
	}
	defer rows.Close()
	return collectQuestions(rows)
}

// UpdateAnswer sets or overwrites the answer of a question. Last write wins;
// no history is kept.
func (t *Tree) UpdateAnswer(id int64, answer string) error {
	res, err := t.conn.Exec("UPDATE questions SET answer = ? WHERE id = ?", answer, id)
	if err != nil {
		return fmt.Errorf("updating answer for %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating answer for %d: %w", id, err)
	}
	if affected == 0 {
		return NotFoundError{ID: id}
	}
	return nil
}

// IsAnswered reports whether the question has an answer.
func (t *Tree) IsAnswered(id int64) (bool, error) {
	var answered bool
	err := t.conn.QueryRow(
		"SELECT answer IS NOT NULL FROM questions WHERE id = ?", id,
	).Scan(&answered)
	if errors.Is(err, sql.ErrNoRows) {
		return false, NotFoundError{ID: id}
	}
	if err != nil {
		return false, fmt.Errorf("checking answer for %d: %w", id, err)
	}
	return answered, nil
}

// UnansweredQuestions returns every question with no answer, ordered by id.
func (t *Tree) UnansweredQuestions() ([]QuestionNode, error) {
	return t.scanAll("SELECT " + questionColumns + " FROM questions WHERE answer IS NULL ORDER BY id")
}

// AnsweredQuestions returns every question with an answer, ordered by id.
func (t *Tree) AnsweredQuestions() ([]QuestionNode, error) {
	return t.scanAll("SELECT " + questionColumns + " FROM questions WHERE answer IS NOT NULL ORDER BY id")
}

// AllQuestions returns every question ordered by id.
func (t *Tree) AllQuestions() ([]QuestionNode, error) {
	return t.scanAll("SELECT " + questionColumns + " FROM questions ORDER BY id")
}

func (t *Tree) scanAll(query string) ([]QuestionNode, error) {
	rows, err := t.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("scanning questions: %w", err)
	}
	defer rows.Close()
	return collectQuestions(rows)
}

func collectQuestions(rows *sql.Rows) ([]QuestionNode, error) {
	var nodes []QuestionNode
	for rows.Next() {
		n, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// SetPriorities overwrites the priority of every listed question in one
// transaction. Questions absent from the map keep their stored priority.
func (t *Tree) SetPriorities(priorities map[int64]float64) error {
	tx, err := t.conn.Begin()
	if err != nil {
		return fmt.Errorf("starting priority update: %w", err)
	}
	stmt, err := tx.Prepare("UPDATE questions SET priority = ? WHERE id = ?")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing priority update: %w", err)
	}
	defer stmt.Close()

	for id, p := range priorities {
		if _, err := stmt.Exec(p, id); err != nil {
			tx.Rollback()
			return fmt.Errorf("setting priority for %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// HighPriorityQuestions returns questions ordered by descending priority,
// ties broken by ascending id. A limit of 0 returns all questions. Before any
// priority recomputation every priority is 0 and the order degenerates to id
// order.
func (t *Tree) HighPriorityQuestions(limit int) ([]QuestionNode, error) {
	query := "SELECT " + questionColumns + " FROM questions ORDER BY priority DESC, id ASC"
	if limit > 0 {
		query += " LIMIT " + strconv.Itoa(limit)
	}
	return t.scanAll(query)
}

// CascadeDelete removes a question and all of its descendants in a single
// transaction, returning the deleted ids (the target first, then descendants
// in discovery order).
func (t *Tree) CascadeDelete(id int64) ([]int64, error) {
	if _, err := t.GetQuestion(id); err != nil {
		return nil, err
	}

	descendants, err := t.descendantIDs(id)
	if err != nil {
		return nil, err
	}
	ids := append([]int64{id}, descendants...)

	tx, err := t.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting cascade delete: %w", err)
	}
	// Delete leaves first so the parent_id foreign key never dangles.
	for i := len(ids) - 1; i >= 0; i-- {
		if _, err := tx.Exec("DELETE FROM questions WHERE id = ?", ids[i]); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("deleting question %d: %w", ids[i], err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing cascade delete: %w", err)
	}
	return ids, nil
}

func (t *Tree) descendantIDs(id int64) ([]int64, error) {
	rows, err := t.conn.Query("SELECT id FROM questions WHERE parent_id = ? ORDER BY id", id)
	if err != nil {
		return nil, fmt.Errorf("reading descendants of %d: %w", id, err)
	}
	var children []int64
	for rows.Next() {
		var child int64
		if err := rows.Scan(&child); err != nil {
			rows.Close()
			return nil, err
		}
		children = append(children, child)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var all []int64
	for _, child := range children {
		all = append(all, child)
		sub, err := t.descendantIDs(child)
		if err != nil {
			return nil, err
		}
		all = append(all, sub...)
	}
	return all, nil
}

// DuplicateQuestions returns question texts that appear more than once,
// mapped to the ids carrying them.
func (t *Tree) DuplicateQuestions() (map[string][]int64, error) {
	rows, err := t.conn.Query(`
		SELECT question, GROUP_CONCAT(id)
		FROM questions
		GROUP BY question
		HAVING COUNT(*) > 1
	`)
	if err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}
	defer rows.Close()

	duplicates := make(map[string][]int64)
	for rows.Next() {
		var question, idList string
		if err := rows.Scan(&question, &idList); err != nil {
			return nil, err
		}
		var ids []int64
		for _, part := range strings.Split(idList, ",") {
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing duplicate id %q: %w", part, err)
			}
			ids = append(ids, id)
		}
		duplicates[question] = ids
	}
	return duplicates, rows.Err()
}
