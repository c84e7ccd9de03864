package store

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ErrEmptyName is returned when a corpus is saved without a name.
var ErrEmptyName = errors.New("corpus name must not be empty")

// SetupSchema creates the corpus and snapshot tables. It is idempotent and
// safe to call on an already initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaCorpora = `
CREATE TABLE IF NOT EXISTS ngram_corpora (
    corpus_id INTEGER PRIMARY KEY,
    corpus_name TEXT NOT NULL UNIQUE,
    corpus_order INTEGER NOT NULL,
    source_text TEXT NOT NULL,
    token_count INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL DEFAULT 0
);
`
		schemaSnapshot = `
CREATE TABLE IF NOT EXISTS ngram_snapshot (
    corpus_id INTEGER NOT NULL,
    key_position INTEGER NOT NULL,
    key_text TEXT NOT NULL,
    successor_position INTEGER NOT NULL,
    successor TEXT NOT NULL,
    probability REAL NOT NULL,
    PRIMARY KEY (corpus_id, key_text, successor)
);
`
		indexSnapshot = `CREATE INDEX IF NOT EXISTS ngram_snapshot_order ON ngram_snapshot (corpus_id, key_position, successor_position);`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaCorpora); err != nil {
		return fmt.Errorf("could not create corpora schema: %w", err)
	}
	if _, err = tx.Exec(schemaSnapshot); err != nil {
		return fmt.Errorf("could not create snapshot schema: %w", err)
	}
	if _, err = tx.Exec(indexSnapshot); err != nil {
		return fmt.Errorf("could not create snapshot index: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// Store reads and writes corpora through prepared statements.
type Store struct {
	db                 *sql.DB
	stmtGetCorpusInfo  *sql.Stmt
	stmtGetCorpora     *sql.Stmt
	stmtGetSource      *sql.Stmt
	stmtUpsertCorpus   *sql.Stmt
	stmtDeleteSnapshot *sql.Stmt
	stmtInsertSnapshot *sql.Stmt
	stmtGetSnapshot    *sql.Stmt
	stmtSnapshotCounts *sql.Stmt
	stmtDeleteCorpus   *sql.Stmt
	logger             *slog.Logger
}

// NewStore prepares all statements against db. SetupSchema must have been
// called first.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	statements := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.stmtGetCorpusInfo, `SELECT corpus_id, corpus_order, token_count, updated_at FROM ngram_corpora WHERE corpus_name = ?;`},
		{&s.stmtGetCorpora, `SELECT corpus_id, corpus_name, corpus_order, token_count, updated_at FROM ngram_corpora ORDER BY corpus_name;`},
		{&s.stmtGetSource, `SELECT corpus_id, corpus_order, token_count, updated_at, source_text FROM ngram_corpora WHERE corpus_name = ?;`},
		{&s.stmtUpsertCorpus, `INSERT INTO ngram_corpora (corpus_name, corpus_order, source_text, token_count, updated_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(corpus_name) DO UPDATE SET corpus_order = excluded.corpus_order, source_text = excluded.source_text,
token_count = excluded.token_count, updated_at = excluded.updated_at RETURNING corpus_id;`},
		{&s.stmtDeleteSnapshot, `DELETE FROM ngram_snapshot WHERE corpus_id = ?;`},
		{&s.stmtInsertSnapshot, `INSERT INTO ngram_snapshot (corpus_id, key_position, key_text, successor_position, successor, probability) VALUES (?, ?, ?, ?, ?, ?);`},
		{&s.stmtGetSnapshot, `SELECT key_text, successor, probability FROM ngram_snapshot WHERE corpus_id = ? ORDER BY key_position, successor_position;`},
		{&s.stmtSnapshotCounts, `SELECT COUNT(DISTINCT key_text), COUNT(*) FROM ngram_snapshot WHERE corpus_id = ?;`},
		{&s.stmtDeleteCorpus, `DELETE FROM ngram_corpora WHERE corpus_id = ?;`},
	}

	for _, st := range statements {
		stmt, err := db.Prepare(st.query)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("could not prepare statement: %w", err)
		}
		*st.dst = stmt
	}
	return s, nil
}

// Close releases the prepared statements. The database itself stays open.
func (s *Store) Close() {
	for _, stmt := range []*sql.Stmt{
		s.stmtGetCorpusInfo,
		s.stmtGetCorpora,
		s.stmtGetSource,
		s.stmtUpsertCorpus,
		s.stmtDeleteSnapshot,
		s.stmtInsertSnapshot,
		s.stmtGetSnapshot,
		s.stmtSnapshotCounts,
		s.stmtDeleteCorpus,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}
