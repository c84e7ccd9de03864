package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/CTAG07/Dissociated/pkg/ngram"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

const catDogText = "the cat sat. the dog ran."

// openTestStore opens a SQLite database under dir and prepares a Store on it.
func openTestStore(tb testing.TB, dataSource string) (*sql.DB, *Store) {
	db, err := sql.Open("sqlite3", dataSource)
	require.NoError(tb, err, "failed to open database")
	tb.Cleanup(func() { _ = db.Close() })

	require.NoError(tb, SetupSchema(db), "failed to set up schema")

	s, err := NewStore(db)
	require.NoError(tb, err)
	tb.Cleanup(s.Close)

	return db, s
}

// setupTestDB creates a temporary SQLite database and a Store for testing.
func setupTestDB(t *testing.T) (*sql.DB, *Store) {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	return openTestStore(t, dbFile+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-4000")
}

// setupTestDBWithCorpus also saves a bigram corpus named "catdog".
func setupTestDBWithCorpus(t *testing.T) (context.Context, *Store, CorpusInfo) {
	_, s := setupTestDB(t)
	ctx := context.Background()

	info, _, err := s.SaveCorpus(ctx, "catdog", ngram.Bigram, catDogText)
	require.NoError(t, err, "setup: SaveCorpus")
	return ctx, s, info
}

// setupTestDBBench creates a database for benchmarking.
func setupTestDBBench(b *testing.B) (*sql.DB, *Store) {
	dbFile := filepath.Join(b.TempDir(), "bench.db")
	return openTestStore(b, dbFile+"?_journal_mode=WAL&_synchronous=OFF&_cache_size=-16000")
}
