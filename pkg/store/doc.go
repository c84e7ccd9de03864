// Package store persists named corpora in SQLite.
//
// A corpus is stored as its source text and model order. Models are never
// updated incrementally: loading a corpus rebuilds its model from the stored
// text with package ngram. Each save also writes a flat snapshot of the
// model's keys and successor probabilities, which backs exports and
// statistics without a rebuild.
//
// The package works with any database/sql SQLite driver. The caller opens the
// database, calls SetupSchema once, and then creates a Store with NewStore.
package store
