package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/CTAG07/Dissociated/pkg/ngram"
	"github.com/natefinch/atomic"
)

// ExportedSnapshot is the JSON document written by ExportSnapshot.
type ExportedSnapshot struct {
	Name       string `json:"name"`
	TokenCount int    `json:"token_count"`
	ngram.Snapshot
}

// LoadSnapshot reads the stored snapshot of a corpus without rebuilding its
// model.
func (s *Store) LoadSnapshot(ctx context.Context, name string) (ExportedSnapshot, error) {
	info, err := s.GetCorpusInfo(ctx, name)
	if err != nil {
		return ExportedSnapshot{}, err
	}

	rows, err := s.stmtGetSnapshot.QueryContext(ctx, info.Id)
	if err != nil {
		return ExportedSnapshot{}, fmt.Errorf("could not query snapshot for corpus '%s': %w", name, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	snap := ngram.Snapshot{Order: info.Order, Keys: make([]ngram.SnapshotEntry, 0)}
	for rows.Next() {
		var key string
		var succ ngram.Successor
		if err = rows.Scan(&key, &succ.Token, &succ.Probability); err != nil {
			return ExportedSnapshot{}, err
		}
		// Rows arrive grouped by key in canonical order.
		if n := len(snap.Keys); n == 0 || snap.Keys[n-1].Key != key {
			snap.Keys = append(snap.Keys, ngram.SnapshotEntry{Key: key})
		}
		last := &snap.Keys[len(snap.Keys)-1]
		last.Successors = append(last.Successors, succ)
	}
	if err = rows.Err(); err != nil {
		return ExportedSnapshot{}, err
	}

	return ExportedSnapshot{Name: info.Name, TokenCount: info.TokenCount, Snapshot: snap}, nil
}

// ExportSnapshot writes the stored snapshot of a corpus to w as indented JSON.
func (s *Store) ExportSnapshot(ctx context.Context, name string, w io.Writer) error {
	exported, err := s.LoadSnapshot(ctx, name)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Snapshot exported",
		slog.String("corpus_name", name),
		slog.Int("keys_exported", len(exported.Keys)),
	)
	return EncodeSnapshot(w, exported)
}

// EncodeSnapshot writes snap to w as indented JSON.
func EncodeSnapshot(w io.Writer, snap ExportedSnapshot) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(snap)
}

// WriteSnapshotFile writes snap to path atomically, so readers never observe
// a partially written file.
func WriteSnapshotFile(path string, snap ExportedSnapshot) error {
	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, snap); err != nil {
		return fmt.Errorf("could not encode snapshot: %w", err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("could not write snapshot file %s: %w", path, err)
	}
	return nil
}

// ReadSnapshotFile decodes a snapshot file and validates it into a Model.
func ReadSnapshotFile(path string) (ExportedSnapshot, *ngram.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return ExportedSnapshot{}, nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	var snap ExportedSnapshot
	if err = json.NewDecoder(f).Decode(&snap); err != nil {
		return ExportedSnapshot{}, nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	model, err := ngram.FromSnapshot(snap.Snapshot)
	if err != nil {
		return ExportedSnapshot{}, nil, err
	}
	return snap, model, nil
}
