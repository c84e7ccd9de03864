package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/CTAG07/Dissociated/pkg/ngram"
)

// CorpusInfo is the metadata stored for a corpus.
type CorpusInfo struct {
	Id         int         `json:"id"`
	Name       string      `json:"name"`
	Order      ngram.Order `json:"order"`
	TokenCount int         `json:"token_count"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// GetCorpusInfos returns the metadata of every stored corpus, ordered by name.
func (s *Store) GetCorpusInfos(ctx context.Context) ([]CorpusInfo, error) {
	rows, err := s.stmtGetCorpora.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	corpora := make([]CorpusInfo, 0)
	for rows.Next() {
		var info CorpusInfo
		var updated int64
		if err = rows.Scan(&info.Id, &info.Name, &info.Order, &info.TokenCount, &updated); err != nil {
			return nil, err
		}
		info.UpdatedAt = time.Unix(updated, 0).UTC()
		corpora = append(corpora, info)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return corpora, nil
}

// GetCorpusInfo returns the metadata for a single corpus. A missing corpus
// yields sql.ErrNoRows.
func (s *Store) GetCorpusInfo(ctx context.Context, name string) (CorpusInfo, error) {
	info := CorpusInfo{Name: name}
	var updated int64
	err := s.stmtGetCorpusInfo.QueryRowContext(ctx, name).Scan(&info.Id, &info.Order, &info.TokenCount, &updated)
	if err != nil {
		return CorpusInfo{}, err
	}
	info.UpdatedAt = time.Unix(updated, 0).UTC()
	return info, nil
}

// SaveCorpus builds a model from text and stores the corpus under name,
// replacing any corpus of the same name along with its snapshot. Nothing is
// written if the model cannot be built. The built model is returned so
// callers can publish it without rebuilding.
func (s *Store) SaveCorpus(ctx context.Context, name string, order ngram.Order, text string) (CorpusInfo, *ngram.Model, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CorpusInfo{}, nil, ErrEmptyName
	}

	model, err := ngram.BuildOrder(text, order)
	if err != nil {
		return CorpusInfo{}, nil, fmt.Errorf("could not build model for corpus '%s': %w", name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CorpusInfo{}, nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	now := time.Now().UTC().Truncate(time.Second)
	info := CorpusInfo{Name: name, Order: order, TokenCount: model.TokenCount(), UpdatedAt: now}

	err = tx.StmtContext(ctx, s.stmtUpsertCorpus).
		QueryRowContext(ctx, name, int(order), text, info.TokenCount, now.Unix()).
		Scan(&info.Id)
	if err != nil {
		return CorpusInfo{}, nil, fmt.Errorf("could not save corpus '%s': %w", name, err)
	}

	if _, err = tx.StmtContext(ctx, s.stmtDeleteSnapshot).ExecContext(ctx, info.Id); err != nil {
		return CorpusInfo{}, nil, fmt.Errorf("could not clear snapshot for corpus '%s': %w", name, err)
	}

	insert := tx.StmtContext(ctx, s.stmtInsertSnapshot)
	var rows int
	keyPos := 0
	model.Range(func(key string, d ngram.Distribution) bool {
		for succPos, succ := range d {
			if _, err = insert.ExecContext(ctx, info.Id, keyPos, key, succPos, succ.Token, succ.Probability); err != nil {
				err = fmt.Errorf("could not insert snapshot row (%s -> %s): %w", key, succ.Token, err)
				return false
			}
			rows++
		}
		keyPos++
		return true
	})
	if err != nil {
		return CorpusInfo{}, nil, err
	}

	if err = tx.Commit(); err != nil {
		return CorpusInfo{}, nil, fmt.Errorf("could not commit corpus '%s': %w", name, err)
	}

	s.logger.InfoContext(ctx, "Corpus saved",
		slog.String("corpus_name", name),
		slog.Int("corpus_id", info.Id),
		slog.String("order", order.Label()),
		slog.Int("token_count", info.TokenCount),
		slog.Int("snapshot_rows", rows),
	)
	return info, model, nil
}

// SourceText returns the stored text of a corpus together with its metadata.
func (s *Store) SourceText(ctx context.Context, name string) (CorpusInfo, string, error) {
	info := CorpusInfo{Name: name}
	var updated int64
	var text string
	err := s.stmtGetSource.QueryRowContext(ctx, name).Scan(&info.Id, &info.Order, &info.TokenCount, &updated, &text)
	if err != nil {
		return CorpusInfo{}, "", err
	}
	info.UpdatedAt = time.Unix(updated, 0).UTC()
	return info, text, nil
}

// LoadModel rebuilds the model of a stored corpus from its source text.
func (s *Store) LoadModel(ctx context.Context, name string) (CorpusInfo, *ngram.Model, error) {
	info, text, err := s.SourceText(ctx, name)
	if err != nil {
		return CorpusInfo{}, nil, err
	}
	model, err := ngram.BuildOrder(text, info.Order)
	if err != nil {
		return CorpusInfo{}, nil, fmt.Errorf("could not rebuild model for corpus '%s': %w", name, err)
	}
	return info, model, nil
}

// RemoveCorpus deletes a corpus and its snapshot. Removing a corpus that does
// not exist yields sql.ErrNoRows.
func (s *Store) RemoveCorpus(ctx context.Context, name string) error {
	info, err := s.GetCorpusInfo(ctx, name)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.StmtContext(ctx, s.stmtDeleteSnapshot).ExecContext(ctx, info.Id); err != nil {
		return fmt.Errorf("failed to remove snapshot for corpus %d: %w", info.Id, err)
	}
	if _, err = tx.StmtContext(ctx, s.stmtDeleteCorpus).ExecContext(ctx, info.Id); err != nil {
		return fmt.Errorf("failed to remove corpus %d: %w", info.Id, err)
	}
	if err = tx.Commit(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Corpus removed",
		slog.String("corpus_name", name),
		slog.Int("corpus_id", info.Id),
	)
	return nil
}

// IsNotFound reports whether err means the corpus does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
