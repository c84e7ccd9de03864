package templating

import (
	"strconv"
	"strings"

	"github.com/CTAG07/Dissociated/pkg/ngram"
)

// TableRow is one key of a model table with its leading successors.
type TableRow struct {
	Key        string
	Display    string
	Successors ngram.Distribution
	Truncated  bool // more successors exist than are shown
}

func (tm *TemplateManager) lookup(fn, corpus string) (*ngram.Model, bool) {
	if tm.models == nil {
		tm.logger.Error(fn+": no model source configured", "corpus", corpus)
		return nil, false
	}
	model, ok := tm.models.Model(corpus)
	if !ok {
		tm.logger.Error(fn+": corpus not found", "corpus", corpus)
	}
	return model, ok
}

// clampWords applies the configured default and maximum to a requested
// passage length.
func (tm *TemplateManager) clampWords(words int) int {
	if words <= 0 {
		words = tm.config.DefaultWordLimit
	}
	if tm.config.MaxWordLimit > 0 && words > tm.config.MaxWordLimit {
		words = tm.config.MaxWordLimit
	}
	return words
}

// passage generates display text of up to words tokens from a random key of
// the named corpus.
func (tm *TemplateManager) passage(corpus string, words int) (string, error) {
	return tm.passageFrom(corpus, "", words)
}

// passageFrom is passage with an explicit start key.
func (tm *TemplateManager) passageFrom(corpus, startKey string, words int) (string, error) {
	model, ok := tm.lookup("passage", corpus)
	if !ok {
		return "", nil
	}

	w, err := ngram.NewWalker(model,
		ngram.WithStartKey(startKey),
		ngram.WithWordLimit(tm.clampWords(words)),
		ngram.WithLogger(tm.logger),
	)
	if err != nil {
		tm.logger.Error("passage: generation failed", "corpus", corpus, "start_key", startKey, "error", err)
		return "", nil
	}
	return ngram.Detokenize(w.Run().Tokens), nil
}

// corpora returns the names of all published corpora.
func (tm *TemplateManager) corpora() []string {
	if tm.models == nil {
		return []string{}
	}
	return tm.models.Names()
}

// modelKeys returns the keys of a corpus in canonical order, capped at
// MaxTableKeys.
func (tm *TemplateManager) modelKeys(corpus string) []string {
	model, ok := tm.lookup("modelKeys", corpus)
	if !ok {
		return []string{}
	}
	keys := model.Keys()
	if limit := tm.config.MaxTableKeys; limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}

// modelTable returns the key to successor table of a corpus.
func (tm *TemplateManager) modelTable(corpus string) []TableRow {
	model, ok := tm.lookup("modelTable", corpus)
	if !ok {
		return []TableRow{}
	}

	rows := make([]TableRow, 0, min(model.Len(), tm.config.MaxTableKeys))
	model.Range(func(key string, d ngram.Distribution) bool {
		if tm.config.MaxTableKeys > 0 && len(rows) >= tm.config.MaxTableKeys {
			return false
		}
		row := TableRow{
			Key:        key,
			Display:    ngram.Detokenize(ngram.KeyTokens(key)),
			Successors: d,
		}
		if limit := tm.config.MaxSuccessors; limit > 0 && len(d) > limit {
			row.Successors = d[:limit]
			row.Truncated = true
		}
		rows = append(rows, row)
		return true
	})
	return rows
}

// modelStats returns the statistics of a corpus's model.
func (tm *TemplateManager) modelStats(corpus string) ngram.Stats {
	model, ok := tm.lookup("modelStats", corpus)
	if !ok {
		return ngram.Stats{}
	}
	return model.Stats()
}

// successors returns the distribution of a single key.
func (tm *TemplateManager) successors(corpus, key string) ngram.Distribution {
	model, ok := tm.lookup("successors", corpus)
	if !ok {
		return nil
	}
	d, _ := model.Successors(key)
	return d
}

// detokenize turns space separated tokens into display text.
func detokenize(tokens string) string {
	return ngram.Detokenize(strings.Fields(tokens))
}

// percent formats a probability as a whole percentage, e.g. 0.5 -> "50%".
func percent(p float64) string {
	return strconv.FormatFloat(p*100, 'f', 0, 64) + "%"
}
