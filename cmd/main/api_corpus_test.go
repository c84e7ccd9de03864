package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/CTAG07/Dissociated/pkg/ngram"
	"github.com/CTAG07/Dissociated/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodPost, "/api/tokenize", TokenizeRequest{Text: "Hello, World! Is it (really) me?"})
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[TokenizeResponse](t, rr)
	assert.Equal(t, []string{"hello", "world", "<EXCL>", "is", "it", "really", "me", "<Q>"}, resp.Tokens)
	assert.Equal(t, 8, resp.TokenCount)

	rr = ts.do(http.MethodPost, "/api/tokenize", TokenizeRequest{Text: "   "})
	require.Equal(t, http.StatusOK, rr.Code)
	resp = decode[TokenizeResponse](t, rr)
	assert.Empty(t, resp.Tokens)
	assert.Zero(t, resp.TokenCount)

	rr = ts.do(http.MethodGet, "/api/tokenize", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestCorpusLifecycle(t *testing.T) {
	ts := newTestServer(t)

	created := ts.createCorpus("catdog", ngram.BigramLabel, catDogText)
	assert.Equal(t, "catdog", created.Name)
	assert.Equal(t, ngram.Bigram, created.Order)
	assert.Equal(t, 8, created.TokenCount)
	assert.Equal(t, 6, created.Stats.Keys)
	assert.Equal(t, 7, created.Stats.Transitions)

	rr := ts.do(http.MethodGet, "/api/corpora", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]store.CorpusInfo](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, "catdog", list[0].Name)

	rr = ts.do(http.MethodGet, "/api/corpora/catdog", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[CorpusResponse](t, rr)
	assert.Equal(t, created.Id, got.Id)
	assert.InDelta(t, 1.167, got.Stats.BranchingFactor, 1e-9)

	rr = ts.do(http.MethodGet, "/api/corpora/catdog/text", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, catDogText, decode[map[string]any](t, rr)["text"])

	// Rebuild as a trigram model under the same name.
	rr = ts.do(http.MethodPut, "/api/corpora/catdog", CorpusRequest{Order: ngram.TrigramLabel, Text: catDogText})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rebuilt := decode[CorpusResponse](t, rr)
	assert.Equal(t, ngram.Trigram, rebuilt.Order)
	assert.Equal(t, created.Id, rebuilt.Id)

	pm, ok := ts.server.registry.Get("catdog")
	require.True(t, ok)
	assert.Equal(t, ngram.Trigram, pm.Model.Order())

	rr = ts.do(http.MethodDelete, "/api/corpora/catdog", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.do(http.MethodGet, "/api/corpora/catdog", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = ts.do(http.MethodDelete, "/api/corpora/catdog", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, ts.server.registry.Names())
}

func TestCreateCorpusErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.createCorpus("catdog", ngram.BigramLabel, catDogText)

	tests := []struct {
		name string
		req  CorpusRequest
		code int
	}{
		{"duplicate", CorpusRequest{Name: "catdog", Order: ngram.BigramLabel, Text: catDogText}, http.StatusConflict},
		{"bad order", CorpusRequest{Name: "other", Order: "Penta-gram", Text: catDogText}, http.StatusBadRequest},
		{"insufficient input", CorpusRequest{Name: "other", Order: ngram.BigramLabel, Text: "hello"}, http.StatusBadRequest},
		{"bad name", CorpusRequest{Name: "no spaces", Order: ngram.BigramLabel, Text: catDogText}, http.StatusBadRequest},
		{"empty name", CorpusRequest{Name: "", Order: ngram.BigramLabel, Text: catDogText}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(http.MethodPost, "/api/corpora", tt.req)
			assert.Equal(t, tt.code, rr.Code, rr.Body.String())
			assert.NotEmpty(t, errorMessage(t, rr))
		})
	}

	rr := ts.do(http.MethodPost, "/api/corpora", "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Failed builds leave nothing behind.
	assert.Equal(t, []string{"catdog"}, ts.server.registry.Names())
}

func TestCreateCorpusTooLarge(t *testing.T) {
	ts := newTestServer(t)
	cfg := ts.cm.Get()
	cfg.Generation.MaxTextBytes = 64
	require.NoError(t, ts.cm.Update(cfg))

	big := strings.Repeat("the cat sat. ", 1000)
	rr := ts.do(http.MethodPost, "/api/corpora", CorpusRequest{Name: "big", Order: ngram.BigramLabel, Text: big})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestGenerateEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.createCorpus("catdog", ngram.BigramLabel, catDogText)

	rr := ts.do(http.MethodPost, "/api/corpora/catdog/generate", GenerateRequest{StartKey: "the", WordLimit: 3})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[GenerateResponse](t, rr)
	require.Len(t, resp.Tokens, 3)
	assert.Equal(t, "the", resp.Tokens[0])
	assert.Contains(t, []string{"cat", "dog"}, resp.Tokens[1])
	assert.Equal(t, ngram.StatusWordLimit, resp.Status)
	assert.Equal(t, "catdog", resp.Corpus)

	rr = ts.do(http.MethodPost, "/api/corpora/catdog/generate", GenerateRequest{StartKey: "zebra"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(http.MethodPost, "/api/corpora/nope/generate", GenerateRequest{})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(http.MethodPost, "/api/corpora/catdog/generate", GenerateRequest{WordLimit: 1 << 20})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGenerateSeeded(t *testing.T) {
	ts := newTestServer(t)
	ts.createCorpus("catdog", ngram.BigramLabel, catDogText)

	seed := uint64(42)
	first := decode[GenerateResponse](t, ts.do(http.MethodPost, "/api/corpora/catdog/generate", GenerateRequest{WordLimit: 20, Seed: &seed}))
	second := decode[GenerateResponse](t, ts.do(http.MethodPost, "/api/corpora/catdog/generate", GenerateRequest{WordLimit: 20, Seed: &seed}))
	assert.Equal(t, first.Text, second.Text)
	assert.LessOrEqual(t, len(first.Tokens), 20)
	assert.Equal(t, ngram.Detokenize(first.Tokens), first.Display)
}

func TestGenerateWithoutBody(t *testing.T) {
	ts := newTestServer(t)
	ts.createCorpus("catdog", ngram.BigramLabel, catDogText)

	rr := ts.do(http.MethodPost, "/api/corpora/catdog/generate", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[GenerateResponse](t, rr)
	assert.NotEmpty(t, resp.Tokens)
}

func TestExportModel(t *testing.T) {
	ts := newTestServer(t)
	ts.createCorpus("catdog", ngram.BigramLabel, catDogText)

	rr := ts.do(http.MethodGet, "/api/corpora/catdog/model", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "catdog.json")

	var snap store.ExportedSnapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, "catdog", snap.Name)
	assert.Equal(t, ngram.Bigram, snap.Order)
	assert.Len(t, snap.Keys, 6)

	model, err := ngram.FromSnapshot(snap.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, model.Options("the"))

	rr = ts.do(http.MethodGet, "/api/corpora/nope/model", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStatsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.createCorpus("catdog", ngram.BigramLabel, catDogText)
	ts.createCorpus("abc", ngram.BigramLabel, "a b c")

	rr := ts.do(http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decode[store.DBStats](t, rr)
	assert.Len(t, stats.Corpora, 2)
	assert.Equal(t, 8, stats.TotalKeys)
	assert.Equal(t, 9, stats.TotalTransitions)
}

func TestRegistryReloadsStoredCorpora(t *testing.T) {
	ts := newTestServer(t)
	ts.createCorpus("catdog", ngram.BigramLabel, catDogText)

	registry := NewModelRegistry()
	n, err := registry.LoadAll(t.Context(), ts.server.store, ts.server.logger)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	model, ok := registry.Model("catdog")
	require.True(t, ok)
	assert.Equal(t, []string{"cat", "dog"}, model.Options("the"))
	assert.Equal(t, []string{"catdog"}, registry.Names())
	require.Len(t, registry.Infos(), 1)
}
