package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/CTAG07/Dissociated/pkg/ngram"
	"github.com/CTAG07/Dissociated/pkg/store"
)

var corpusNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// CorpusAPI holds the dependencies for the corpus, tokenize and generation
// handlers.
type CorpusAPI struct {
	store    *store.Store
	registry *ModelRegistry
	cm       *ConfigManager
	metrics  *Metrics
	logger   *slog.Logger
}

// NewCorpusAPI creates a new instance of the CorpusAPI.
func NewCorpusAPI(st *store.Store, registry *ModelRegistry, cm *ConfigManager, metrics *Metrics, logger *slog.Logger) *CorpusAPI {
	return &CorpusAPI{
		store:    st,
		registry: registry,
		cm:       cm,
		metrics:  metrics,
		logger:   logger,
	}
}

// RegisterRoutes sets up the routing for /api/tokenize, /api/stats and all
// /api/corpora endpoints.
func (c *CorpusAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/tokenize", c.handleTokenize)
	mux.HandleFunc("/api/stats", c.handleStats)
	mux.HandleFunc("/api/corpora", c.handleListAndCreateCorpora)
	mux.HandleFunc("/api/corpora/", c.handleCorpusByName)
}

type TokenizeRequest struct {
	Text string `json:"text"`
}

type TokenizeResponse struct {
	Tokens     []string `json:"tokens"`
	TokenCount int      `json:"token_count"`
}

type CorpusRequest struct {
	Name  string `json:"name"`
	Order string `json:"order"` // "Bi-gram", "Tri-gram" or "Tetra-gram"
	Text  string `json:"text"`
}

type CorpusResponse struct {
	store.CorpusInfo
	Stats ngram.Stats `json:"stats"`
}

type GenerateRequest struct {
	StartKey  string  `json:"start_key"`
	WordLimit int     `json:"word_limit"`
	Seed      *uint64 `json:"seed"`
}

type GenerateResponse struct {
	Corpus  string `json:"corpus"`
	Display string `json:"display"`
	ngram.Result
}

// decodeBody decodes a JSON body capped at the configured text size. It
// writes the error response itself and reports whether decoding succeeded.
func (c *CorpusAPI) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	limit := c.cm.Generation().MaxTextBytes
	// Leave room for the JSON envelope around the text.
	r.Body = http.MaxBytesReader(w, r.Body, limit+4096)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", limit))
			return false
		}
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return false
	}
	return true
}

func (c *CorpusAPI) handleTokenize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "corpus:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'corpus:read' scope")
		return
	}
	var req TokenizeRequest
	if !c.decodeBody(w, r, &req) {
		return
	}
	tokens, count := ngram.Tokenize(req.Text)
	if tokens == nil {
		tokens = []string{}
	}
	respondWithJSON(w, http.StatusOK, TokenizeResponse{Tokens: tokens, TokenCount: count})
}

func (c *CorpusAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "corpus:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'corpus:read' scope")
		return
	}
	stats, err := c.store.GetStats(r.Context())
	if err != nil {
		c.logger.Error("Failed to get corpus stats", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve stats")
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// handleListAndCreateCorpora handles GET for listing and POST for creating corpora.
func (c *CorpusAPI) handleListAndCreateCorpora(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !hasScope(r, "corpus:read") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'corpus:read' scope")
			return
		}
		corpora, err := c.store.GetCorpusInfos(r.Context())
		if err != nil {
			c.logger.Error("Failed to get corpus infos", "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve corpora: %v", err))
			return
		}
		respondWithJSON(w, http.StatusOK, corpora)

	case http.MethodPost:
		if !hasScope(r, "corpus:write") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'corpus:write' scope")
			return
		}
		var req CorpusRequest
		if !c.decodeBody(w, r, &req) {
			return
		}
		if !corpusNamePattern.MatchString(req.Name) {
			respondWithError(w, http.StatusBadRequest, "Corpus name must be 1-64 letters, digits, '.', '_' or '-'")
			return
		}
		if _, err := c.store.GetCorpusInfo(r.Context(), req.Name); err == nil {
			respondWithError(w, http.StatusConflict, fmt.Sprintf("Corpus '%s' already exists, use PUT to rebuild it", req.Name))
			return
		} else if !store.IsNotFound(err) {
			c.logger.Error("Failed to look up corpus", "corpus", req.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, "Database query failed")
			return
		}
		c.saveCorpus(w, r, req.Name, req, http.StatusCreated)

	default:
		w.Header().Set("Allow", "GET, POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleCorpusByName routes actions for a specific corpus.
func (c *CorpusAPI) handleCorpusByName(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/corpora/")
	parts := strings.Split(strings.TrimSuffix(path, "/"), "/")
	name := parts[0]

	if name == "" {
		respondWithError(w, http.StatusBadRequest, "Corpus name not specified")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			c.getCorpus(w, r, name)
		case http.MethodPut:
			if !hasScope(r, "corpus:write") {
				respondWithError(w, http.StatusForbidden, "Forbidden: requires 'corpus:write' scope")
				return
			}
			if !corpusNamePattern.MatchString(name) {
				respondWithError(w, http.StatusBadRequest, "Corpus name must be 1-64 letters, digits, '.', '_' or '-'")
				return
			}
			var req CorpusRequest
			if !c.decodeBody(w, r, &req) {
				return
			}
			c.saveCorpus(w, r, name, req, http.StatusOK)
		case http.MethodDelete:
			c.deleteCorpus(w, r, name)
		default:
			w.Header().Set("Allow", "GET, PUT, DELETE")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	if len(parts) != 2 {
		respondWithError(w, http.StatusNotFound, "Not found")
		return
	}

	switch parts[1] {
	case "model":
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		c.exportModel(w, r, name)
	case "text":
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		c.getText(w, r, name)
	case "generate":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		c.generate(w, r, name)
	default:
		respondWithError(w, http.StatusNotFound, "Not found")
	}
}

// saveCorpus builds, stores and publishes a corpus.
func (c *CorpusAPI) saveCorpus(w http.ResponseWriter, r *http.Request, name string, req CorpusRequest, status int) {
	order, err := ngram.ParseOrder(req.Order)
	if err != nil {
		respondWithModelError(w, c.logger, err)
		return
	}

	start := time.Now()
	info, model, err := c.store.SaveCorpus(r.Context(), name, order, req.Text)
	if err != nil {
		respondWithModelError(w, c.logger, err)
		return
	}
	c.metrics.ObserveBuild(order, time.Since(start))
	c.registry.Publish(info, model)

	c.logger.Info("Corpus published",
		"corpus", name,
		"order", order.Label(),
		"keys", model.Len(),
		"token_count", model.TokenCount(),
	)
	respondWithJSON(w, status, CorpusResponse{CorpusInfo: info, Stats: model.Stats()})
}

func (c *CorpusAPI) getCorpus(w http.ResponseWriter, r *http.Request, name string) {
	if !hasScope(r, "corpus:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'corpus:read' scope")
		return
	}
	pm, ok := c.registry.Get(name)
	if !ok {
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("Corpus '%s' not found", name))
		return
	}
	respondWithJSON(w, http.StatusOK, CorpusResponse{CorpusInfo: pm.Info, Stats: pm.Model.Stats()})
}

func (c *CorpusAPI) deleteCorpus(w http.ResponseWriter, r *http.Request, name string) {
	if !hasScope(r, "corpus:write") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'corpus:write' scope")
		return
	}
	if err := c.store.RemoveCorpus(r.Context(), name); err != nil {
		if store.IsNotFound(err) {
			respondWithError(w, http.StatusNotFound, fmt.Sprintf("Corpus '%s' not found", name))
			return
		}
		c.logger.Error("Failed to remove corpus", "corpus", name, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to remove corpus")
		return
	}
	c.registry.Remove(name)
	w.WriteHeader(http.StatusNoContent)
}

func (c *CorpusAPI) exportModel(w http.ResponseWriter, r *http.Request, name string) {
	if !hasScope(r, "corpus:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'corpus:read' scope")
		return
	}
	var buf bytes.Buffer
	if err := c.store.ExportSnapshot(r.Context(), name, &buf); err != nil {
		if store.IsNotFound(err) {
			respondWithError(w, http.StatusNotFound, fmt.Sprintf("Corpus '%s' not found", name))
			return
		}
		c.logger.Error("Failed to export snapshot", "corpus", name, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to export model")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".json"))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (c *CorpusAPI) getText(w http.ResponseWriter, r *http.Request, name string) {
	if !hasScope(r, "corpus:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'corpus:read' scope")
		return
	}
	info, text, err := c.store.SourceText(r.Context(), name)
	if err != nil {
		respondWithModelError(w, c.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"name": info.Name, "order": info.Order, "text": text})
}

func (c *CorpusAPI) generate(w http.ResponseWriter, r *http.Request, name string) {
	if !hasScope(r, "corpus:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'corpus:read' scope")
		return
	}
	var req GenerateRequest
	if r.ContentLength != 0 && !c.decodeBody(w, r, &req) {
		return
	}

	pm, ok := c.registry.Get(name)
	if !ok {
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("Corpus '%s' not found", name))
		return
	}

	limits := c.cm.Generation()
	wordLimit := req.WordLimit
	if wordLimit <= 0 {
		wordLimit = limits.DefaultWordLimit
	}
	if wordLimit > limits.MaxWordLimit {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("word_limit must not exceed %d", limits.MaxWordLimit))
		return
	}

	opts := []ngram.GenerateOption{
		ngram.WithStartKey(req.StartKey),
		ngram.WithWordLimit(wordLimit),
		ngram.WithLogger(c.logger),
	}
	if req.Seed != nil {
		opts = append(opts, ngram.WithSampler(ngram.NewSeededSampler(*req.Seed)))
	}

	walker, err := ngram.NewWalker(pm.Model, opts...)
	if err != nil {
		respondWithModelError(w, c.logger, err)
		return
	}
	res := walker.Run()
	c.metrics.ObserveGeneration(res.Status)

	respondWithJSON(w, http.StatusOK, GenerateResponse{
		Corpus:  name,
		Display: ngram.Detokenize(res.Tokens),
		Result:  res,
	})
}

// respondWithModelError maps errors from the ngram and store packages to
// HTTP status codes.
func respondWithModelError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, ngram.ErrInvalidModelType),
		errors.Is(err, ngram.ErrInsufficientInput),
		errors.Is(err, ngram.ErrInvalidChoice),
		errors.Is(err, store.ErrEmptyName):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ngram.ErrKeyNotFound), store.IsNotFound(err):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ngram.ErrDeadEnd), errors.Is(err, ngram.ErrSessionIdle):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrTooManySessions):
		respondWithError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Error("Request failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}
