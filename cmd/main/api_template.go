package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/CTAG07/Dissociated/pkg/templating"
	"github.com/natefinch/atomic"
)

// TemplateAPI manages the view templates rendered by the dashboard.
type TemplateAPI struct {
	tm       *templating.TemplateManager
	registry *ModelRegistry
	sessions *SessionStore
	cm       *ConfigManager
	logger   *slog.Logger
}

// NewTemplateAPI creates a new instance of the TemplateAPI.
func NewTemplateAPI(tm *templating.TemplateManager, registry *ModelRegistry, sessions *SessionStore, cm *ConfigManager, logger *slog.Logger) *TemplateAPI {
	return &TemplateAPI{
		tm:       tm,
		registry: registry,
		sessions: sessions,
		cm:       cm,
		logger:   logger,
	}
}

// RegisterRoutes sets up the routing for all /api/templates endpoints.
func (t *TemplateAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/templates/refresh", t.handleRefresh)
	mux.HandleFunc("/api/templates/test", t.handleTest)
	mux.HandleFunc("/api/templates/preview", t.handlePreview)
	mux.HandleFunc("/api/templates", t.handleList)
	mux.HandleFunc("/api/templates/", t.handleFile)
}

// previewInput builds the page data for a preview. The corpus and word
// count come from the "corpus" and "words" query parameters.
func (t *TemplateAPI) previewInput(r *http.Request) (PageInput, error) {
	name := r.URL.Query().Get("corpus")
	if name != "" {
		if _, ok := t.registry.Get(name); !ok {
			return PageInput{}, fmt.Errorf("corpus '%s' not found", name)
		}
	}
	words, err := strconv.Atoi(r.URL.Query().Get("words"))
	if err != nil || words < 1 {
		words = t.cm.Generation().DefaultWordLimit
	}
	return PageInput{
		Corpora:  t.registry.Infos(),
		Sessions: t.sessions.Len(),
		Name:     name,
		Words:    words,
	}, nil
}

func (t *TemplateAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "templates:write") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:write' scope")
		return
	}
	if err := t.tm.Refresh(); err != nil {
		t.logger.Error("Template refresh failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to refresh templates: %v", err))
		return
	}
	t.logger.Info("Templates refreshed via API")
	w.WriteHeader(http.StatusNoContent)
}

func (t *TemplateAPI) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "templates:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:read' scope")
		return
	}
	names := t.tm.GetTemplateNames()
	if names == nil {
		names = []string{}
	}
	respondWithJSON(w, http.StatusOK, names)
}

// handleTest renders the request body as a template without saving it.
func (t *TemplateAPI) handleTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "templates:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:read' scope")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read request body: %v", err))
		return
	}
	input, err := t.previewInput(r)
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	var buf bytes.Buffer
	if err = t.tm.ExecuteTemplateString(&buf, string(body), input); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Template execution failed: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handlePreview renders a loaded template against a corpus.
func (t *TemplateAPI) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, "templates:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:read' scope")
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'name' is required")
		return
	}
	if !t.tm.HasTemplate(name) {
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("Template '%s' not found", name))
		return
	}
	input, err := t.previewInput(r)
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	var buf bytes.Buffer
	if err = t.tm.Execute(&buf, name, input); err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to render preview: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// templatePath resolves a template file name inside the template directory.
func (t *TemplateAPI) templatePath(name string) (string, int, string) {
	if strings.Contains(name, "/") || strings.Contains(name, "..") ||
		(!strings.HasSuffix(name, ".tmpl.html") && !strings.HasSuffix(name, ".part.html")) {
		return "", http.StatusBadRequest, "Invalid template name format"
	}
	templateDir, err := filepath.Abs(t.tm.GetTemplateDir())
	if err != nil {
		return "", http.StatusInternalServerError, "Failed to resolve template directory"
	}
	path := filepath.Join(templateDir, name)
	if filepath.Dir(path) != templateDir {
		return "", http.StatusForbidden, "Access denied: Path outside template directory"
	}
	return path, 0, ""
}

// handleFile reads, writes or removes a single template file. Writes that
// leave the template set unparseable are rolled back.
func (t *TemplateAPI) handleFile(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/templates/")
	if name == "" {
		respondWithError(w, http.StatusNotFound, "Not Found")
		return
	}
	path, code, msg := t.templatePath(name)
	if code != 0 {
		respondWithError(w, code, msg)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !hasScope(r, "templates:read") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:read' scope")
			return
		}
		content, err := os.ReadFile(path)
		if err != nil {
			respondWithError(w, http.StatusNotFound, "Template not found")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write(content)

	case http.MethodPut:
		if !hasScope(r, "templates:write") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:write' scope")
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read request body: %v", err))
			return
		}
		previous, readErr := os.ReadFile(path)
		if err = atomic.WriteFile(path, bytes.NewReader(body)); err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to write template file: %v", err))
			return
		}
		if err = t.tm.Refresh(); err != nil {
			if readErr == nil {
				_ = atomic.WriteFile(path, bytes.NewReader(previous))
			} else {
				_ = os.Remove(path)
			}
			_ = t.tm.Refresh()
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Template rejected: %v", err))
			return
		}
		t.logger.Info("Template saved via API", "template", name)
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		if !hasScope(r, "templates:write") {
			respondWithError(w, http.StatusForbidden, "Forbidden: requires 'templates:write' scope")
			return
		}
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				respondWithError(w, http.StatusNotFound, "Template not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to delete template file: %v", err))
			return
		}
		_ = t.tm.Refresh()
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
