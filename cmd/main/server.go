package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/CTAG07/Dissociated/pkg/store"
	"github.com/CTAG07/Dissociated/pkg/templating"
)

// Server wires the storage, model registry, templates and APIs of one
// server cycle together.
type Server struct {
	cm         *ConfigManager
	db         *sql.DB
	logger     *slog.Logger
	store      *store.Store
	registry   *ModelRegistry
	tm         *templating.TemplateManager
	sessions   *SessionStore
	metrics    *Metrics
	authAPI    *AuthAPI
	corpusAPI  *CorpusAPI
	sessionAPI *SessionAPI
	serverAPI  *ServerAPI
	tmplAPI    *TemplateAPI
	mux        *http.ServeMux
}

// PageInput is the data passed to every page template. Name and Words are
// only set when a page is about a single corpus.
type PageInput struct {
	Corpora  []store.CorpusInfo
	Sessions int
	Name     string
	Words    int
}

func NewServer(cm *ConfigManager, logger *slog.Logger, db *sql.DB, actionChan chan string) (*Server, error) {
	cfg := cm.Get()

	if err := store.SetupSchema(db); err != nil {
		return nil, fmt.Errorf("failed to setup corpus schema: %w", err)
	}
	st, err := store.NewStore(db)
	if err != nil {
		return nil, fmt.Errorf("error creating corpus store: %w", err)
	}
	st.SetLogger(logger)

	registry := NewModelRegistry()
	loaded, err := registry.LoadAll(context.Background(), st, logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load corpora: %w", err)
	}
	logger.Info("Corpus models rebuilt", "count", loaded)

	tm, err := templating.NewTemplateManager(logger, registry, cfg.Templates, cfg.Server.DashboardTmplPath)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create template manager: %w", err)
	}
	cm.SetTemplateManager(tm)

	metrics := NewMetrics()
	sessions := NewSessionStore(time.Duration(cfg.Generation.SessionTTLMinutes)*time.Minute, cfg.Generation.MaxSessions)

	server := &Server{
		cm:         cm,
		db:         db,
		logger:     logger,
		store:      st,
		registry:   registry,
		tm:         tm,
		sessions:   sessions,
		metrics:    metrics,
		authAPI:    NewAuthAPI(db, logger),
		corpusAPI:  NewCorpusAPI(st, registry, cm, metrics, logger),
		sessionAPI: NewSessionAPI(sessions, registry, metrics, logger),
		serverAPI:  NewServerAPI(cm, db, registry, actionChan, logger),
		tmplAPI:    NewTemplateAPI(tm, registry, sessions, cm, logger),
		mux:        http.NewServeMux(),
	}

	apiMux := http.NewServeMux()
	server.authAPI.RegisterRoutes(apiMux)
	server.corpusAPI.RegisterRoutes(apiMux)
	server.sessionAPI.RegisterRoutes(apiMux)
	server.serverAPI.RegisterRoutes(apiMux)
	server.tmplAPI.RegisterRoutes(apiMux)

	// Everything under /api/ passes through authentication first,
	// except the health check.
	server.mux.HandleFunc("/api/health", server.serverAPI.handleHealthCheck)
	server.mux.Handle("/api/", server.authAPI.Authenticate(apiMux))

	if cfg.Server.MetricsEnabled {
		server.mux.Handle("/metrics", metrics.Handler())
	}

	server.mux.HandleFunc("/corpus/", server.handleCorpusPage)
	server.mux.HandleFunc("/", server.handleDashboard)

	return server, nil
}

// Handler returns the root handler of the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Close releases the prepared statements of the store. The database itself
// is owned by the caller.
func (s *Server) Close() {
	s.store.Close()
}

// RunJanitor expires idle manual sessions until ctx is done.
func (s *Server) RunJanitor(ctx context.Context) {
	interval := time.Duration(s.cm.Generation().SessionTTLMinutes) * time.Minute / 4
	if interval < time.Second {
		interval = time.Second
	}
	s.sessions.Run(ctx, interval, func(live int) {
		s.metrics.SetSessions(live)
		s.logger.Debug("Swept manual sessions", "live", live)
	})
}

// handleDashboard renders the corpus overview.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.render(w, "index.tmpl.html", PageInput{
		Corpora:  s.registry.Infos(),
		Sessions: s.sessions.Len(),
	})
}

// handleCorpusPage renders the model table and a sample passage of one corpus.
func (s *Server) handleCorpusPage(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/corpus/"), "/")
	if _, ok := s.registry.Get(name); !ok {
		http.NotFound(w, r)
		return
	}
	s.render(w, "corpus.tmpl.html", PageInput{
		Corpora:  s.registry.Infos(),
		Sessions: s.sessions.Len(),
		Name:     name,
		Words:    s.cm.Generation().DefaultWordLimit,
	})
}

// render executes a template into a buffer first so a failing template
// never sends a half-written page.
func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.tm.Execute(&buf, name, data); err != nil {
		s.logger.Error("Failed to render template", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
