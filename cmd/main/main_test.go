package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const catDogText = "the cat sat. the dog ran."

// testServer is a fully wired Server over a temporary database, config file
// and copy of the bundled templates.
type testServer struct {
	t          *testing.T
	server     *Server
	cm         *ConfigManager
	actions    chan string
	configPath string
	tmplDir    string
	key        string // sent as the auth header when set
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	tmplDir := filepath.Join(dir, "templates")
	require.NoError(t, os.MkdirAll(tmplDir, 0o755))
	matches, err := filepath.Glob(filepath.Join("..", "..", "data", "templates", "*.html"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	for _, src := range matches {
		data, err := os.ReadFile(src)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(tmplDir, filepath.Base(src)), data, 0o644))
	}

	cfg := DefaultConfig()
	cfg.Server.DataDir = dir
	cfg.Server.DatabasePath = filepath.Join(dir, "test.db")
	cfg.Server.DashboardTmplPath = tmplDir
	data, err := json.MarshalIndent(cfg, "", "  ")
	require.NoError(t, err)
	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configPath, data, 0o644))

	cm, err := NewConfigManager(configPath)
	require.NoError(t, err)
	logger := newLogger(io.Discard, "debug")
	cm.SetLogger(logger)

	db, err := initDB(cfg.Server.DatabasePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, setupAuthSchema(db))

	actions := make(chan string, 1)
	server, err := NewServer(cm, logger, db, actions)
	require.NoError(t, err)
	t.Cleanup(server.Close)

	return &testServer{
		t:          t,
		server:     server,
		cm:         cm,
		actions:    actions,
		configPath: configPath,
		tmplDir:    tmplDir,
	}
}

// do sends a request through the full handler chain. A non-nil body that is
// not a string or []byte is encoded as JSON.
func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	case []byte:
		r = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(ts.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if ts.key != "" {
		req.Header.Set(authHeader, ts.key)
	}
	rr := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rr, req)
	return rr
}

// createCorpus stores a corpus and fails the test unless it was created.
func (ts *testServer) createCorpus(name, order, text string) CorpusResponse {
	ts.t.Helper()
	rr := ts.do(http.MethodPost, "/api/corpora", CorpusRequest{Name: name, Order: order, Text: text})
	require.Equal(ts.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[CorpusResponse](ts.t, rr)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rr)["error"]
}
