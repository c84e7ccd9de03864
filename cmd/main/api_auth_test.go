package main

import (
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/CTAG07/Dissociated/pkg/ngram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthFirstKeyIsMaster(t *testing.T) {
	ts := newTestServer(t)

	// Open while no keys exist.
	rr := ts.do(http.MethodGet, "/api/corpora", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(http.MethodPost, "/api/auth/keys", CreateKeyRequest{Scopes: []string{"corpus:read"}, Description: "first"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	master := decode[CreateKeyResponse](t, rr)
	assert.Equal(t, []string{"*"}, master.Scopes)
	assert.True(t, strings.HasPrefix(master.RawKey, "dis_"))

	rr = ts.do(http.MethodGet, "/api/corpora", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	ts.key = "dis_wrong"
	rr = ts.do(http.MethodGet, "/api/corpora", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	ts.key = master.RawKey
	rr = ts.do(http.MethodGet, "/api/corpora", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []any{"*"}, decode[map[string]any](t, rr)["scopes"])
}

func TestAuthScopes(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodPost, "/api/auth/keys", CreateKeyRequest{Description: "master"})
	require.Equal(t, http.StatusCreated, rr.Code)
	ts.key = decode[CreateKeyResponse](t, rr).RawKey
	ts.createCorpus("catdog", ngram.BigramLabel, catDogText)

	rr = ts.do(http.MethodPost, "/api/auth/keys", CreateKeyRequest{Scopes: []string{"corpus:read"}, Description: "reader"})
	require.Equal(t, http.StatusCreated, rr.Code)
	reader := decode[CreateKeyResponse](t, rr)
	assert.Equal(t, []string{"corpus:read"}, reader.Scopes)

	rr = ts.do(http.MethodPost, "/api/auth/keys", CreateKeyRequest{Scopes: []string{"everything"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodGet, "/api/auth/keys", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]APIKeyInfo](t, rr), 2)

	ts.key = reader.RawKey
	rr = ts.do(http.MethodGet, "/api/corpora/catdog", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = ts.do(http.MethodDelete, "/api/corpora/catdog", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = ts.do(http.MethodPost, "/api/sessions", CreateSessionRequest{Corpus: "catdog"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = ts.do(http.MethodPost, "/api/auth/keys", CreateKeyRequest{Scopes: []string{"*"}})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = ts.do(http.MethodGet, "/api/server/config", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAuthDeleteKey(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodPost, "/api/auth/keys", CreateKeyRequest{Description: "master"})
	require.Equal(t, http.StatusCreated, rr.Code)
	master := decode[CreateKeyResponse](t, rr)
	ts.key = master.RawKey

	rr = ts.do(http.MethodPost, "/api/auth/keys", CreateKeyRequest{Scopes: []string{"session:write"}})
	require.Equal(t, http.StatusCreated, rr.Code)
	second := decode[CreateKeyResponse](t, rr)

	rr = ts.do(http.MethodDelete, "/api/auth/keys/1", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = ts.do(http.MethodDelete, "/api/auth/keys/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = ts.do(http.MethodDelete, "/api/auth/keys/"+strconv.Itoa(second.ID), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = ts.do(http.MethodDelete, "/api/auth/keys/"+strconv.Itoa(second.ID), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	ts.key = second.RawKey
	rr = ts.do(http.MethodGet, "/api/corpora", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
