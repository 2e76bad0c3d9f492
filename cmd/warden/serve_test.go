package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/langwarden/langwarden/automod/dispatch"
	"github.com/langwarden/langwarden/automod/engine"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAPI(token string) (*API, *engine.Fixture) {
	f := engine.EngineTestFixture()
	srv := &Server{
		logger:     f.Engine.Logger,
		engine:     f.Engine,
		async:      dispatch.NewAsync(f.Capture, "test"),
		registerer: prometheus.NewRegistry(),
	}
	return NewAPI(srv, "127.0.0.1:0", token), f
}

func doRequest(api *API, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.echo.ServeHTTP(rec, req)
	return rec
}

func TestAPIChat(t *testing.T) {
	assert := assert.New(t)
	api, f := testAPI("")

	rec := doRequest(api, http.MethodPost, "/v1/players/join", `{"name":"Alice","stable_id":"EA_1","country":"de"}`, "")
	assert.Equal(http.StatusNoContent, rec.Code)
	assert.Equal(1, f.Engine.Online())

	rec = doRequest(api, http.MethodPost, "/v1/chat", `{"speaker":"Alice","text":"badword!","channel":"global"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(out.Violation)
	assert.Equal("badword", out.Phrase)
	assert.Equal("Warn", out.Action)
	assert.Equal("Kill", out.Next)
	assert.Equal(1, out.Counter)

	rec = doRequest(api, http.MethodGet, "/v1/players/alice/counter", "", "")
	assert.Equal(http.StatusOK, rec.Code)
	assert.JSONEq(`{"name":"alice","counter":1}`, rec.Body.String())

	rec = doRequest(api, http.MethodPost, "/v1/players/Alice/punish", `{"quote":"spam"}`, "")
	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), `"action":"Kill"`)

	rec = doRequest(api, http.MethodPost, "/v1/players/Alice/reset", "", "")
	assert.Equal(http.StatusNoContent, rec.Code)
	assert.Equal(0, f.Engine.Counter("Alice"))

	rec = doRequest(api, http.MethodPost, "/v1/chat", `{"text":"no speaker"}`, "")
	assert.Equal(http.StatusBadRequest, rec.Code)
}

func TestAPILifecycle(t *testing.T) {
	assert := assert.New(t)
	api, f := testAPI("")

	rec := doRequest(api, http.MethodPost, "/v1/players/list", `[{"name":"Alice"},{"name":"Bob"}]`, "")
	assert.Equal(http.StatusNoContent, rec.Code)
	assert.Equal(2, f.Engine.Online())

	rec = doRequest(api, http.MethodPost, "/v1/players/leave", `{"name":"Bob"}`, "")
	assert.Equal(http.StatusNoContent, rec.Code)
	assert.Equal(1, f.Engine.Online())

	rec = doRequest(api, http.MethodPost, "/v1/round-over", "", "")
	assert.Equal(http.StatusNoContent, rec.Code)
	assert.Empty(f.Directory.Names())

	rec = doRequest(api, http.MethodGet, "/_health", "", "")
	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), `"status":"ok"`)
}

func TestAPIToken(t *testing.T) {
	assert := assert.New(t)
	api, _ := testAPI("secret")

	rec := doRequest(api, http.MethodGet, "/v1/players/alice/counter", "", "")
	assert.Equal(http.StatusBadRequest, rec.Code)
	rec = doRequest(api, http.MethodGet, "/v1/players/alice/counter", "", "wrong")
	assert.Equal(http.StatusUnauthorized, rec.Code)
	rec = doRequest(api, http.MethodGet, "/v1/players/alice/counter", "", "secret")
	assert.Equal(http.StatusOK, rec.Code)

	// health stays open
	rec = doRequest(api, http.MethodGet, "/_health", "", "")
	assert.Equal(http.StatusOK, rec.Code)
}

func TestOpenHeatStore(t *testing.T) {
	assert := assert.New(t)

	st, err := openHeatStore("")
	assert.NoError(err)
	assert.Nil(st)

	p := filepath.Join(t.TempDir(), "counters.txt")
	st, err = openHeatStore("file://" + p)
	assert.NoError(err)
	assert.NotNil(st)

	st, err = openHeatStore("sqlite://" + filepath.Join(t.TempDir(), "heat.sqlite"))
	assert.NoError(err)
	assert.NotNil(st)
}
