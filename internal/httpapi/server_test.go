package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/false-systems/nopea/internal/agent"
	"github.com/false-systems/nopea/internal/cache"
	"github.com/false-systems/nopea/internal/deploy"
	"github.com/false-systems/nopea/internal/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(t *testing.T) (*Handler, *http.ServeMux) {
	t.Helper()
	c := cache.New()
	mem := memory.New(testLogger(), c)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go mem.Start(ctx)

	registry := agent.NewRegistry(ctx, testLogger(), c, func(_ context.Context, spec deploy.Spec) deploy.Result {
		return deploy.Result{
			DeployID:  "01H0000000000000000000001",
			Service:   spec.Service,
			Namespace: spec.Namespace,
			Status:    deploy.StatusCompleted,
			Strategy:  deploy.StrategyDirect,
			Timestamp: time.Now(),
		}
	})

	h := NewHandler(testLogger(), registry, mem, c)
	mux := http.NewServeMux()
	h.Register(mux)
	return h, mux
}

func TestHealthReturnsOK(t *testing.T) {
	_, mux := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestReadyReturnsReady(t *testing.T) {
	_, mux := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestDeployRejectsMissingService(t *testing.T) {
	_, mux := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/deploy", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeployRejectsInvalidJSON(t *testing.T) {
	_, mux := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/deploy", bytes.NewReader([]byte(`not json`)))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeploySucceeds(t *testing.T) {
	_, mux := newTestHandler(t)
	body, _ := json.Marshal(DeployRequest{Service: "checkout", Namespace: "prod"})
	req := httptest.NewRequest(http.MethodPost, "/api/deploy", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DeployResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "checkout", resp.Service)
	assert.Equal(t, "completed", resp.Status)
}

func TestContextReturnsNullContextForUnknownService(t *testing.T) {
	_, mux := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/context/unknown-svc?namespace=default", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var ctx memory.Context
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ctx))
	assert.False(t, ctx.Known)
	assert.Equal(t, "unknown-svc", ctx.Service)
}

func TestHistoryReturnsServiceNameEvenWithoutDeployments(t *testing.T) {
	_, mux := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/history/never-deployed", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "never-deployed", resp.Service)
	assert.Empty(t, resp.Deployments)
}

func TestMemoryStatsReturnsGraphSize(t *testing.T) {
	_, mux := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/memory", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp MemoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.GreaterOrEqual(t, resp.Nodes, 0)
}

func TestUnmatchedRouteReturns404(t *testing.T) {
	_, mux := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body["error"])
}
