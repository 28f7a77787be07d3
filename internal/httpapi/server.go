// Package httpapi implements the JSON HTTP surface from spec §6,
// following the teacher's ServeMux + per-route handler + writeJSON
// pattern (telemetry/state-ingest/pkg/server/handler.go).
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/false-systems/nopea/internal/agent"
	"github.com/false-systems/nopea/internal/cache"
	"github.com/false-systems/nopea/internal/deploy"
	"github.com/false-systems/nopea/internal/memory"
)

// Handler serves the HTTP API surface. The zero value is not usable;
// construct with NewHandler.
type Handler struct {
	log      *slog.Logger
	registry *agent.Registry
	memory   *memory.Service
	cache    *cache.Cache
}

// NewHandler constructs a Handler. memory may be nil (null context
// responses); cache may be nil (history endpoint returns state only).
func NewHandler(log *slog.Logger, registry *agent.Registry, mem *memory.Service, c *cache.Cache) *Handler {
	return &Handler{log: log, registry: registry, memory: mem, cache: c}
}

// Register mounts every route onto mux, per spec §6. GET /api/memory is
// an addition beyond spec §6's enumerated routes: the CLI surface names
// a "memory" command with no listed HTTP counterpart, so this fills
// that gap rather than leaving the command unservable over HTTP.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /ready", h.ready)
	mux.HandleFunc("POST /api/deploy", h.deploy)
	mux.HandleFunc("GET /api/context/{service}", h.context)
	mux.HandleFunc("GET /api/history/{service}", h.history)
	mux.HandleFunc("GET /api/memory", h.memoryStats)
	mux.HandleFunc("/", h.notFound)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ready(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// DeployRequest is the POST /api/deploy request body, shared with the
// CLI's HTTP client so both sides agree on the wire shape.
type DeployRequest struct {
	Service   string            `json:"service"`
	Namespace string            `json:"namespace,omitempty"`
	Manifests []deploy.Manifest `json:"manifests,omitempty"`
	Strategy  string            `json:"strategy,omitempty"`
}

// DeployResponse is the POST /api/deploy response body.
type DeployResponse struct {
	DeployID      string `json:"deploy_id"`
	Service       string `json:"service"`
	Namespace     string `json:"namespace"`
	Status        string `json:"status"`
	Strategy      string `json:"strategy"`
	ManifestCount int    `json:"manifest_count"`
	DurationMS    int64  `json:"duration_ms"`
	Verified      bool   `json:"verified"`
	Error         string `json:"error,omitempty"`
}

func (h *Handler) deploy(w http.ResponseWriter, r *http.Request) {
	var req DeployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Service) == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "service is required"})
		return
	}

	spec := deploy.Spec{
		Service:   req.Service,
		Namespace: req.Namespace,
		Manifests: req.Manifests,
		Strategy:  deploy.Strategy(req.Strategy),
	}

	result := h.registry.Deploy(r.Context(), spec)
	resp := DeployResponse{
		DeployID:      result.DeployID,
		Service:       result.Service,
		Namespace:     result.Namespace,
		Status:        string(result.Status),
		Strategy:      string(result.Strategy),
		ManifestCount: result.ManifestCount,
		DurationMS:    result.DurationMS,
		Verified:      result.Verified,
	}
	if result.Error != nil {
		resp.Error = result.Error.Error()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) context(w http.ResponseWriter, r *http.Request) {
	service := r.PathValue("service")
	namespace := r.URL.Query().Get("namespace")
	if namespace == "" {
		namespace = "default"
	}

	if h.memory == nil {
		h.writeJSON(w, http.StatusOK, memory.Context{Service: service, Namespace: namespace, Known: false})
		return
	}
	h.writeJSON(w, http.StatusOK, h.memory.GetDeployContext(service, namespace))
}

// HistoryResponse is the GET /api/history/{service} response body.
type HistoryResponse struct {
	Service     string          `json:"service"`
	State       *agent.Info     `json:"state,omitempty"`
	Deployments []deploy.Result `json:"deployments,omitempty"`
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	service := r.PathValue("service")
	resp := HistoryResponse{Service: service}

	if h.registry != nil {
		if info, ok := h.registry.Status(service); ok {
			resp.State = &info
		}
	}
	if h.cache != nil {
		resp.Deployments = h.cache.ListDeployments(service)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// MemoryResponse is the GET /api/memory response body.
type MemoryResponse struct {
	Nodes         int `json:"nodes"`
	Relationships int `json:"relationships"`
}

func (h *Handler) memoryStats(w http.ResponseWriter, _ *http.Request) {
	if h.memory == nil {
		h.writeJSON(w, http.StatusOK, MemoryResponse{})
		return
	}
	h.writeJSON(w, http.StatusOK, MemoryResponse{
		Nodes:         h.memory.NodeCount(),
		Relationships: h.memory.RelationshipCount(),
	})
}

func (h *Handler) notFound(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
}

// Serve starts an HTTP server with Handler's routes mounted, blocking
// until ctx is canceled, per the "serve" CLI command's "start HTTP API
// indefinitely" contract (spec §6).
func Serve(ctx context.Context, addr string, h *Handler) error {
	mux := http.NewServeMux()
	h.Register(mux)

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
