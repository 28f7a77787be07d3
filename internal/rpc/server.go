// Package rpc exposes the deploy lifecycle as MCP tools over streamable
// HTTP, grounded directly on the teacher's own MCP server
// (tools/dz-ai/internal/mcp/server): mcp.NewServer plus mcp.AddTool per
// tool, served through mcp.NewStreamableHTTPHandler. Protocol mechanics
// (initialize, tools/list, tools/call, notifications/initialized, and
// the -32601/-32602/-32700 JSON-RPC error codes named in spec §6) are
// the SDK's responsibility, not hand-rolled here — the teacher never
// hand-rolls them either.
package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/false-systems/nopea/internal/agent"
	"github.com/false-systems/nopea/internal/cache"
	"github.com/false-systems/nopea/internal/deploy"
	"github.com/false-systems/nopea/internal/memory"
	"github.com/false-systems/nopea/internal/occurrence"
)

// Server serves the nopea_* tool surface over streamable HTTP.
type Server struct {
	log     *slog.Logger
	mcp     *mcp.Server
	http    *http.Server
	dataDir string
}

// Config configures Server construction.
type Config struct {
	ListenAddr      string
	Version         string
	ShutdownTimeout time.Duration
	DataDir         string
}

// New constructs a Server and registers the nopea_deploy, nopea_context,
// nopea_history, nopea_health, and nopea_explain tools against registry,
// mem, c, and dataDir.
func New(log *slog.Logger, cfg Config, registry *agent.Registry, mem *memory.Service, c *cache.Cache) (*Server, error) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":7777"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "."
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "nopea",
		Version: cfg.Version,
	}, nil)

	s := &Server{log: log, mcp: mcpServer, dataDir: cfg.DataDir}

	if err := registerDeployTool(mcpServer, registry); err != nil {
		return nil, fmt.Errorf("register nopea_deploy: %w", err)
	}
	if err := registerContextTool(mcpServer, mem); err != nil {
		return nil, fmt.Errorf("register nopea_context: %w", err)
	}
	if err := registerHistoryTool(mcpServer, registry, c); err != nil {
		return nil, fmt.Errorf("register nopea_history: %w", err)
	}
	if err := registerHealthTool(mcpServer); err != nil {
		return nil, fmt.Errorf("register nopea_health: %w", err)
	}
	if err := registerExplainTool(mcpServer, s.dataDir); err != nil {
		return nil, fmt.Errorf("register nopea_explain: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.mcp
	}, &mcp.StreamableHTTPOptions{Stateless: true}))

	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s, nil
}

// Run blocks serving RPC traffic until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("rpc: listen and serve: %w", err)
		}
	}()

	s.log.Info("rpc: mcp streamable http listening", "addr", s.http.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// --- nopea_deploy ---

type deployInput struct {
	Service   string            `json:"service"`
	Namespace string            `json:"namespace,omitempty"`
	Manifests []deploy.Manifest `json:"manifests,omitempty"`
	Strategy  string            `json:"strategy,omitempty"`
}

type deployOutput struct {
	DeployID      string `json:"deploy_id"`
	Status        string `json:"status"`
	Strategy      string `json:"strategy"`
	ManifestCount int    `json:"manifest_count"`
	Verified      bool   `json:"verified"`
	Error         string `json:"error,omitempty"`
}

func registerDeployTool(server *mcp.Server, registry *agent.Registry) error {
	in, err := jsonschema.For[deployInput](nil)
	if err != nil {
		return err
	}
	out, err := jsonschema.For[deployOutput](nil)
	if err != nil {
		return err
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:         "nopea_deploy",
		Description:  "Deploy a service's Kubernetes manifests using direct apply, canary, or blue/green rollout.",
		InputSchema:  in,
		OutputSchema: out,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, req deployInput) (*mcp.CallToolResult, deployOutput, error) {
		resp, err := handleDeploy(ctx, registry, req)
		return nil, resp, err
	})
	return nil
}

func handleDeploy(ctx context.Context, registry *agent.Registry, req deployInput) (deployOutput, error) {
	if req.Service == "" {
		return deployOutput{}, fmt.Errorf("service is required")
	}
	result := registry.Deploy(ctx, deploy.Spec{
		Service:   req.Service,
		Namespace: req.Namespace,
		Manifests: req.Manifests,
		Strategy:  deploy.Strategy(req.Strategy),
	})
	resp := deployOutput{
		DeployID:      result.DeployID,
		Status:        string(result.Status),
		Strategy:      string(result.Strategy),
		ManifestCount: result.ManifestCount,
		Verified:      result.Verified,
	}
	if result.Error != nil {
		resp.Error = result.Error.Error()
	}
	return resp, nil
}

// --- nopea_context ---

type contextInput struct {
	Service   string `json:"service"`
	Namespace string `json:"namespace,omitempty"`
}

func registerContextTool(server *mcp.Server, mem *memory.Service) error {
	in, err := jsonschema.For[contextInput](nil)
	if err != nil {
		return err
	}
	out, err := jsonschema.For[memory.Context](nil)
	if err != nil {
		return err
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:         "nopea_context",
		Description:  "Fetch the weighted knowledge-graph deploy context for a service: known failure patterns, dependencies, and recommendations.",
		InputSchema:  in,
		OutputSchema: out,
	}, func(_ context.Context, _ *mcp.CallToolRequest, req contextInput) (*mcp.CallToolResult, memory.Context, error) {
		return nil, handleContext(mem, req), nil
	})
	return nil
}

func handleContext(mem *memory.Service, req contextInput) memory.Context {
	namespace := req.Namespace
	if namespace == "" {
		namespace = "default"
	}
	if mem == nil {
		return memory.Context{Service: req.Service, Namespace: namespace, Known: false}
	}
	return mem.GetDeployContext(req.Service, namespace)
}

// --- nopea_history ---

type historyInput struct {
	Service string `json:"service"`
}

type historyOutput struct {
	Service     string          `json:"service"`
	State       *agent.Info     `json:"state,omitempty"`
	Deployments []deploy.Result `json:"deployments,omitempty"`
}

func registerHistoryTool(server *mcp.Server, registry *agent.Registry, c *cache.Cache) error {
	in, err := jsonschema.For[historyInput](nil)
	if err != nil {
		return err
	}
	out, err := jsonschema.For[historyOutput](nil)
	if err != nil {
		return err
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:         "nopea_history",
		Description:  "Fetch a service's current agent state and past deploy results.",
		InputSchema:  in,
		OutputSchema: out,
	}, func(_ context.Context, _ *mcp.CallToolRequest, req historyInput) (*mcp.CallToolResult, historyOutput, error) {
		return nil, handleHistory(registry, c, req), nil
	})
	return nil
}

func handleHistory(registry *agent.Registry, c *cache.Cache, req historyInput) historyOutput {
	resp := historyOutput{Service: req.Service}
	if registry != nil {
		if info, ok := registry.Status(req.Service); ok {
			resp.State = &info
		}
	}
	if c != nil {
		resp.Deployments = c.ListDeployments(req.Service)
	}
	return resp
}

// --- nopea_health ---

type healthInput struct{}

type healthOutput struct {
	Status string `json:"status"`
}

func registerHealthTool(server *mcp.Server) error {
	in, err := jsonschema.For[healthInput](nil)
	if err != nil {
		return err
	}
	out, err := jsonschema.For[healthOutput](nil)
	if err != nil {
		return err
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:         "nopea_health",
		Description:  "Check whether nopea is up and serving.",
		InputSchema:  in,
		OutputSchema: out,
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ healthInput) (*mcp.CallToolResult, healthOutput, error) {
		return nil, handleHealth(), nil
	})
	return nil
}

func handleHealth() healthOutput {
	return healthOutput{Status: "ok"}
}

// --- nopea_explain ---

type explainInput struct {
	DeployID string `json:"deploy_id"`
}

func registerExplainTool(server *mcp.Server, dataDir string) error {
	in, err := jsonschema.For[explainInput](nil)
	if err != nil {
		return err
	}
	out, err := jsonschema.For[occurrence.Occurrence](nil)
	if err != nil {
		return err
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:         "nopea_explain",
		Description:  "Return the structured occurrence report (outcome, reasoning, history) for a past deploy id.",
		InputSchema:  in,
		OutputSchema: out,
	}, func(_ context.Context, _ *mcp.CallToolRequest, req explainInput) (*mcp.CallToolResult, occurrence.Occurrence, error) {
		occ, err := handleExplain(dataDir, req)
		return nil, occ, err
	})
	return nil
}

func handleExplain(dataDir string, req explainInput) (occurrence.Occurrence, error) {
	if req.DeployID == "" {
		return occurrence.Occurrence{}, fmt.Errorf("deploy_id is required")
	}
	occ, err := occurrence.Load(dataDir, req.DeployID)
	if err != nil {
		return occurrence.Occurrence{}, fmt.Errorf("load occurrence %s: %w", req.DeployID, err)
	}
	return occ, nil
}
