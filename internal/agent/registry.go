package agent

import (
	"context"
	"log/slog"
	"sync"

	"github.com/false-systems/nopea/internal/cache"
	"github.com/false-systems/nopea/internal/deploy"
)

// Registry is the process registry keyed by service name, per spec
// §4.10's "(:service, service_name)" addressing scheme realized as a
// plain mutex-guarded map instead of a literal Erlang registry.
type Registry struct {
	mu      sync.Mutex
	log     *slog.Logger
	cache   *cache.Cache
	runner  Runner
	ctx     context.Context
	agents  map[string]*Agent
}

// NewRegistry constructs a registry. ctx bounds the lifetime of every
// agent it starts; runner supplies the actual per-deploy work (normally
// the orchestrator's Run, wired in by the caller to avoid an import
// cycle between agent and orchestrator).
func NewRegistry(ctx context.Context, log *slog.Logger, c *cache.Cache, runner Runner) *Registry {
	return &Registry{
		log:    log,
		cache:  c,
		runner: runner,
		ctx:    ctx,
		agents: make(map[string]*Agent),
	}
}

// EnsureStarted returns the agent for service, starting one if none is
// currently running. Idempotent, per spec §4.10.
func (r *Registry) EnsureStarted(service string) *Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.agents[service]; ok {
		return a
	}

	a := New(service, r.log, r.cache, r.runner)
	a.onIdleExit = func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.agents[service] == a {
			delete(r.agents, service)
		}
	}
	r.agents[service] = a
	go supervise(r.ctx, r.log, service, a)
	return a
}

// Deploy routes a deploy to the service's agent, starting it if
// necessary.
func (r *Registry) Deploy(ctx context.Context, spec deploy.Spec) deploy.Result {
	a := r.EnsureStarted(spec.Service)
	return a.Deploy(ctx, spec)
}

// Status returns the named agent's info, or ok=false if no agent is
// currently running for it, per spec §4.10.
func (r *Registry) Status(service string) (Info, bool) {
	r.mu.Lock()
	a, ok := r.agents[service]
	r.mu.Unlock()
	if !ok {
		return Info{}, false
	}
	return a.StatusInfo(), true
}

// Health returns every currently running agent's info, per spec §4.10.
func (r *Registry) Health() []Info {
	r.mu.Lock()
	agents := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, a)
	}
	r.mu.Unlock()

	out := make([]Info, 0, len(agents))
	for _, a := range agents {
		out = append(out, a.StatusInfo())
	}
	return out
}
