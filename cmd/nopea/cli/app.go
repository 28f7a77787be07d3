package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/false-systems/nopea/internal/agent"
	"github.com/false-systems/nopea/internal/cache"
	"github.com/false-systems/nopea/internal/cdevents"
	"github.com/false-systems/nopea/internal/config"
	"github.com/false-systems/nopea/internal/k8sclient"
	"github.com/false-systems/nopea/internal/logging"
	"github.com/false-systems/nopea/internal/memory"
	"github.com/false-systems/nopea/internal/orchestrator"
)

// App wires together every collaborator "nopea serve" needs, following
// the teacher's withDevnet pattern (e2e/internal/devnet/cmd/root.go) of
// building the full dependency graph once rather than threading
// individual constructors through each component. Every other command
// talks to a running App over HTTP via apiClient instead of holding
// one of these directly.
type App struct {
	Log          *slog.Logger
	Config       config.Config
	Cache        *cache.Cache
	Memory       *memory.Service
	Client       k8sclient.Client
	Orchestrator *orchestrator.Orchestrator
	Registry     *agent.Registry
	CDEvents     *cdevents.Emitter
}

// buildApp constructs an App from environment configuration, honoring
// the caller's --verbose override. No real Kubernetes client ships in
// this codebase (see DESIGN.md); k8sclient.Client is satisfied by the
// in-memory Fake, matching spec §6's "K8s client is selected by
// configuration; a test double may be substituted wholesale".
func buildApp(ctx context.Context, verboseOverride bool) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if verboseOverride {
		cfg.Verbose = true
	}

	log := logging.New(os.Stdout, cfg.Verbose)
	if cfg.ClusterEnabled {
		log.Info("nopea: cluster_enabled is set; running single-node, the flag has no effect")
	}

	c := cache.New()
	mem := memory.New(log, c)
	go mem.Start(ctx)

	client := k8sclient.NewRetrying(k8sclient.NewFake())

	var emitter *cdevents.Emitter
	if cfg.CDEventsEndpoint != "" {
		emitter = cdevents.NewEmitter(cfg.CDEventsEndpoint, cfg.CDEventsPoolSize, log)
	}

	orch := orchestrator.New(log, c, mem, client, emitter, cfg.DataDir)
	registry := agent.NewRegistry(ctx, log, c, orch.AsRunner())

	return &App{
		Log:          log,
		Config:       cfg,
		Cache:        c,
		Memory:       mem,
		Client:       client,
		Orchestrator: orch,
		Registry:     registry,
		CDEvents:     emitter,
	}, nil
}
