// Package orchestrator implements the deploy lifecycle from spec §4.6:
// strategy selection informed by Memory, strategy execution, post-deploy
// drift verification, result persistence, and telemetry/CDEvents
// emission. It is the Runner the per-service agent registry drives.
package orchestrator

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/false-systems/nopea/internal/cache"
	"github.com/false-systems/nopea/internal/cdevents"
	"github.com/false-systems/nopea/internal/deploy"
	"github.com/false-systems/nopea/internal/drift"
	"github.com/false-systems/nopea/internal/id"
	"github.com/false-systems/nopea/internal/k8sclient"
	"github.com/false-systems/nopea/internal/memory"
	"github.com/false-systems/nopea/internal/occurrence"
	"github.com/false-systems/nopea/internal/strategy"
	"github.com/false-systems/nopea/internal/telemetry"
)

// AutoCanaryThreshold is the failure-pattern confidence above which the
// orchestrator auto-selects canary over direct, per spec §4.6 step 3.
// Fixed per spec §9 "treat as configuration, not fact" — recorded here
// as a named constant rather than a runtime knob; see SPEC_FULL.md's Open
// Questions entry (ii).
const AutoCanaryThreshold = 0.15

// Orchestrator runs the deploy lifecycle. The zero value is not usable;
// construct with New.
type Orchestrator struct {
	log      *slog.Logger
	cache    *cache.Cache
	memory   *memory.Service
	client   k8sclient.Client
	cdevents *cdevents.Emitter
	dataDir  string
}

// New constructs an Orchestrator. mem and emitter may be nil: a nil mem
// yields a null deploy context (spec §4.6 step 2) and a nil emitter
// disables CDEvents emission entirely.
func New(log *slog.Logger, c *cache.Cache, mem *memory.Service, client k8sclient.Client, emitter *cdevents.Emitter, dataDir string) *Orchestrator {
	if dataDir == "" {
		dataDir, _ = os.Getwd()
	}
	return &Orchestrator{log: log, cache: c, memory: mem, client: client, cdevents: emitter, dataDir: dataDir}
}

// Run executes spec's deploy lifecycle end to end, per spec §4.6's eight
// steps, and returns the terminal result.
func (o *Orchestrator) Run(ctx context.Context, spec deploy.Spec) deploy.Result {
	spec = spec.Normalized()
	deployID := id.New()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, spec.Timeout())
	defer cancel()

	deployCtx := o.deployContext(spec.Service, spec.Namespace)

	selected := o.selectStrategy(spec, deployCtx)
	spec.Strategy = selected

	telemetry.DeployStarted.WithLabelValues(string(selected)).Inc()
	o.emitStarted(ctx, deployID, spec)

	applied, err := strategy.Execute(ctx, o.client, spec)

	result := deploy.Result{
		DeployID:      deployID,
		Service:       spec.Service,
		Namespace:     spec.Namespace,
		Strategy:      selected,
		ManifestCount: len(spec.Manifests),
		Timestamp:     time.Now(),
	}

	if err != nil {
		result.Status = deploy.StatusFailed
		result.Error = err
		result.DurationMS = time.Since(start).Milliseconds()
	} else {
		result.AppliedResources = applied
		// last_applied must be updated before verification runs: a
		// resource applied for the first time this call should verify
		// as no_drift/new_resource, not needs_apply, per spec §4.8's
		// outcome table.
		o.rememberApplied(spec.Service, spec.Namespace, applied)
		result.Verified = o.verifyAll(ctx, spec.Service, spec.Namespace, applied)
		result.Status = deploy.StatusCompleted
		result.DurationMS = time.Since(start).Milliseconds()
	}

	o.recordResult(result, deployCtx)
	o.emitFinished(ctx, result)

	return result
}

// deployContext fetches Memory's context, or a null context if Memory is
// absent, per spec §4.6 step 2.
func (o *Orchestrator) deployContext(service, namespace string) memory.Context {
	if o.memory == nil {
		return memory.Context{Service: service, Namespace: namespace, Known: false}
	}
	return o.memory.GetDeployContext(service, namespace)
}

// selectStrategy implements spec §4.6 step 3, including the "unknown
// values are logged and coerced to direct" fallback — resolved in
// SPEC_FULL.md's Open Questions entry (i) as: any strategy outside
// {direct, canary, blue_green, unset} is logged and coerced to direct,
// never auto-selected.
func (o *Orchestrator) selectStrategy(spec deploy.Spec, deployCtx memory.Context) deploy.Strategy {
	switch spec.Strategy {
	case deploy.StrategyDirect, deploy.StrategyCanary, deploy.StrategyBlueGreen:
		return spec.Strategy
	case deploy.StrategyUnset:
		// fall through to auto-select below
	default:
		o.log.Warn("orchestrator: unknown strategy, coercing to direct", "service", spec.Service, "strategy", spec.Strategy)
		return deploy.StrategyDirect
	}

	for _, p := range deployCtx.FailurePatterns {
		if p.Confidence > AutoCanaryThreshold {
			return deploy.StrategyCanary
		}
	}
	return deploy.StrategyDirect
}

// verifyAll runs post-deploy drift verification over every applied
// manifest, per spec §4.6 step 6. verified is true iff every
// verification returned no_drift or new_resource; any error during
// verification yields false rather than failing the deploy.
func (o *Orchestrator) verifyAll(ctx context.Context, service, namespace string, applied []deploy.Manifest) bool {
	if o.cache == nil || o.client == nil {
		return false
	}
	if len(applied) == 0 {
		return true
	}
	for _, m := range applied {
		outcome, err := drift.VerifyManifest(ctx, o.cache, o.client, service, namespace, m)
		if err != nil {
			o.log.Warn("orchestrator: verification failed, not failing deploy", "service", service, "error", err)
			return false
		}
		telemetry.VerificationOutcomes.WithLabelValues(string(outcome.Kind)).Inc()
		if !outcome.Verified() {
			return false
		}
	}
	return true
}

// rememberApplied updates the last_applied cache table for every applied
// manifest, so future verify_manifest calls have a baseline.
func (o *Orchestrator) rememberApplied(service, namespace string, applied []deploy.Manifest) {
	if o.cache == nil {
		return
	}
	for _, m := range applied {
		key := cache.LastAppliedKey{
			Service:     service,
			ResourceKey: cache.ResourceKey(m.Kind(), namespace, m.Name()),
		}
		o.cache.PutLastApplied(key, m)
	}
}

// recordResult records into Memory (non-blocking), into Cache
// (synchronous), and persists the occurrence artifact, per spec §4.6
// step 7.
func (o *Orchestrator) recordResult(result deploy.Result, deployCtx memory.Context) {
	telemetry.DeployOutcomes.WithLabelValues(string(result.Status), string(result.Strategy)).Inc()
	telemetry.DeployDuration.WithLabelValues(string(result.Status)).Observe(float64(result.DurationMS) / 1000)

	if o.memory != nil {
		o.memory.RecordDeploy(deploy.Outcome{
			Service:   result.Service,
			Namespace: result.Namespace,
			Status:    result.Status,
			Error:     result.Error,
		})
	}

	if o.cache != nil {
		o.cache.PutDeployment(cache.DeploymentKey{Service: result.Service, DeployID: result.DeployID}, result)
	}

	var memCtx *memory.Context
	if result.Status != deploy.StatusCompleted {
		memCtx = &deployCtx
	}
	occ := occurrence.Build(result, memCtx)
	if err := occurrence.Persist(o.dataDir, occ); err != nil {
		o.log.Warn("orchestrator: failed to persist occurrence artifact", "deploy_id", result.DeployID, "error", err)
	}
}

func (o *Orchestrator) emitStarted(ctx context.Context, deployID string, spec deploy.Spec) {
	if o.cdevents == nil {
		return
	}
	o.cdevents.Emit(ctx, cdevents.Started(deployID, spec.Service, spec.Namespace, string(spec.Strategy)))
}

func (o *Orchestrator) emitFinished(ctx context.Context, result deploy.Result) {
	if o.cdevents == nil {
		return
	}
	o.cdevents.EmitAll(ctx, cdevents.Finished(result.DeployID, result))
}

// AsRunner adapts Orchestrator.Run to the agent.Runner signature used by
// the per-service agent registry, without an import cycle: the
// orchestrator package depends on agent indirectly only through this
// function type, never the reverse.
func (o *Orchestrator) AsRunner() func(ctx context.Context, spec deploy.Spec) deploy.Result {
	return o.Run
}
