package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/false-systems/nopea/internal/cache"
	"github.com/false-systems/nopea/internal/deploy"
	"github.com/false-systems/nopea/internal/errs"
	"github.com/false-systems/nopea/internal/k8sclient"
	"github.com/false-systems/nopea/internal/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *memory.Service, func()) {
	t.Helper()
	c := cache.New()
	mem := memory.New(testLogger(), c)
	ctx, cancel := context.WithCancel(context.Background())
	go mem.Start(ctx)

	client := k8sclient.NewFake()
	o := New(testLogger(), c, mem, client, nil, t.TempDir())
	return o, mem, cancel
}

// TestFreshServiceDirectDeploy mirrors the spec's end-to-end scenario 1.
func TestFreshServiceDirectDeploy(t *testing.T) {
	o, mem, cancel := newTestOrchestrator(t)
	defer cancel()

	result := o.Run(context.Background(), deploy.Spec{
		Service:   "test-svc",
		Namespace: "default",
		Manifests: []deploy.Manifest{},
		Strategy:  deploy.StrategyDirect,
	})

	assert.Equal(t, deploy.StatusCompleted, result.Status)
	assert.Equal(t, deploy.StrategyDirect, result.Strategy)
	assert.Equal(t, 0, result.ManifestCount)
	assert.GreaterOrEqual(t, result.DurationMS, int64(0))
	assert.Len(t, result.DeployID, 26)

	require.Eventually(t, func() bool {
		return mem.GetDeployContext("test-svc", "default").Known
	}, 50*time.Millisecond, time.Millisecond)
}

// TestAutoSelectsCanaryAfterFailurePattern mirrors scenario 2.
func TestAutoSelectsCanaryAfterFailurePattern(t *testing.T) {
	o, mem, cancel := newTestOrchestrator(t)
	defer cancel()

	mem.RecordDeploy(deploy.Outcome{
		Service:   "risky-svc",
		Namespace: "prod",
		Status:    deploy.StatusFailed,
		Error:     errs.ApplyFailed("crash"),
	})

	require.Eventually(t, func() bool {
		return mem.GetDeployContext("risky-svc", "prod").Known
	}, time.Second, time.Millisecond)

	result := o.Run(context.Background(), deploy.Spec{
		Service:   "risky-svc",
		Namespace: "prod",
		Manifests: []deploy.Manifest{},
		Strategy:  deploy.StrategyUnset,
	})

	assert.Equal(t, deploy.StrategyCanary, result.Strategy)
}

func deploymentManifest(replicas int) deploy.Manifest {
	return deploy.Manifest{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata":   map[string]any{"name": "api-gw"},
		"spec": map[string]any{
			"replicas": replicas,
			"selector": map[string]any{"matchLabels": map[string]any{"app": "api-gw"}},
			"template": map[string]any{"spec": map[string]any{"containers": []any{}}},
		},
	}
}

// TestRolloutManifestShape mirrors scenario 6.
func TestRolloutManifestShape(t *testing.T) {
	o, _, cancel := newTestOrchestrator(t)
	defer cancel()

	result := o.Run(context.Background(), deploy.Spec{
		Service:   "api-gw",
		Namespace: "production",
		Manifests: []deploy.Manifest{deploymentManifest(3)},
		Strategy:  deploy.StrategyCanary,
	})

	require.Equal(t, deploy.StatusCompleted, result.Status)
	assert.True(t, result.Verified)
	require.Len(t, result.AppliedResources, 1)

	rollout := result.AppliedResources[0]
	assert.Equal(t, "kulta.io/v1alpha1", rollout.APIVersion())
	assert.Equal(t, "Rollout", rollout.Kind())
	md := rollout.Metadata()
	labels := md["labels"].(map[string]any)
	assert.Equal(t, "nopea", labels["app.kubernetes.io/managed-by"])

	rolloutSpec := rollout["spec"].(map[string]any)
	assert.Equal(t, 3, rolloutSpec["replicas"])
	canary := rolloutSpec["strategy"].(map[string]any)["canary"].(map[string]any)
	assert.Equal(t, "api-gw-canary", canary["canaryService"])
	assert.Equal(t, "api-gw", canary["stableService"])
	steps := canary["steps"].([]any)
	require.Len(t, steps, 5)
	assert.Equal(t, map[string]any{"setWeight": 10}, steps[0])
	assert.Equal(t, map[string]any{"setWeight": 100}, steps[4])
}

func TestUnknownStrategyCoercesToDirect(t *testing.T) {
	o, _, cancel := newTestOrchestrator(t)
	defer cancel()

	result := o.Run(context.Background(), deploy.Spec{
		Service:   "checkout",
		Namespace: "default",
		Manifests: []deploy.Manifest{},
		Strategy:  deploy.Strategy("rolling"),
	})
	assert.Equal(t, deploy.StrategyDirect, result.Strategy)
}

func TestFailedApplyYieldsFailedResultWithoutPanicking(t *testing.T) {
	c := cache.New()
	client := k8sclient.NewFake()
	client.FailApply = errs.ApplyFailed("admission denied")
	o := New(testLogger(), c, nil, client, nil, t.TempDir())

	result := o.Run(context.Background(), deploy.Spec{
		Service:   "checkout",
		Namespace: "default",
		Manifests: []deploy.Manifest{deploymentManifest(1)},
		Strategy:  deploy.StrategyDirect,
	})

	assert.Equal(t, deploy.StatusFailed, result.Status)
	assert.Error(t, result.Error)
	assert.False(t, result.Verified)
}
