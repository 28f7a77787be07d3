package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/false-systems/nopea/internal/cache"
	"github.com/false-systems/nopea/internal/deploy"
)

func TestRegistryEnsureStartedIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := NewRegistry(ctx, testLogger(), cache.New(), func(_ context.Context, spec deploy.Spec) deploy.Result {
		return deploy.Result{Service: spec.Service, Status: deploy.StatusCompleted}
	})

	a1 := r.EnsureStarted("checkout")
	a2 := r.EnsureStarted("checkout")
	assert.Same(t, a1, a2)
}

func TestRegistryStatusUnknownServiceIsNotFound(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := NewRegistry(ctx, testLogger(), cache.New(), func(_ context.Context, spec deploy.Spec) deploy.Result {
		return deploy.Result{Service: spec.Service, Status: deploy.StatusCompleted}
	})

	_, ok := r.Status("never-started")
	assert.False(t, ok)
}

func TestRegistryDeployStartsAgentAndRoutes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := NewRegistry(ctx, testLogger(), cache.New(), func(_ context.Context, spec deploy.Spec) deploy.Result {
		return deploy.Result{Service: spec.Service, Status: deploy.StatusCompleted}
	})

	result := r.Deploy(context.Background(), deploy.Spec{Service: "checkout"})
	assert.Equal(t, deploy.StatusCompleted, result.Status)

	info, ok := r.Status("checkout")
	require.True(t, ok)
	assert.Equal(t, 1, info.DeployCount)
}

func TestRegistryHealthListsAllRunningAgents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := NewRegistry(ctx, testLogger(), cache.New(), func(_ context.Context, spec deploy.Spec) deploy.Result {
		return deploy.Result{Service: spec.Service, Status: deploy.StatusCompleted}
	})

	r.Deploy(context.Background(), deploy.Spec{Service: "checkout"})
	r.Deploy(context.Background(), deploy.Spec{Service: "inventory"})

	health := r.Health()
	assert.Len(t, health, 2)
}
