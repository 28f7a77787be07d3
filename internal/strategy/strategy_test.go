package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/false-systems/nopea/internal/deploy"
	"github.com/false-systems/nopea/internal/errs"
	"github.com/false-systems/nopea/internal/k8sclient"
)

func deploymentManifest() deploy.Manifest {
	return deploy.Manifest{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata":   map[string]any{"name": "checkout"},
		"spec": map[string]any{
			"replicas": float64(3),
			"selector": map[string]any{"matchLabels": map[string]any{"app": "checkout"}},
			"template": map[string]any{"spec": map[string]any{"containers": []any{}}},
		},
	}
}

func TestDirectAppliesAllManifests(t *testing.T) {
	client := k8sclient.NewFake()
	spec := deploy.Spec{
		Service:   "checkout",
		Namespace: "default",
		Manifests: []deploy.Manifest{deploymentManifest()},
		Strategy:  deploy.StrategyDirect,
	}

	applied, err := Direct(context.Background(), client, spec)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "checkout", applied[0].Name())
}

func TestBuildRolloutCanaryShape(t *testing.T) {
	spec := deploy.Spec{
		Service:   "checkout",
		Namespace: "prod",
		Manifests: []deploy.Manifest{deploymentManifest()},
		Strategy:  deploy.StrategyCanary,
		Options:   deploy.Options{CanarySteps: []int{10, 50, 100}},
	}

	rollout, err := BuildRollout(spec)
	require.NoError(t, err)

	assert.Equal(t, "kulta.io/v1alpha1", rollout.APIVersion())
	assert.Equal(t, "Rollout", rollout.Kind())
	assert.Equal(t, "checkout", rollout.Name())
	assert.Equal(t, "prod", rollout.Namespace())

	md := rollout.Metadata()
	labels, ok := md["labels"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "nopea", labels["app.kubernetes.io/managed-by"])

	rolloutSpec := rollout["spec"].(map[string]any)
	canary := rolloutSpec["strategy"].(map[string]any)["canary"].(map[string]any)
	assert.Equal(t, "checkout-canary", canary["canaryService"])
	assert.Equal(t, "checkout", canary["stableService"])
	steps := canary["steps"].([]any)
	require.Len(t, steps, 3)
	assert.Equal(t, map[string]any{"setWeight": 10}, steps[0])
	assert.Equal(t, map[string]any{"setWeight": 100}, steps[2])
}

func TestBuildRolloutBlueGreenShape(t *testing.T) {
	spec := deploy.Spec{
		Service:   "checkout",
		Namespace: "default",
		Manifests: []deploy.Manifest{deploymentManifest()},
		Strategy:  deploy.StrategyBlueGreen,
	}

	rollout, err := BuildRollout(spec)
	require.NoError(t, err)
	rolloutSpec := rollout["spec"].(map[string]any)
	bg := rolloutSpec["strategy"].(map[string]any)["blueGreen"].(map[string]any)
	assert.Equal(t, "checkout", bg["activeService"])
	assert.Equal(t, "checkout-preview", bg["previewService"])
}

func TestBuildRolloutWithoutDeploymentFails(t *testing.T) {
	spec := deploy.Spec{
		Service:   "checkout",
		Namespace: "default",
		Manifests: []deploy.Manifest{{"kind": "Service"}},
		Strategy:  deploy.StrategyCanary,
	}

	_, err := BuildRollout(spec)
	assert.True(t, errors.Is(err, errs.NoDeploymentFound))
}

func TestRolloutAppliesSingleManifest(t *testing.T) {
	client := k8sclient.NewFake()
	spec := deploy.Spec{
		Service:   "checkout",
		Namespace: "default",
		Manifests: []deploy.Manifest{deploymentManifest()},
		Strategy:  deploy.StrategyCanary,
		Options:   deploy.Options{CanarySteps: []int{25, 100}},
	}

	applied, err := Rollout(context.Background(), client, spec)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "Rollout", applied[0].Kind())
}

func TestExecuteDispatchesByStrategy(t *testing.T) {
	client := k8sclient.NewFake()
	directSpec := deploy.Spec{
		Service:   "checkout",
		Namespace: "default",
		Manifests: []deploy.Manifest{deploymentManifest()},
		Strategy:  deploy.StrategyDirect,
	}
	applied, err := Execute(context.Background(), client, directSpec)
	require.NoError(t, err)
	assert.Equal(t, "Deployment", applied[0].Kind())

	canarySpec := directSpec
	canarySpec.Strategy = deploy.StrategyCanary
	applied, err = Execute(context.Background(), client, canarySpec)
	require.NoError(t, err)
	assert.Equal(t, "Rollout", applied[0].Kind())
}

func TestExecuteUnsetStrategyCoercesToDirect(t *testing.T) {
	client := k8sclient.NewFake()
	spec := deploy.Spec{
		Service:   "checkout",
		Namespace: "default",
		Manifests: []deploy.Manifest{deploymentManifest()},
		Strategy:  deploy.StrategyUnset,
	}
	applied, err := Execute(context.Background(), client, spec)
	require.NoError(t, err)
	assert.Equal(t, "Deployment", applied[0].Kind())
}
