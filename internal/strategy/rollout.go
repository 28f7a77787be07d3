package strategy

import (
	"context"

	"github.com/false-systems/nopea/internal/deploy"
	"github.com/false-systems/nopea/internal/errs"
	"github.com/false-systems/nopea/internal/k8sclient"
)

// BuildRollout translates spec into the single "Rollout" manifest consumed
// by an external progressive-delivery collaborator, per spec §4.7. It
// returns errs.NoDeploymentFound if spec.Manifests has no manifest of
// kind Deployment.
func BuildRollout(spec deploy.Spec) (deploy.Manifest, error) {
	src := firstDeployment(spec.Manifests)
	if src == nil {
		return nil, errs.NoDeploymentFound
	}

	srcSpec, _ := src["spec"].(map[string]any)

	rollout := deploy.Manifest{
		"apiVersion": "kulta.io/v1alpha1",
		"kind":       "Rollout",
		"metadata": map[string]any{
			"name":      spec.Service,
			"namespace": spec.Namespace,
			"labels": map[string]any{
				"app.kubernetes.io/managed-by": "nopea",
			},
		},
		"spec": map[string]any{
			"replicas": srcSpec["replicas"],
			"selector": srcSpec["selector"],
			"template": srcSpec["template"],
		},
	}

	switch spec.Strategy {
	case deploy.StrategyCanary:
		steps := make([]any, 0, len(spec.Options.ResolvedCanarySteps()))
		for _, w := range spec.Options.ResolvedCanarySteps() {
			steps = append(steps, map[string]any{"setWeight": w})
		}
		rollout["spec"].(map[string]any)["strategy"] = map[string]any{
			"canary": map[string]any{
				"steps":         steps,
				"canaryService": spec.Service + "-canary",
				"stableService": spec.Service,
			},
		}
	case deploy.StrategyBlueGreen:
		rollout["spec"].(map[string]any)["strategy"] = map[string]any{
			"blueGreen": map[string]any{
				"activeService":  spec.Service,
				"previewService": spec.Service + "-preview",
			},
		}
	}

	return rollout, nil
}

func firstDeployment(manifests []deploy.Manifest) deploy.Manifest {
	for _, m := range manifests {
		if m.Kind() == "Deployment" {
			return m
		}
	}
	return nil
}

// Rollout builds and applies the rollout manifest for a canary or
// blue_green spec, returning the single applied manifest as the sequence
// per spec §4.7.
func Rollout(ctx context.Context, client k8sclient.Client, spec deploy.Spec) ([]deploy.Manifest, error) {
	manifest, err := BuildRollout(spec)
	if err != nil {
		return nil, err
	}
	applied, err := client.ApplyManifest(ctx, manifest, spec.Namespace)
	if err != nil {
		return nil, err
	}
	return []deploy.Manifest{applied}, nil
}
