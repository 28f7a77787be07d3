// Package strategy implements the deploy execution strategies from spec
// §4.7: direct server-side apply, and the canary/blue_green rollout
// manifest translation consumed by an external progressive-delivery
// collaborator.
package strategy

import (
	"context"

	"github.com/false-systems/nopea/internal/deploy"
	"github.com/false-systems/nopea/internal/k8sclient"
)

// Direct applies every manifest in spec in a single server-side apply
// call against the target namespace, returning the applied sequence.
func Direct(ctx context.Context, client k8sclient.Client, spec deploy.Spec) ([]deploy.Manifest, error) {
	return client.ApplyManifests(ctx, spec.Manifests, spec.Namespace)
}
