package strategy

import (
	"context"

	"github.com/false-systems/nopea/internal/deploy"
	"github.com/false-systems/nopea/internal/k8sclient"
)

// Execute runs spec's strategy against client and returns the applied
// manifest sequence, per spec §4.7. Strategy is resolved by the caller;
// an unset strategy is treated as direct (see SPEC_FULL.md Open
// Questions).
func Execute(ctx context.Context, client k8sclient.Client, spec deploy.Spec) ([]deploy.Manifest, error) {
	switch spec.Strategy {
	case deploy.StrategyCanary, deploy.StrategyBlueGreen:
		return Rollout(ctx, client, spec)
	default:
		return Direct(ctx, client, spec)
	}
}
