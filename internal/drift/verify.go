package drift

import (
	"context"
	"errors"
	"fmt"

	"github.com/false-systems/nopea/internal/cache"
	"github.com/false-systems/nopea/internal/deploy"
	"github.com/false-systems/nopea/internal/errs"
	"github.com/false-systems/nopea/internal/k8sclient"
)

// VerifyManifest looks up the last-applied config for desired's resource
// and the live cluster state, then classifies drift per spec §4.8's
// verify_manifest outcome table.
func VerifyManifest(ctx context.Context, c *cache.Cache, client k8sclient.Client, service, namespace string, desired deploy.Manifest) (Outcome, error) {
	key := cache.LastAppliedKey{
		Service:     service,
		ResourceKey: cache.ResourceKey(desired.Kind(), namespace, desired.Name()),
	}

	lastApplied, hasLast := c.GetLastApplied(key)

	live, err := client.GetResource(ctx, desired.APIVersion(), desired.Kind(), desired.Name(), namespace)
	hasLive := true
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			hasLive = false
		} else {
			return Outcome{}, fmt.Errorf("get live resource: %w", err)
		}
	}

	switch {
	case !hasLast && !hasLive:
		return Outcome{Kind: OutcomeNewResource}, nil
	case !hasLast && hasLive:
		return Outcome{Kind: OutcomeNeedsApply}, nil
	case hasLast && !hasLive:
		return Outcome{Kind: OutcomeNewResource}, nil
	default:
		return ThreeWayDiff(lastApplied, desired, live)
	}
}

// Verified reports whether an Outcome counts toward a deploy's overall
// verified flag, per spec §4.6 step 6: only no_drift and new_resource do.
func (o Outcome) Verified() bool {
	return o.Kind == OutcomeNoDrift || o.Kind == OutcomeNewResource
}
