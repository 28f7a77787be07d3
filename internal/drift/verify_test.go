package drift

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/false-systems/nopea/internal/cache"
	"github.com/false-systems/nopea/internal/deploy"
	"github.com/false-systems/nopea/internal/k8sclient"
)

func lastAppliedKey(service, namespace string, m deploy.Manifest) cache.LastAppliedKey {
	return cache.LastAppliedKey{
		Service:     service,
		ResourceKey: cache.ResourceKey(m.Kind(), namespace, m.Name()),
	}
}

func TestVerifyManifestBothAbsentIsNewResource(t *testing.T) {
	c := cache.New()
	client := k8sclient.NewFake()
	desired := svcManifest("drifted-svc:v1")

	out, err := VerifyManifest(context.Background(), c, client, "drifted-svc", "default", desired)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNewResource, out.Kind)
}

func TestVerifyManifestLastAbsentLivePresentIsNeedsApply(t *testing.T) {
	c := cache.New()
	client := k8sclient.NewFake()
	desired := svcManifest("drifted-svc:v1")
	client.Seed("default", desired)

	out, err := VerifyManifest(context.Background(), c, client, "drifted-svc", "default", desired)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNeedsApply, out.Kind)
}

func TestVerifyManifestLastPresentLiveAbsentIsNewResource(t *testing.T) {
	c := cache.New()
	client := k8sclient.NewFake()
	desired := svcManifest("drifted-svc:v1")
	c.PutLastApplied(lastAppliedKey("drifted-svc", "default", desired), desired)

	out, err := VerifyManifest(context.Background(), c, client, "drifted-svc", "default", desired)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNewResource, out.Kind)
}

// TestVerifyManifestManualDriftScenario mirrors the spec's end-to-end
// scenario: last-applied for "drifted-svc" is M; the live resource is M
// except for a hand-edited container image. verify_manifest must report
// manual_drift{expected, actual}.
func TestVerifyManifestManualDriftScenario(t *testing.T) {
	c := cache.New()
	client := k8sclient.NewFake()

	m := svcManifest("drifted-svc:v1")
	c.PutLastApplied(lastAppliedKey("drifted-svc", "default", m), m)

	hacked := svcManifest("drifted-svc:hacked")
	client.Seed("default", hacked)

	out, err := VerifyManifest(context.Background(), c, client, "drifted-svc", "default", m)
	require.NoError(t, err)
	require.Equal(t, OutcomeManualDrift, out.Kind)
	assert.Equal(t, m, out.Expected)
	assert.Equal(t, hacked, out.Actual)
}

func TestVerifyManifestBothPresentNoDrift(t *testing.T) {
	c := cache.New()
	client := k8sclient.NewFake()

	m := svcManifest("drifted-svc:v1")
	c.PutLastApplied(lastAppliedKey("drifted-svc", "default", m), m)
	client.Seed("default", m)

	out, err := VerifyManifest(context.Background(), c, client, "drifted-svc", "default", m)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoDrift, out.Kind)
}

func TestVerifyManifestPropagatesUnexpectedGetError(t *testing.T) {
	c := cache.New()
	client := k8sclient.NewFake()
	client.FailGet = assert.AnError

	_, err := VerifyManifest(context.Background(), c, client, "drifted-svc", "default", svcManifest("drifted-svc:v1"))
	assert.Error(t, err)
}
