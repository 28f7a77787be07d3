// Package k8sclient defines the Kubernetes collaborator interface the
// core consumes (spec §6) plus an in-memory Fake implementation used by
// tests and local runs. A real client is selected by configuration (a
// module/object reference) per spec §4.7's note that "the K8s client is
// selected by configuration ... a test double may be substituted
// wholesale" — Fake is exactly that test double, and Client is the seam
// a real cluster-talking implementation plugs into.
package k8sclient

import (
	"context"

	"github.com/false-systems/nopea/internal/deploy"
)

// Client is the pluggable K8s collaborator interface from spec §6.
type Client interface {
	// ApplyManifests performs a server-side apply of a batch of
	// manifests against namespace, returning the applied sequence.
	ApplyManifests(ctx context.Context, manifests []deploy.Manifest, namespace string) ([]deploy.Manifest, error)
	// ApplyManifest performs a server-side apply of a single manifest.
	ApplyManifest(ctx context.Context, manifest deploy.Manifest, namespace string) (deploy.Manifest, error)
	// GetResource fetches a single resource; a missing resource returns
	// an error satisfying errors.Is(err, errs.NotFound).
	GetResource(ctx context.Context, apiVersion, kind, name, namespace string) (deploy.Manifest, error)
	// DeleteResource deletes a single resource.
	DeleteResource(ctx context.Context, apiVersion, kind, name, namespace string) error
}
