package k8sclient

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v5"

	"github.com/false-systems/nopea/internal/deploy"
	"github.com/false-systems/nopea/internal/errs"
)

// Retrying wraps a Client and retries calls that fail with a transient
// error tag (timeout, connection_refused) using an exponential backoff,
// following the teacher's own retry shape in
// controlplane/telemetry/pkg/epoch/finder.go's getSlotWithRetry. A real
// client plugged in behind this wrapper inherits the same retry policy
// the Fake gets for free in tests.
type Retrying struct {
	Client Client
}

func NewRetrying(c Client) *Retrying {
	return &Retrying{Client: c}
}

func isTransient(err error) bool {
	return errors.Is(err, errs.Timeout) || errors.Is(err, errs.ConnectionRefused)
}

func retry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		if err != nil && !isTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(4))
}

func (r *Retrying) ApplyManifests(ctx context.Context, manifests []deploy.Manifest, namespace string) ([]deploy.Manifest, error) {
	return retry(ctx, func() ([]deploy.Manifest, error) {
		return r.Client.ApplyManifests(ctx, manifests, namespace)
	})
}

func (r *Retrying) ApplyManifest(ctx context.Context, manifest deploy.Manifest, namespace string) (deploy.Manifest, error) {
	return retry(ctx, func() (deploy.Manifest, error) {
		return r.Client.ApplyManifest(ctx, manifest, namespace)
	})
}

func (r *Retrying) GetResource(ctx context.Context, apiVersion, kind, name, namespace string) (deploy.Manifest, error) {
	return retry(ctx, func() (deploy.Manifest, error) {
		return r.Client.GetResource(ctx, apiVersion, kind, name, namespace)
	})
}

func (r *Retrying) DeleteResource(ctx context.Context, apiVersion, kind, name, namespace string) error {
	_, err := retry(ctx, func() (struct{}, error) {
		return struct{}{}, r.Client.DeleteResource(ctx, apiVersion, kind, name, namespace)
	})
	return err
}

var _ Client = (*Retrying)(nil)
