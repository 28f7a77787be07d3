package k8sclient

import (
	"context"
	"sync"

	"github.com/false-systems/nopea/internal/cache"
	"github.com/false-systems/nopea/internal/deploy"
	"github.com/false-systems/nopea/internal/errs"
)

// Fake is an in-memory Client implementation: a substitute for a real
// cluster, keyed the same way as the last_applied cache table
// ("{kind}/{namespace}/{name}"). Safe for concurrent use.
type Fake struct {
	mu        sync.RWMutex
	resources map[string]deploy.Manifest

	// FailApply, if set, is returned by every ApplyManifest(s) call
	// instead of performing the apply — used by tests that exercise the
	// orchestrator's failure path.
	FailApply error
	// FailGet, if set, is returned by every GetResource call.
	FailGet error
}

// NewFake returns an empty fake cluster.
func NewFake() *Fake {
	return &Fake{resources: make(map[string]deploy.Manifest)}
}

func (f *Fake) key(kind, namespace, name string) string {
	return cache.ResourceKey(kind, namespace, name)
}

func (f *Fake) ApplyManifests(_ context.Context, manifests []deploy.Manifest, namespace string) ([]deploy.Manifest, error) {
	if f.FailApply != nil {
		return nil, f.FailApply
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	applied := make([]deploy.Manifest, 0, len(manifests))
	for _, m := range manifests {
		f.resources[f.key(m.Kind(), namespace, m.Name())] = m
		applied = append(applied, m)
	}
	return applied, nil
}

func (f *Fake) ApplyManifest(_ context.Context, manifest deploy.Manifest, namespace string) (deploy.Manifest, error) {
	if f.FailApply != nil {
		return nil, f.FailApply
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resources[f.key(manifest.Kind(), namespace, manifest.Name())] = manifest
	return manifest, nil
}

func (f *Fake) GetResource(_ context.Context, _, kind, name, namespace string) (deploy.Manifest, error) {
	if f.FailGet != nil {
		return nil, f.FailGet
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	m, ok := f.resources[f.key(kind, namespace, name)]
	if !ok {
		return nil, errs.NotFound
	}
	return m, nil
}

func (f *Fake) DeleteResource(_ context.Context, _, kind, name, namespace string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.resources, f.key(kind, namespace, name))
	return nil
}

// Seed directly installs a resource into the fake cluster, bypassing
// Apply — used by drift-verification tests to set up "live" state.
func (f *Fake) Seed(namespace string, manifest deploy.Manifest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resources[f.key(manifest.Kind(), namespace, manifest.Name())] = manifest
}
