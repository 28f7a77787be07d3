// Package cache implements the four in-memory keyed tables described in
// spec §3/§4.11: deployments, service_state, graph_snapshot, and
// last_applied. Each key has a single writer; the tables themselves are
// safe for concurrent read/write, following the teacher's own use of
// github.com/jellydator/ttlcache/v3 as a concurrency-safe keyed map in
// controlplane/telemetry/internal/data/device/provider.go — here
// configured with ttlcache.NoTTL since these tables have no expiry
// semantics of their own.
package cache

import (
	"fmt"
	"strings"

	"github.com/jellydator/ttlcache/v3"

	"github.com/false-systems/nopea/internal/deploy"
)

// DeploymentKey addresses the deployments table by (service, deployID).
type DeploymentKey struct {
	Service  string
	DeployID string
}

func (k DeploymentKey) String() string { return k.Service + "/" + k.DeployID }

// ResourceKey identifies a resource within a namespace for the
// last_applied table: "{kind}/{namespace}/{name}".
func ResourceKey(kind, namespace, name string) string {
	return fmt.Sprintf("%s/%s/%s", kind, namespace, name)
}

// LastAppliedKey addresses the last_applied table by (service,
// resourceKey).
type LastAppliedKey struct {
	Service     string
	ResourceKey string
}

func (k LastAppliedKey) String() string { return k.Service + "::" + k.ResourceKey }

const graphSnapshotKey = "graph_snapshot"

// Cache owns the four tables. The zero value is not usable; construct
// with New.
type Cache struct {
	deployments    *ttlcache.Cache[string, deploy.Result]
	serviceState   *ttlcache.Cache[string, deploy.ServiceState]
	graphSnapshot  *ttlcache.Cache[string, []byte]
	lastApplied    *ttlcache.Cache[string, deploy.Manifest]
}

// New constructs all four tables, started and ready for read/write.
func New() *Cache {
	c := &Cache{
		deployments:   ttlcache.New(ttlcache.WithTTL[string, deploy.Result](ttlcache.NoTTL)),
		serviceState:  ttlcache.New(ttlcache.WithTTL[string, deploy.ServiceState](ttlcache.NoTTL)),
		graphSnapshot: ttlcache.New(ttlcache.WithTTL[string, []byte](ttlcache.NoTTL)),
		lastApplied:   ttlcache.New(ttlcache.WithTTL[string, deploy.Manifest](ttlcache.NoTTL)),
	}
	go c.deployments.Start()
	go c.serviceState.Start()
	go c.graphSnapshot.Start()
	go c.lastApplied.Start()
	return c
}

// Available reports true iff all four tables exist, per spec §4.11.
func (c *Cache) Available() bool {
	return c != nil && c.deployments != nil && c.serviceState != nil &&
		c.graphSnapshot != nil && c.lastApplied != nil
}

// PutDeployment and GetDeployment manage the deployments table.
func (c *Cache) PutDeployment(key DeploymentKey, result deploy.Result) {
	c.deployments.Set(key.String(), result, ttlcache.NoTTL)
}

func (c *Cache) GetDeployment(key DeploymentKey) (deploy.Result, bool) {
	item := c.deployments.Get(key.String())
	if item == nil {
		return deploy.Result{}, false
	}
	return item.Value(), true
}

// ListDeployments scans the deployments table by service prefix.
func (c *Cache) ListDeployments(service string) []deploy.Result {
	prefix := service + "/"
	var out []deploy.Result
	for key, item := range c.deployments.Items() {
		if strings.HasPrefix(key, prefix) {
			out = append(out, item.Value())
		}
	}
	return out
}

// PutServiceState and GetServiceState manage the service_state table.
func (c *Cache) PutServiceState(service string, state deploy.ServiceState) {
	c.serviceState.Set(service, state, ttlcache.NoTTL)
}

func (c *Cache) GetServiceState(service string) (deploy.ServiceState, bool) {
	item := c.serviceState.Get(service)
	if item == nil {
		return deploy.ServiceState{}, false
	}
	return item.Value(), true
}

// ListServices enumerates the keys of the service_state table.
func (c *Cache) ListServices() []string {
	out := make([]string, 0, c.serviceState.Len())
	for key := range c.serviceState.Items() {
		out = append(out, key)
	}
	return out
}

// PutGraphSnapshot and GetGraphSnapshot manage the singleton
// graph_snapshot slot. The payload is an opaque blob owned exclusively by
// internal/memory — see spec §9 "Snapshot format".
func (c *Cache) PutGraphSnapshot(blob []byte) {
	c.graphSnapshot.Set(graphSnapshotKey, blob, ttlcache.NoTTL)
}

func (c *Cache) GetGraphSnapshot() ([]byte, bool) {
	item := c.graphSnapshot.Get(graphSnapshotKey)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// PutLastApplied and GetLastApplied manage the last_applied table.
func (c *Cache) PutLastApplied(key LastAppliedKey, manifest deploy.Manifest) {
	c.lastApplied.Set(key.String(), manifest, ttlcache.NoTTL)
}

func (c *Cache) GetLastApplied(key LastAppliedKey) (deploy.Manifest, bool) {
	item := c.lastApplied.Get(key.String())
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}
