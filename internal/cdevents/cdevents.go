// Package cdevents builds and emits the typed deployment lifecycle
// events described in spec §6 ("Wire events"): deployment.started and
// one of deployment.{completed,failed,rolledback}, plus the
// service.deployed/service.upgraded pair. Delivery is an async HTTP POST
// to a configured sink, bounded by a worker pool so a slow or
// unreachable receiver can never block a deploy — following the
// teacher's use of github.com/alitto/pond/v2 for bounded concurrent work
// (controlplane/telemetry/internal/data/device/provider.go's
// getCircuitLatenciesPool), generalized here from a result pool to a
// fire-and-forget pool since emission has no return value the
// orchestrator waits on.
package cdevents

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/false-systems/nopea/internal/deploy"
)

const specVersion = "1.0"

// Event is a CDEvents envelope: a context header plus a subject
// payload, per the CDEvents wire shape named in spec §6.
type Event struct {
	Context Context `json:"context"`
	Subject Subject `json:"subject"`
}

type Context struct {
	Version   string    `json:"version"`
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Subject carries the deployment-specific payload. Per spec §6, the
// subject id is the service name, not the deploy id.
type Subject struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Namespace string `json:"namespace"`
	Strategy  string `json:"strategy,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Event types, named exactly as spec §6 enumerates them.
const (
	TypeDeploymentStarted    = "dev.cdevents.deployment.started.0.1.0"
	TypeDeploymentCompleted  = "dev.cdevents.deployment.completed.0.1.0"
	TypeDeploymentFailed     = "dev.cdevents.deployment.failed.0.1.0"
	TypeDeploymentRolledback = "dev.cdevents.deployment.rolledback.0.1.0"
	TypeServiceDeployed      = "dev.cdevents.service.deployed.0.3.0"
	TypeServiceUpgraded      = "dev.cdevents.service.upgraded.0.3.0"
)

func newEvent(eventType, deployID string, subject Subject) Event {
	return Event{
		Context: Context{
			Version:   specVersion,
			ID:        deployID,
			Source:    "nopea",
			Type:      eventType,
			Timestamp: time.Now().UTC(),
		},
		Subject: subject,
	}
}

// Started builds the deployment.started event emitted before a deploy
// executes its strategy.
func Started(deployID, service, namespace, strategy string) Event {
	return newEvent(TypeDeploymentStarted, deployID, Subject{
		ID:        service,
		Source:    "nopea",
		Namespace: namespace,
		Strategy:  strategy,
	})
}

// Finished builds the terminal deployment event for result, choosing
// completed/failed/rolledback by status, and pairs it with the matching
// service.deployed event when the deploy completed — service.upgraded is
// reserved for a future re-deploy of an already-known service, per spec
// §6's service lifecycle pair; nopea does not yet distinguish first
// deploy from redeploy, so Finished always emits service.deployed.
func Finished(deployID string, result deploy.Result) []Event {
	deployType := TypeDeploymentCompleted
	switch result.Status {
	case deploy.StatusFailed:
		deployType = TypeDeploymentFailed
	case deploy.StatusRolledback:
		deployType = TypeDeploymentRolledback
	}

	var errMessage string
	if result.Error != nil {
		errMessage = result.Error.Error()
	}

	subject := Subject{
		ID:        result.Service,
		Source:    "nopea",
		Namespace: result.Namespace,
		Strategy:  string(result.Strategy),
		Error:     errMessage,
	}

	events := []Event{newEvent(deployType, deployID, subject)}
	if result.Status == deploy.StatusCompleted {
		events = append(events, newEvent(TypeServiceDeployed, deployID, subject))
	}
	return events
}

// Emitter delivers events to a configured sink URL without blocking its
// caller. The zero value (SinkURL == "") is a valid no-op emitter, per
// spec §6's "optional URL; enables async CDEvents emission".
type Emitter struct {
	SinkURL string
	Client  *http.Client
	Log     *slog.Logger

	pool pond.Pool
}

// NewEmitter constructs an emitter posting to sinkURL with concurrency
// bounded by poolSize. An empty sinkURL disables emission entirely.
func NewEmitter(sinkURL string, poolSize int, log *slog.Logger) *Emitter {
	if poolSize <= 0 {
		poolSize = 4
	}
	return &Emitter{
		SinkURL: sinkURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
		Log:     log,
		pool:    pond.NewPool(poolSize),
	}
}

// Emit submits ev for async delivery. It never blocks past enqueueing
// and never returns an error to the caller — delivery failures are
// logged, not surfaced, since CDEvents emission is best-effort telemetry.
func (e *Emitter) Emit(ctx context.Context, ev Event) {
	if e == nil || e.SinkURL == "" {
		return
	}
	e.pool.Submit(func() {
		if err := e.deliver(ctx, ev); err != nil {
			e.Log.Warn("cdevents: delivery failed", "type", ev.Context.Type, "error", err)
		}
	})
}

// EmitAll submits every event in evs for async delivery.
func (e *Emitter) EmitAll(ctx context.Context, evs []Event) {
	for _, ev := range evs {
		e.Emit(ctx, ev)
	}
}

func (e *Emitter) deliver(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.SinkURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/cdevents+json")
	resp, err := e.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}
