// Package agent implements the per-service agent from spec §4.10: one
// long-lived goroutine-backed worker per live service, addressed through
// a registry, serializing deploys for that service through a bounded
// queue and surviving individual deploy crashes without taking down any
// other agent or the orchestrator's shared Memory/Cache.
//
// The shape follows the teacher's single-owner actor pattern
// (controlplane/monitor/internal/sol-balance/watcher.go's goroutine +
// channel mailbox), generalized here from a ticker loop to a full
// mailbox-driven state machine per spec §9's "model agents as
// goroutines with channel mailboxes, not a literal Erlang process
// registry".
package agent

import "github.com/false-systems/nopea/internal/deploy"

// Status is the agent's lifecycle state, per spec §4.10.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusDeploying Status = "deploying"
)

// Info is the result shape of Agent.StatusInfo() and Registry.Health(), per
// spec §4.10.
type Info struct {
	Service     string
	Status      Status
	DeployCount int
	QueueLength int
	LastResult  *deploy.Result
}
