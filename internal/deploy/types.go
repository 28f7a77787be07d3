// Package deploy holds the wire-level types shared by the orchestrator,
// agents, cache, and occurrence builder: the deploy specification and
// deploy result shapes from spec §3.
package deploy

import "time"

// Strategy is the rollout mechanism used to apply a deploy's manifests.
type Strategy string

const (
	StrategyDirect     Strategy = "direct"
	StrategyCanary     Strategy = "canary"
	StrategyBlueGreen  Strategy = "blue_green"
	// StrategyUnset marks a spec that has not requested a strategy,
	// deferring selection to the orchestrator.
	StrategyUnset Strategy = ""
)

// Slot is the active/preview slot a blue_green deploy targets.
type Slot string

const (
	SlotBlue  Slot = "blue"
	SlotGreen Slot = "green"
)

// Status is the terminal state of a deploy result.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRolledback Status = "rolledback"
)

// DefaultCanarySteps is the default canary.steps sequence when the caller
// does not supply one: strictly monotone increasing percentages in
// (0,100], with 100 as the last step.
var DefaultCanarySteps = []int{10, 25, 50, 75, 100}

// Manifest is a decoded Kubernetes resource object. Parsing raw YAML/JSON
// bytes into this shape is an external collaborator's job, per spec §1.
type Manifest map[string]any

func (m Manifest) Kind() string {
	if v, ok := m["kind"].(string); ok {
		return v
	}
	return ""
}

func (m Manifest) APIVersion() string {
	if v, ok := m["apiVersion"].(string); ok {
		return v
	}
	return ""
}

func (m Manifest) Metadata() map[string]any {
	if v, ok := m["metadata"].(map[string]any); ok {
		return v
	}
	return nil
}

func (m Manifest) Name() string {
	if md := m.Metadata(); md != nil {
		if v, ok := md["name"].(string); ok {
			return v
		}
	}
	return ""
}

func (m Manifest) Namespace() string {
	if md := m.Metadata(); md != nil {
		if v, ok := md["namespace"].(string); ok {
			return v
		}
	}
	return ""
}

// Options is the typed bag for strategy-specific knobs, per spec §3.
type Options struct {
	CanarySteps []int `json:"canary_steps,omitempty"`
	ActiveSlot  Slot  `json:"active_slot,omitempty"`
}

func (o Options) canarySteps() []int {
	if len(o.CanarySteps) == 0 {
		return DefaultCanarySteps
	}
	return o.CanarySteps
}

func (o Options) activeSlot() Slot {
	if o.ActiveSlot == "" {
		return SlotBlue
	}
	return o.ActiveSlot
}

// ResolvedCanarySteps and ResolvedActiveSlot return the option value, defaulted per spec
// §3 when the caller left it unset.
func (o Options) ResolvedCanarySteps() []int { return o.canarySteps() }
func (o Options) ResolvedActiveSlot() Slot   { return o.activeSlot() }

// Spec is a deploy specification, per spec §3.
type Spec struct {
	Service     string
	Namespace   string
	Manifests   []Manifest
	Strategy    Strategy
	Options     Options
	TimeoutMS   int
}

// Normalized returns a copy of the spec with defaults applied: namespace
// "default" and timeout 120000ms.
func (s Spec) Normalized() Spec {
	out := s
	if out.Namespace == "" {
		out.Namespace = "default"
	}
	if out.TimeoutMS == 0 {
		out.TimeoutMS = 120000
	}
	return out
}

func (s Spec) Timeout() time.Duration {
	ms := s.TimeoutMS
	if ms == 0 {
		ms = 120000
	}
	return time.Duration(ms) * time.Millisecond
}

// Result is a deploy result, per spec §3.
type Result struct {
	DeployID        string
	Service         string
	Namespace       string
	Status          Status
	Strategy        Strategy
	ManifestCount   int
	DurationMS      int64
	Verified        bool
	Error           error
	AppliedResources []Manifest
	Timestamp       time.Time
}

// Outcome maps a result status onto the occurrence taxonomy's outcome
// vocabulary, per spec §4.9.
func (r Result) Outcome() string {
	switch r.Status {
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusRolledback:
		return "rolledback"
	default:
		return "failed"
	}
}

// ConcurrentDeploy names a service observed mid-deploy alongside this
// one, for the memory ingestor's concurrent_deploys field (spec §4.4,
// §9 "Concurrency-deploy memory").
type ConcurrentDeploy = string

// Outcome is the ingestor's input shape: a deploy outcome record, per
// spec §4.4.
type Outcome struct {
	Service           string
	Namespace         string
	Status            Status
	Error             error
	ConcurrentDeploys []ConcurrentDeploy
}

// ServiceState is the durable snapshot of an agent's state that the cache
// persists under service_state, letting a freshly-started agent recover
// last_result across restarts, per spec §4.10.
type ServiceState struct {
	Service     string
	Status      string
	DeployCount int
	LastResult  *Result
}
