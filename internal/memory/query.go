package memory

import (
	"fmt"
	"sort"

	"github.com/false-systems/nopea/internal/graph"
)

// FailurePattern is a single entry from failure_patterns, per spec §4.5.
type FailurePattern struct {
	Error        string
	Confidence   float64
	Observations int
	Evidence     []string
}

// Dependency is a single entry from dependencies, per spec §4.5.
type Dependency struct {
	TargetName string
	Weight     float64
	Observations int
}

// Context is the result shape of get_deploy_context, per spec §4.3.
type Context struct {
	Service         string
	Namespace       string
	Known           bool
	FailurePatterns []FailurePattern
	Dependencies    []Dependency
	Recommendations []string
}

// failurePatterns returns the outgoing "breaks" relationships of a
// service node, sorted by confidence (weight) descending.
func failurePatterns(g *graph.Graph, serviceID graph.NodeID) []FailurePattern {
	rels := g.Neighbors(serviceID, graph.DirectionOutgoing)
	var out []FailurePattern
	for _, r := range rels {
		if r.Relation != graph.RelationBreaks {
			continue
		}
		target, ok := g.GetNode(r.Target)
		if !ok {
			continue
		}
		out = append(out, FailurePattern{
			Error:        target.CanonicalName,
			Confidence:   r.Weight,
			Observations: r.Observations,
			Evidence:     append([]string(nil), r.Evidence...),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

// dependencies returns the outgoing "depends_on" relationships of a
// service node.
func dependencies(g *graph.Graph, serviceID graph.NodeID) []Dependency {
	rels := g.Neighbors(serviceID, graph.DirectionOutgoing)
	var out []Dependency
	for _, r := range rels {
		if r.Relation != graph.RelationDependsOn {
			continue
		}
		target, ok := g.GetNode(r.Target)
		if !ok {
			continue
		}
		out = append(out, Dependency{
			TargetName:   target.CanonicalName,
			Weight:       r.Weight,
			Observations: r.Observations,
		})
	}
	return out
}

// recommendationThreshold and recommendationMinObservations gate when a
// failure pattern is worth surfacing as an operator-facing suggestion,
// per spec §4.5.
const (
	recommendationThreshold        = 0.7
	recommendationMinObservations  = 2
)

// recommendations builds human-readable canary suggestions from failure
// patterns crossing the confidence/observation gate.
func recommendations(patterns []FailurePattern) []string {
	var out []string
	for _, p := range patterns {
		if p.Confidence > recommendationThreshold && p.Observations >= recommendationMinObservations {
			out = append(out, fmt.Sprintf(
				"this service has failed with %q %d times (confidence %.2f) — consider a canary rollout to limit blast radius",
				p.Error, p.Observations, p.Confidence,
			))
		}
	}
	return out
}
