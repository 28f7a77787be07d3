package memory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/false-systems/nopea/internal/deploy"
	"github.com/false-systems/nopea/internal/errs"
	"github.com/false-systems/nopea/internal/graph"
)

// ingest applies the deploy-outcome mapping rules from spec §4.4 to g.
// Malformed input (missing service name) leaves the graph unchanged and
// returns an error; the caller (the memory service's run loop) logs it
// at warning and preserves the previous graph.
func ingest(g *graph.Graph, outcome deploy.Outcome, marker string) error {
	if outcome.Service == "" {
		return errors.New("memory ingest: outcome missing required field: service")
	}
	namespace := outcome.Namespace
	if namespace == "" {
		namespace = "default"
	}

	confidence := confidenceForStatus(outcome.Status)

	svcNode := g.UpsertNode(graph.KindConcept, outcome.Service, confidence, marker)
	nsNode := g.UpsertNode(graph.KindConcept, "namespace:"+namespace, 0.5, marker)

	g.UpsertRelationship(
		svcNode.ID, graph.RelationDeployedTo, nsNode.ID,
		confidence, marker,
		fmt.Sprintf("deploy %s at %s", outcome.Status, time.Now().UTC().Format(time.RFC3339)),
	)

	if outcome.Status == deploy.StatusFailed && outcome.Error != nil {
		tag := normalizeErrorTag(outcome.Error)
		errNode := g.UpsertNode(graph.KindError, tag, 0.8, marker)
		g.UpsertRelationship(
			svcNode.ID, graph.RelationBreaks, errNode.ID,
			0.8, marker,
			fmt.Sprintf("deploy failed: %s", outcome.Error.Error()),
		)
	}

	for _, name := range outcome.ConcurrentDeploys {
		g.UpsertNode(graph.KindConcept, name, 0.5, marker)
	}

	return nil
}

func confidenceForStatus(status deploy.Status) float64 {
	switch status {
	case deploy.StatusCompleted:
		return 0.9
	case deploy.StatusFailed:
		return 0.8
	case deploy.StatusRolledback:
		return 0.7
	default:
		return 0.5
	}
}

// normalizeErrorTag reduces an error to a short lowercase tag: a tagged
// *errs.Error contributes its Tag (the Go analogue of "a tuple's first
// atom"), otherwise the error's printed form is used, lowercased.
func normalizeErrorTag(err error) string {
	var tagged *errs.Error
	if errors.As(err, &tagged) {
		return string(tagged.Tag)
	}
	return strings.ToLower(err.Error())
}
