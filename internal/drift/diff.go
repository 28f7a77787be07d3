package drift

import (
	"fmt"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"

	"github.com/false-systems/nopea/internal/deploy"
)

// OutcomeKind enumerates the three-way diff's classification, per spec
// §4.8's outcome table.
type OutcomeKind string

const (
	OutcomeNoDrift     OutcomeKind = "no_drift"
	OutcomeGitChange   OutcomeKind = "git_change"
	OutcomeManualDrift OutcomeKind = "manual_drift"
	OutcomeConflict    OutcomeKind = "conflict"
	OutcomeNewResource OutcomeKind = "new_resource"
	OutcomeNeedsApply  OutcomeKind = "needs_apply"
)

// Outcome is the result of a three-way diff or a verify_manifest call.
// Only the fields relevant to Kind are populated.
type Outcome struct {
	Kind OutcomeKind

	// git_change: the last-applied and desired config hashes.
	From, To string

	// manual_drift: what was expected (last-applied/desired, which agree
	// under this outcome) vs what is actually live.
	Expected, Actual deploy.Manifest

	// conflict: all three diverge.
	Last, Desired, Live deploy.Manifest

	// Detail is a supplemental human-readable unified diff between the
	// two manifests that disagree, rendered with the teacher's own
	// hexops/gotextdiff dependency (see SPEC_FULL.md §4.8). Empty for
	// no_drift.
	Detail string
}

// ThreeWayDiff classifies drift among last-applied, desired, and live
// manifests, per spec §4.8's outcome table. All three must be non-nil;
// verify_manifest handles the absent-manifest cases itself.
func ThreeWayDiff(lastApplied, desired, live deploy.Manifest) (Outcome, error) {
	lastHash, err := Hash(lastApplied)
	if err != nil {
		return Outcome{}, fmt.Errorf("hash last-applied: %w", err)
	}
	desiredHash, err := Hash(desired)
	if err != nil {
		return Outcome{}, fmt.Errorf("hash desired: %w", err)
	}
	liveHash, err := Hash(live)
	if err != nil {
		return Outcome{}, fmt.Errorf("hash live: %w", err)
	}

	gc := desiredHash != lastHash
	md := liveHash != lastHash

	switch {
	case !gc && !md:
		return Outcome{Kind: OutcomeNoDrift}, nil
	case gc && !md:
		return Outcome{Kind: OutcomeGitChange, From: lastHash, To: desiredHash}, nil
	case !gc && md:
		return Outcome{
			Kind:     OutcomeManualDrift,
			Expected: desired,
			Actual:   live,
			Detail:   unifiedDiff("expected", "actual", desired, live),
		}, nil
	default: // gc && md
		return Outcome{
			Kind:    OutcomeConflict,
			Last:    lastApplied,
			Desired: desired,
			Live:    live,
			Detail:  unifiedDiff("desired", "live", desired, live),
		}, nil
	}
}

// unifiedDiff renders a human-readable diff between two manifests'
// normalized JSON, for operator-facing reports. It never fails the
// caller; a marshal error just yields an empty detail string.
func unifiedDiff(fromLabel, toLabel string, from, to deploy.Manifest) string {
	fromText, err1 := prettyJSON(Normalize(from))
	toText, err2 := prettyJSON(Normalize(to))
	if err1 != nil || err2 != nil {
		return ""
	}
	edits := myers.ComputeEdits(span.URIFromPath(fromLabel), fromText, toText)
	return fmt.Sprint(gotextdiff.ToUnified(fromLabel, toLabel, fromText, edits))
}
