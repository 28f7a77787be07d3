// Package occurrence builds and persists the structured post-deploy
// report described in spec §4.9: a JSON document plus a binary-encoded
// warm-path copy, derived from a deploy result and optionally the memory
// context that informed it.
package occurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/false-systems/nopea/internal/deploy"
	"github.com/false-systems/nopea/internal/errs"
	"github.com/false-systems/nopea/internal/id"
	"github.com/false-systems/nopea/internal/memory"
)

const schemaVersion = "1.0"

// ErrorInfo is the occurrence's "error" section, present only on
// non-completed results.
type ErrorInfo struct {
	Code          string `json:"code"`
	WhatFailed    string `json:"what_failed"`
	WhyItMatters  string `json:"why_it_matters"`
	Message       string `json:"message,omitempty"`
}

// Reasoning is the occurrence's "reasoning" section, present only on
// non-completed results.
type Reasoning struct {
	Summary         string                 `json:"summary"`
	Confidence      float64                `json:"confidence"`
	MemoryContext   *memory.Context        `json:"memory_context,omitempty"`
	Recommendations []string               `json:"recommendations,omitempty"`
}

// Step is a single entry in the occurrence's "history.steps" sequence.
type Step struct {
	Step       string `json:"step"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

// History is the occurrence's "history" section, always present.
type History struct {
	Steps      []Step `json:"steps"`
	DurationMS int64  `json:"duration_ms"`
}

// DeployData is the occurrence's "deploy_data" section, always present.
type DeployData struct {
	Service         string `json:"service"`
	Namespace       string `json:"namespace"`
	Strategy        string `json:"strategy"`
	ManifestsApplied int    `json:"manifests_applied"`
	Verified        bool   `json:"verified"`
	DeployID        string `json:"deploy_id,omitempty"`
}

// Occurrence is the complete structured report, per spec §4.9.
type Occurrence struct {
	Version   string     `json:"version"`
	ID        string     `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	Source    string     `json:"source"`
	Type      string     `json:"type"`
	Severity  string     `json:"severity"`
	Outcome   string     `json:"outcome"`

	Error     *ErrorInfo `json:"error,omitempty"`
	Reasoning *Reasoning `json:"reasoning,omitempty"`

	History    History    `json:"history"`
	DeployData DeployData `json:"deploy_data"`
}

// Build assembles an Occurrence from a deploy result and optionally the
// memory context that informed it (nil when memory was unavailable or
// the deploy completed cleanly).
func Build(result deploy.Result, ctx *memory.Context) Occurrence {
	outcome := result.Outcome()

	o := Occurrence{
		Version:   schemaVersion,
		ID:        id.New(),
		Timestamp: result.Timestamp.UTC(),
		Source:    "nopea",
		Type:      fmt.Sprintf("deploy.run.%s", outcome),
		Severity:  severityFor(outcome),
		Outcome:   outcome,
		History:   buildHistory(result),
		DeployData: DeployData{
			Service:          result.Service,
			Namespace:        result.Namespace,
			Strategy:         string(result.Strategy),
			ManifestsApplied: result.ManifestCount,
			Verified:         result.Verified,
			DeployID:         result.DeployID,
		},
	}

	if result.Status != deploy.StatusCompleted {
		o.Error = buildError(result)
		o.Reasoning = buildReasoning(result, ctx)
	}

	return o
}

func severityFor(outcome string) string {
	switch outcome {
	case "completed":
		return "info"
	case "rolledback":
		return "warning"
	default:
		return "error"
	}
}

func buildError(result deploy.Result) *ErrorInfo {
	code := errorCode(result.Error)
	info := &ErrorInfo{
		Code:         code,
		WhatFailed:   fmt.Sprintf("deploy of %s (%s)", result.Service, result.Strategy),
		WhyItMatters: fmt.Sprintf("%s in %s is not updated — %s", result.Service, result.Namespace, impactFor(code)),
	}
	if result.Error != nil {
		info.Message = result.Error.Error()
	}
	return info
}

func errorCode(err error) string {
	var tagged *errs.Error
	if err != nil && errors.As(err, &tagged) {
		return string(tagged.Tag)
	}
	return "unknown"
}

// impactFor gives operators a short plain-language statement of
// consequence keyed by error tag, per spec §4.9's "{impact}" slot.
func impactFor(code string) string {
	switch code {
	case string(errs.TagQueueFull):
		return "this deploy was rejected before it started"
	case string(errs.TagWorkerCrash):
		return "the agent handling this service crashed mid-deploy"
	case string(errs.TagNoDeploymentFound):
		return "no Deployment manifest was found to build a rollout from"
	case string(errs.TagApplyFailed):
		return "the cluster rejected the apply"
	case string(errs.TagTimeout), string(errs.TagConnectionRefused):
		return "the cluster was unreachable"
	default:
		return "the previous version remains in production"
	}
}

func buildReasoning(result deploy.Result, ctx *memory.Context) *Reasoning {
	code := errorCode(result.Error)
	r := &Reasoning{
		Summary:    summaryFor(code),
		Confidence: 0.3,
	}
	if ctx != nil {
		r.Confidence = confidenceFor(ctx.Known)
		r.MemoryContext = ctx
		if len(ctx.Recommendations) > 0 {
			r.Recommendations = ctx.Recommendations
		}
	}
	return r
}

func confidenceFor(known bool) float64 {
	if known {
		return 0.8
	}
	return 0.3
}

func summaryFor(code string) string {
	return fmt.Sprintf("deploy failed with %s", code)
}

func buildHistory(result deploy.Result) History {
	h := History{DurationMS: result.DurationMS}

	switch result.Status {
	case deploy.StatusCompleted:
		h.Steps = []Step{{Step: "apply manifests", Status: "completed", DurationMS: result.DurationMS}}
		if result.Verified {
			h.Steps = append(h.Steps, Step{Step: "post-deploy verification", Status: "passed"})
		}
	case deploy.StatusFailed:
		step := Step{Step: "apply manifests", Status: "failed", DurationMS: result.DurationMS}
		if result.Error != nil {
			step.Error = result.Error.Error()
		}
		h.Steps = []Step{step}
	case deploy.StatusRolledback:
		step := Step{Step: "apply manifests", Status: "failed", DurationMS: result.DurationMS}
		if result.Error != nil {
			step.Error = result.Error.Error()
		}
		h.Steps = []Step{step, {Step: "rollback", Status: "completed"}}
	}

	return h
}
