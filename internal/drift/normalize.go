// Package drift implements the post-deploy drift engine from spec §4.8:
// normalization of volatile/cluster-managed fields, content hashing,
// three-way diff, and verify_manifest.
package drift

import (
	"strconv"
	"strings"

	"github.com/false-systems/nopea/internal/deploy"
)

// Normalize returns a copy of m with the exact field list from spec §4.8
// stripped, leaving only the fields that matter for drift comparison.
func Normalize(m deploy.Manifest) deploy.Manifest {
	out := deepCopyMap(m)

	delete(out, "status")

	if md, ok := asMap(out["metadata"]); ok {
		for _, k := range []string{"resourceVersion", "uid", "creationTimestamp", "generation", "managedFields", "selfLink", "namespace"} {
			delete(md, k)
		}
		if ann, ok := asMap(md["annotations"]); ok {
			delete(ann, "kubectl.kubernetes.io/last-applied-configuration")
			delete(ann, "deployment.kubernetes.io/revision")
			if len(ann) == 0 {
				delete(md, "annotations")
			}
		}
	}

	switch deploy.Manifest(out).Kind() {
	case "Deployment":
		normalizeDeployment(out)
	case "Service":
		normalizeService(out)
	}

	return out
}

func normalizeDeployment(out map[string]any) {
	spec, ok := asMap(out["spec"])
	if !ok {
		return
	}
	delete(spec, "replicas")
	if strat, ok := asMap(spec["strategy"]); ok {
		if ru, ok := asMap(strat["rollingUpdate"]); ok {
			delete(ru, "maxSurge")
		}
	}

	tmpl, ok := asMap(spec["template"])
	if !ok {
		return
	}
	tmplSpec, ok := asMap(tmpl["spec"])
	if !ok {
		return
	}
	for _, k := range []string{"dnsPolicy", "restartPolicy", "schedulerName", "securityContext", "terminationGracePeriodSeconds"} {
		delete(tmplSpec, k)
	}

	containers, _ := tmplSpec["containers"].([]any)
	for _, c := range containers {
		container, ok := asMap(c)
		if !ok {
			continue
		}
		delete(container, "terminationMessagePath")
		delete(container, "terminationMessagePolicy")
		for _, probeKey := range []string{"livenessProbe", "readinessProbe"} {
			if probe, ok := asMap(container[probeKey]); ok {
				for _, k := range []string{"failureThreshold", "periodSeconds", "successThreshold"} {
					delete(probe, k)
				}
			}
		}
		normalizeContainerCPULimit(container)
	}
}

// normalizeContainerCPULimit rewrites resources.limits.cpu from milli-form
// "Nm" to the whole-core count N/1000 (e.g. "2000m" → "2") when N/1000 is
// an exact whole number, per spec §4.8 — this makes the hash insensitive to the two textual forms a
// cluster may round-trip a whole-core CPU quantity through.
func normalizeContainerCPULimit(container map[string]any) {
	resources, ok := asMap(container["resources"])
	if !ok {
		return
	}
	limits, ok := asMap(resources["limits"])
	if !ok {
		return
	}
	cpu, ok := limits["cpu"].(string)
	if !ok || !strings.HasSuffix(cpu, "m") {
		return
	}
	n, err := strconv.Atoi(strings.TrimSuffix(cpu, "m"))
	if err != nil || n%1000 != 0 {
		return
	}
	limits["cpu"] = strconv.Itoa(n / 1000)
}

func normalizeService(out map[string]any) {
	spec, ok := asMap(out["spec"])
	if !ok {
		return
	}
	for _, k := range []string{"clusterIP", "clusterIPs", "internalTrafficPolicy", "ipFamilies", "ipFamilyPolicy", "sessionAffinity"} {
		delete(spec, k)
	}
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyAny(v)
	}
	return out
}

func deepCopyAny(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyAny(e)
		}
		return out
	default:
		return v
	}
}
