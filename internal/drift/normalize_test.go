package drift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/false-systems/nopea/internal/deploy"
)

func deployment(image string, replicas int) deploy.Manifest {
	return deploy.Manifest{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata": map[string]any{
			"name":              "checkout",
			"namespace":         "default",
			"resourceVersion":   "12345",
			"uid":               "abc-123",
			"creationTimestamp": "2026-01-01T00:00:00Z",
			"generation":        float64(3),
			"annotations": map[string]any{
				"kubectl.kubernetes.io/last-applied-configuration": "{...}",
				"owner": "platform-team",
			},
		},
		"spec": map[string]any{
			"replicas": float64(replicas),
			"strategy": map[string]any{
				"rollingUpdate": map[string]any{"maxSurge": "25%"},
			},
			"template": map[string]any{
				"spec": map[string]any{
					"dnsPolicy":     "ClusterFirst",
					"restartPolicy": "Always",
					"containers": []any{
						map[string]any{
							"name":                    "checkout",
							"image":                   image,
							"terminationMessagePath":  "/dev/termination-log",
							"livenessProbe": map[string]any{
								"failureThreshold": float64(3),
								"periodSeconds":    float64(10),
							},
							"resources": map[string]any{
								"limits": map[string]any{"cpu": "2000m"},
							},
						},
					},
				},
			},
		},
		"status": map[string]any{"readyReplicas": float64(replicas)},
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	m := deployment("checkout:v1", 3)
	once := Normalize(m)
	twice := Normalize(once)
	assert.Equal(t, once, twice)
}

func TestNormalizeStripsVolatileFields(t *testing.T) {
	m := deployment("checkout:v1", 3)
	out := Normalize(m)

	md := out.Metadata()
	_, hasRV := md["resourceVersion"]
	_, hasUID := md["uid"]
	assert.False(t, hasRV)
	assert.False(t, hasUID)
	_, hasStatus := out["status"]
	assert.False(t, hasStatus)

	ann, ok := md["annotations"].(map[string]any)
	require.True(t, ok)
	_, hasLastApplied := ann["kubectl.kubernetes.io/last-applied-configuration"]
	assert.False(t, hasLastApplied)
	assert.Equal(t, "platform-team", ann["owner"])
}

func TestNormalizeDropsEmptyAnnotationsMap(t *testing.T) {
	m := deployment("checkout:v1", 3)
	md := m.Metadata()
	md["annotations"] = map[string]any{
		"kubectl.kubernetes.io/last-applied-configuration": "{...}",
	}
	out := Normalize(m)
	_, hasAnnotations := out.Metadata()["annotations"]
	assert.False(t, hasAnnotations)
}

func TestNormalizeIgnoresReplicaCountChange(t *testing.T) {
	hashA, err := Hash(deployment("checkout:v1", 3))
	require.NoError(t, err)
	hashB, err := Hash(deployment("checkout:v1", 5))
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)
}

func TestNormalizeCPULimitWholeCoreFormsAreEquivalent(t *testing.T) {
	a := deployment("checkout:v1", 3)
	b := deployment("checkout:v1", 3)
	containers := b["spec"].(map[string]any)["template"].(map[string]any)["spec"].(map[string]any)["containers"].([]any)
	containers[0].(map[string]any)["resources"] = map[string]any{
		"limits": map[string]any{"cpu": "2"},
	}

	hashA, err := Hash(a)
	require.NoError(t, err)
	hashB, err := Hash(b)
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	m := deployment("checkout:v1", 3)
	_ = Normalize(m)
	_, stillHasRV := m.Metadata()["resourceVersion"]
	assert.True(t, stillHasRV)
}

func TestNormalizeServiceStripsClusterAssignedFields(t *testing.T) {
	svc := deploy.Manifest{
		"apiVersion": "v1",
		"kind":       "Service",
		"metadata":   map[string]any{"name": "checkout"},
		"spec": map[string]any{
			"clusterIP":  "10.0.0.1",
			"clusterIPs": []any{"10.0.0.1"},
			"selector":   map[string]any{"app": "checkout"},
		},
	}
	out := Normalize(svc)
	spec := out["spec"].(map[string]any)
	_, hasIP := spec["clusterIP"]
	assert.False(t, hasIP)
	assert.Equal(t, map[string]any{"app": "checkout"}, spec["selector"])
}
