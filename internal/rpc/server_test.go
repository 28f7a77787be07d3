package rpc

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/false-systems/nopea/internal/agent"
	"github.com/false-systems/nopea/internal/cache"
	"github.com/false-systems/nopea/internal/deploy"
	"github.com/false-systems/nopea/internal/errs"
	"github.com/false-systems/nopea/internal/memory"
	"github.com/false-systems/nopea/internal/occurrence"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(t *testing.T) *agent.Registry {
	t.Helper()
	c := cache.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return agent.NewRegistry(ctx, testLogger(), c, func(_ context.Context, spec deploy.Spec) deploy.Result {
		return deploy.Result{
			DeployID:  "01H0000000000000000000002",
			Service:   spec.Service,
			Namespace: spec.Namespace,
			Status:    deploy.StatusCompleted,
			Strategy:  deploy.StrategyDirect,
			Timestamp: time.Now(),
		}
	})
}

func TestHandleDeployRejectsMissingService(t *testing.T) {
	registry := newTestRegistry(t)
	_, err := handleDeploy(context.Background(), registry, deployInput{})
	assert.Error(t, err)
}

func TestHandleDeploySucceeds(t *testing.T) {
	registry := newTestRegistry(t)
	out, err := handleDeploy(context.Background(), registry, deployInput{Service: "checkout", Namespace: "prod"})
	require.NoError(t, err)
	assert.Equal(t, "completed", out.Status)
	assert.Equal(t, "direct", out.Strategy)
}

func TestHandleContextReturnsNullContextWithoutMemory(t *testing.T) {
	got := handleContext(nil, contextInput{Service: "checkout"})
	assert.False(t, got.Known)
	assert.Equal(t, "default", got.Namespace)
}

func TestHandleContextUsesMemoryWhenPresent(t *testing.T) {
	c := cache.New()
	mem := memory.New(testLogger(), c)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mem.Start(ctx)

	mem.RecordDeploy(deploy.Outcome{
		Service:   "checkout",
		Namespace: "prod",
		Status:    deploy.StatusFailed,
		Error:     errs.ApplyFailed("boom"),
	})

	require.Eventually(t, func() bool {
		return handleContext(mem, contextInput{Service: "checkout", Namespace: "prod"}).Known
	}, time.Second, time.Millisecond)
}

func TestHandleHistoryReportsServiceEvenWhenEmpty(t *testing.T) {
	out := handleHistory(nil, nil, historyInput{Service: "checkout"})
	assert.Equal(t, "checkout", out.Service)
	assert.Nil(t, out.State)
	assert.Empty(t, out.Deployments)
}

func TestHandleHistoryIncludesCachedDeployments(t *testing.T) {
	c := cache.New()
	c.PutDeployment(cache.DeploymentKey{Service: "checkout", DeployID: "d1"}, deploy.Result{
		DeployID: "d1",
		Service:  "checkout",
		Status:   deploy.StatusCompleted,
	})
	out := handleHistory(nil, c, historyInput{Service: "checkout"})
	require.Len(t, out.Deployments, 1)
	assert.Equal(t, "d1", out.Deployments[0].DeployID)
}

func TestHandleHealth(t *testing.T) {
	assert.Equal(t, "ok", handleHealth().Status)
}

func TestHandleExplainRejectsMissingDeployID(t *testing.T) {
	_, err := handleExplain(t.TempDir(), explainInput{})
	assert.Error(t, err)
}

func TestHandleExplainRoundTripsPersistedOccurrence(t *testing.T) {
	dir := t.TempDir()
	result := deploy.Result{DeployID: "01H0EXPLAIN", Service: "checkout", Namespace: "prod", Status: deploy.StatusCompleted}
	occ := occurrence.Build(result, nil)
	require.NoError(t, occurrence.Persist(dir, occ))

	got, err := handleExplain(dir, explainInput{DeployID: occ.ID})
	require.NoError(t, err)
	assert.Equal(t, "checkout", got.DeployData.Service)
}

func TestHandleExplainMissingDeployReturnsError(t *testing.T) {
	_, err := handleExplain(t.TempDir(), explainInput{DeployID: "nonexistent"})
	assert.Error(t, err)
}
