package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/false-systems/nopea/internal/cache"
	"github.com/false-systems/nopea/internal/deploy"
	"github.com/false-systems/nopea/internal/errs"
	"github.com/false-systems/nopea/internal/id"
)

// queueCapacity bounds the pending-deploy queue per spec §4.10: the
// eleventh concurrent deploy for a busy service is rejected immediately
// with queue_full rather than queued.
const queueCapacity = 10

// crashCooldown is the delay before draining the next queued deploy
// after a worker crash, per spec §4.10 — it protects a broken service
// from an immediate retry storm.
const crashCooldown = 2 * time.Second

// idleTimeout is how long an agent with an empty queue sits idle before
// its run loop exits; callers re-acquire it via Registry.EnsureStarted.
const idleTimeout = 15 * time.Minute

// Runner performs the actual deploy work for a single spec. It must not
// panic for ordinary failures — those are expressed as a Result with
// Status failed/rolledback. A panic from Runner is caught by the agent
// and surfaced as a worker_crash result instead, isolating the crash to
// this one deploy.
type Runner func(ctx context.Context, spec deploy.Spec) deploy.Result

type deployRequest struct {
	spec  deploy.Spec
	reply chan deploy.Result
}

type statusRequest struct {
	reply chan Info
}

type workerOutcome struct {
	deployID string
	result   deploy.Result
	crashed  bool
	reason   any
}

// Agent is one per-service worker. The zero value is not usable;
// construct with New.
type Agent struct {
	service string
	log     *slog.Logger
	cache   *cache.Cache
	runner  Runner

	deployCh chan deployRequest
	statusCh chan statusRequest

	// onIdleExit, if set, is invoked on the owning goroutine just before
	// Run returns due to the idle timeout, so a registry can drop its
	// reference and let a later EnsureStarted spin up a fresh agent.
	onIdleExit func()
}

// New constructs an agent for service. It does not start the run loop;
// call Run in its own goroutine.
func New(service string, log *slog.Logger, c *cache.Cache, runner Runner) *Agent {
	return &Agent{
		service:  service,
		log:      log,
		cache:    c,
		runner:   runner,
		deployCh: make(chan deployRequest),
		statusCh: make(chan statusRequest),
	}
}

// Deploy routes spec to the agent, blocking until it completes. It
// enqueues if the agent is busy and the queue has room, otherwise it
// returns immediately with a queue_full failure result, per spec §4.10.
func (a *Agent) Deploy(ctx context.Context, spec deploy.Spec) deploy.Result {
	reply := make(chan deploy.Result, 1)
	select {
	case a.deployCh <- deployRequest{spec: spec, reply: reply}:
	case <-ctx.Done():
		return deploy.Result{Service: a.service, Namespace: spec.Namespace, Status: deploy.StatusFailed, Error: ctx.Err()}
	}
	select {
	case result := <-reply:
		return result
	case <-ctx.Done():
		return deploy.Result{Service: a.service, Namespace: spec.Namespace, Status: deploy.StatusFailed, Error: ctx.Err()}
	}
}

// StatusInfo returns the agent's current status, per spec §4.10.
func (a *Agent) StatusInfo() Info {
	reply := make(chan Info, 1)
	a.statusCh <- statusRequest{reply: reply}
	return <-reply
}

// Run drives the agent's state machine until ctx is canceled or the
// agent idles out. It recovers last_result from the cache's
// service_state entry on start, so clients observe continuity across
// restarts, per spec §4.10.
func (a *Agent) Run(ctx context.Context) {
	var (
		status      = StatusIdle
		queue       []deployRequest
		current     *deployRequest
		currentID   string
		deployCount int
		lastResult  *deploy.Result
	)

	if a.cache != nil {
		if state, ok := a.cache.GetServiceState(a.service); ok {
			deployCount = state.DeployCount
			lastResult = state.LastResult
		}
	}

	workerDone := make(chan workerOutcome, 1)
	var cooldownC <-chan time.Time

	persist := func() {
		if a.cache == nil {
			return
		}
		s := string(status)
		a.cache.PutServiceState(a.service, deploy.ServiceState{
			Service:     a.service,
			Status:      s,
			DeployCount: deployCount,
			LastResult:  lastResult,
		})
	}

	startWorker := func(req deployRequest) {
		status = StatusDeploying
		current = &req
		currentID = id.New()
		go a.runWorker(ctx, currentID, req.spec, workerDone)
	}

	dequeueNext := func() {
		if len(queue) == 0 {
			status = StatusIdle
			return
		}
		next := queue[0]
		queue = queue[1:]
		startWorker(next)
	}

	idleTimer := time.NewTimer(idleTimeout)
	defer idleTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case req := <-a.deployCh:
			idleTimer.Reset(idleTimeout)
			switch status {
			case StatusIdle:
				startWorker(req)
			case StatusDeploying:
				if len(queue) >= queueCapacity {
					req.reply <- deploy.Result{
						Service:   a.service,
						Namespace: req.spec.Namespace,
						Status:    deploy.StatusFailed,
						Error:     errs.QueueFull,
					}
					continue
				}
				queue = append(queue, req)
			}

		case sreq := <-a.statusCh:
			sreq.reply <- Info{
				Service:     a.service,
				Status:      status,
				DeployCount: deployCount,
				QueueLength: len(queue),
				LastResult:  lastResult,
			}

		case outcome := <-workerDone:
			if outcome.deployID != currentID {
				continue // stale: not the current worker
			}
			result := outcome.result
			if outcome.crashed {
				result = deploy.Result{
					Service:   a.service,
					Namespace: current.spec.Namespace,
					Status:    deploy.StatusFailed,
					Strategy:  current.spec.Strategy,
					Error:     errs.WorkerCrash(outcome.reason),
					Timestamp: time.Now(),
				}
			}
			current.reply <- result
			deployCount++
			lastResult = &result
			current = nil
			currentID = ""
			persist()

			if outcome.crashed && len(queue) > 0 {
				status = StatusDeploying // hold until cooldown elapses
				cooldownC = time.After(crashCooldown)
			} else {
				dequeueNext()
			}

		case <-cooldownC:
			cooldownC = nil
			dequeueNext()

		case <-idleTimer.C:
			if status == StatusIdle && len(queue) == 0 {
				if a.onIdleExit != nil {
					a.onIdleExit()
				}
				return
			}
			idleTimer.Reset(idleTimeout)
		}
	}
}

// runWorker executes req against a.runner on its own goroutine, catching
// any panic and reporting it as a crash rather than letting it escape —
// the isolation boundary described in spec §4.10.
func (a *Agent) runWorker(ctx context.Context, deployID string, spec deploy.Spec, done chan<- workerOutcome) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("agent: worker crashed", "service", a.service, "deploy_id", deployID, "reason", r)
			done <- workerOutcome{deployID: deployID, crashed: true, reason: r}
		}
	}()
	result := a.runner(ctx, spec)
	done <- workerOutcome{deployID: deployID, result: result}
}
