package agent

import (
	"context"
	"log/slog"
)

// supervise runs a.Run, restarting it if it panics, so a defect in the
// state machine itself — as opposed to an isolated worker crash already
// handled inside Run — cannot silently kill a service's agent. Restart
// loses any currently queued deploys (their callers receive no reply and
// stay blocked until their own context is done) but recovers deploy_count/last_result from the cache on
// the next Run, per spec §4.10's continuity-across-restarts guarantee.
func supervise(ctx context.Context, log *slog.Logger, service string, a *Agent) {
	for {
		if ctx.Err() != nil {
			return
		}

		crashed := false
		func() {
			defer func() {
				if r := recover(); r != nil {
					crashed = true
					log.Error("agent: run loop panicked, restarting", "service", service, "reason", r)
				}
			}()
			a.Run(ctx)
		}()

		// Run returned cleanly: either ctx was canceled or the agent
		// idled out (which already detached it from the registry). Only
		// a panic warrants looping back for a restart.
		if !crashed {
			return
		}
	}
}
