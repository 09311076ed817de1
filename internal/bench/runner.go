// internal/bench/runner.go
package bench

import (
	"context"
	"log/slog"
)

// Run performs the configured number of cycles and returns the raw session data.
// One goroutine. No overlap. No retries.
//
// ctx is checked between cycles only; a cancelled session returns what it
// collected so far. The link is closed exactly once before Run returns.
func (s *Sampler) Run(ctx context.Context) SessionResult {
	var res SessionResult

	defer func() {
		if err := s.link.Close(); err != nil {
			slog.Warn("link close failed", "err", err)
		}
	}()

	for i := 0; i < s.cfg.Cycles; i++ {
		if err := ctx.Err(); err != nil {
			slog.Info("session stopped early", "cycles_run", res.CyclesRun, "err", err)
			break
		}

		cr, devices := s.PollCycle(i)

		res.CyclesRun++
		res.Errors += cr.Errors
		res.CycleSpeedSum += cr.AvgSpeedMs

		for _, d := range devices {
			if d.Err == nil {
				res.LatenciesMs = append(res.LatenciesMs, float64(d.LatencyMs))
			}
		}

		s.observer.CycleDone(cr)
	}

	res.Buckets = s.agg.Buckets()
	return res
}
