// Package reporter runs a cron-scheduled background goroutine that logs a
// periodic snapshot of queue, header-table, and parser-outcome metrics at
// info level. The process persists nothing to disk, so the reporter reads
// everything it logs back out of the in-memory metrics registry.
package reporter

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	dto "github.com/prometheus/client_model/go"

	"github.com/oriane-systems/httpcore/internal/config"
	"github.com/oriane-systems/httpcore/internal/metrics"
	"github.com/oriane-systems/httpcore/internal/obslog"
)

const defaultCron = "*/30 * * * * *"

// Start starts the reporter scheduler if cfg.Enabled. Returns a cancel func
// that stops the scheduler goroutine; the returned func is a no-op when the
// reporter is disabled.
func Start(ctx context.Context, cfg config.ReporterConfig) (context.CancelFunc, error) {
	if !cfg.Enabled {
		obslog.Log.Info("reporter disabled")
		return func() {}, nil
	}

	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = defaultCron
	}
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid reporter cron expression: %s", cronExpr)
	}

	obslog.Log.Info("reporter enabled", "cron", cronExpr)
	runCtx, cancel := context.WithCancel(ctx)
	go runScheduler(runCtx, cronExpr)

	return cancel, nil
}

// runScheduler wakes at each cron tick and logs one stats snapshot, using
// gronx to compute the next tick rather than a fixed-interval ticker so
// arbitrary cron syntax (not just "every N seconds") is honored.
func runScheduler(ctx context.Context, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			obslog.Log.Error("reporter next-tick computation failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait < 0 {
			wait = 0
		}

		select {
		case <-time.After(wait):
			logSnapshot()
		case <-ctx.Done():
			return
		}
	}
}

// logSnapshot gathers the current value of every collector registered on
// metrics.Registry and logs them as one structured event. Gathering through
// the registry (the same path promhttp uses to serve /metrics) keeps the
// reporter and the scrape endpoint looking at a single source of truth
// instead of a parallel set of hand-maintained counters.
func logSnapshot() {
	families, err := metrics.Registry.Gather()
	if err != nil {
		obslog.Log.Error("stats snapshot gather failed", "error", err)
		return
	}

	args := make([]any, 0, len(families)*2)
	for _, mf := range families {
		args = append(args, mf.GetName(), familyValue(mf))
	}
	obslog.Log.Info("stats snapshot", args...)
}

// familyValue sums the metric family down to a single representative
// number: for the gauges and unlabeled counters this project defines
// that's the one sample's value; for the labeled parser-outcome counter
// it's the sum across all label values.
func familyValue(mf *dto.MetricFamily) float64 {
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Counter != nil:
			total += m.Counter.GetValue()
		}
	}
	return total
}
