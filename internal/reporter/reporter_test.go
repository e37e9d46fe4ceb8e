package reporter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oriane-systems/httpcore/internal/config"
	"github.com/oriane-systems/httpcore/internal/metrics"
)

func TestStart_DisabledIsNoop(t *testing.T) {
	cancel, err := Start(context.Background(), config.ReporterConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, cancel)
	cancel() // must not panic
}

func TestStart_RejectsInvalidCron(t *testing.T) {
	_, err := Start(context.Background(), config.ReporterConfig{Enabled: true, Cron: "not a cron"})
	require.Error(t, err)
}

func TestStart_RunsOnEverySecondSchedule(t *testing.T) {
	metrics.ConnectionsAccepted.Add(3)

	ctx, cancelCtx := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelCtx()

	cancel, err := Start(ctx, config.ReporterConfig{Enabled: true, Cron: "* * * * * *"})
	require.NoError(t, err)
	defer cancel()

	time.Sleep(1200 * time.Millisecond)
	// The scheduler goroutine must not have panicked or deadlocked; there's
	// no externally observable side effect to assert on beyond that since
	// logSnapshot only writes to obslog.Log.
}

func TestFamilyValue_SumsAcrossLabels(t *testing.T) {
	metrics.ParserOutcomeTotal.WithLabelValues("ok").Add(2)
	metrics.ParserOutcomeTotal.WithLabelValues("invalid").Add(1)

	families, err := metrics.Registry.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() == "httpcored_parser_outcome_total" {
			found = true
			require.GreaterOrEqual(t, familyValue(mf), float64(3))
		}
	}
	require.True(t, found)
}
