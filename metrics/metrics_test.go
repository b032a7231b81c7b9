package metrics_test

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/mneedes/gomos/kernel"
	"github.com/mneedes/gomos/metrics"
)

// counterValue gathers reg and returns the value of the first sample of the
// named counter metric, failing the test if it isn't present. PrometheusHook
// keeps its prometheus.Counter fields unexported, so a caller outside the
// package can only observe them the way any real Prometheus scrape would:
// through the registry's Gather, not a direct handle on the collector.
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		require.NotEmpty(t, fam.GetMetric())
		return fam.GetMetric()[0].GetCounter().GetValue()
	}
	t.Fatalf("metric %s not found in registry", name)
	return 0
}

// TestPrometheusHookCountsSchedulerActivity wires a PrometheusHook into a
// running kernel as its Config.EventHook and checks that the scheduler's own
// activity — thread hand-offs and system ticks — shows up as real Prometheus
// samples, exercising the hook the way the teacher's runtime scheduler traces
// are exercised by kernel_test.go rather than in isolation.
func TestPrometheusHookCountsSchedulerActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	hook := metrics.NewPrometheusHook(reg)

	k := kernel.New(kernel.Config{
		NumPriorities: 4,
		TickPeriod:    time.Millisecond,
		Clock:         clockwork.NewFakeClock(),
		EventHook:     hook.Hook(),
	})

	worker := k.Spawn(kernel.ThreadConfig{Name: "worker", Priority: 0, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		for i := 0; i < 3; i++ {
			k.Yield(self)
		}
		return nil
	}})
	driver := k.Spawn(kernel.ThreadConfig{Name: "driver", Priority: 1, Fn: func(self *kernel.Thread, _ interface{}) interface{} {
		k.WaitForStop(self, worker)
		k.Shutdown()
		return nil
	}})

	// AdvanceTickCount is a synchronous call, safe to make before Run starts
	// the scheduler loop; it guarantees at least one EventTick fires even
	// though the fake clock never advances on its own in this test.
	k.AdvanceTickCount(3)

	worker.Start()
	driver.Start()
	k.Run()

	require.Greater(t, counterValue(t, reg, "gomos_scheduler_enters_total"), 0.0)
	require.Greater(t, counterValue(t, reg, "gomos_scheduler_exits_total"), 0.0)
	require.Greater(t, counterValue(t, reg, "gomos_ticks_total"), 0.0)
}
