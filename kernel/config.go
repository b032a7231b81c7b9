package kernel

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mneedes/gomos/hal"
)

// Config configures a Kernel instance. Zero-value fields are replaced with
// sane defaults by New, following the teacher's small-typed-config-struct
// habit over package-level globals.
type Config struct {
	// NumPriorities is the number of real priority levels, 0 (highest)
	// through NumPriorities-1. The idle thread lives one level below all
	// of these and is not counted here.
	NumPriorities int

	// TickPeriod is the simulated duration of one system tick.
	TickPeriod time.Duration

	// MaxIdleTicks bounds how far tickless idle will ever program the
	// down-counter for, regardless of how far away the next timer is.
	MaxIdleTicks uint64

	// Clock is the time source for tick generation and DelayMicroseconds.
	// Defaults to clockwork.NewRealClock(); tests supply a FakeClock.
	Clock clockwork.Clock

	// NominalCyclesPerTick scales CycleCount's clock-delta approximation
	// of a hardware cycle counter (spec.md §6 GetCycleCount).
	NominalCyclesPerTick uint64

	Sink         hal.Sink
	SleepHook    hal.SleepHook
	WakeHook     hal.WakeHook
	EventHook    hal.EventHook
	CrashInducer hal.CrashInducer
}

func (c *Config) setDefaults() {
	if c.NumPriorities <= 0 {
		c.NumPriorities = 8
	}
	if c.TickPeriod <= 0 {
		c.TickPeriod = time.Millisecond
	}
	if c.MaxIdleTicks == 0 {
		c.MaxIdleTicks = 10000
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.NominalCyclesPerTick == 0 {
		c.NominalCyclesPerTick = 16000
	}
	if c.Sink == nil {
		c.Sink = noopSink{}
	}
	if c.SleepHook == nil {
		c.SleepHook = func(uint64) {}
	}
	if c.WakeHook == nil {
		c.WakeHook = func() {}
	}
	if c.EventHook == nil {
		c.EventHook = func(hal.Event, uint64, int) {}
	}
	if c.CrashInducer == nil {
		c.CrashInducer = func(string) {}
	}
}

// idlePriority is one below the lowest real priority level; it is never a
// valid argument to Spawn or SetPriority.
func (k *Kernel) idlePriority() int { return k.cfg.NumPriorities }

// noopSink is the default hal.Sink: discard, matching a board with no
// trace UART wired up.
type noopSink struct{}

func (noopSink) WriteRaw(p []byte) (int, error) { return len(p), nil }
