// Package engine runs the life simulation: a day-per-tick loop driving the
// clock, the valuation interpolator, the monthly and yearly settlement
// routines and the event sampler over one player.
package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/umuterturk/investment-game/internal/clock"
)

// pausePoll is how often a paused loop checks for a new run state.
const pausePoll = 100 * time.Millisecond

// Engine drives a Simulation from a timer. Running ticks every Interval,
// Fast ticks FastFactor times as often; the cadence never changes what a
// tick does.
type Engine struct {
	Sim        *Simulation
	Interval   time.Duration // one game day at Running speed
	FastFactor float64

	// OnTick is called after every tick the loop drives.
	OnTick func(TickReport)

	running atomic.Bool
	cancel  atomic.Pointer[context.CancelFunc]
}

// NewEngine creates an engine with a one-second day and a 20x fast mode.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{
		Sim:        sim,
		Interval:   time.Second,
		FastFactor: 20,
	}
}

// Run ticks until ctx is cancelled, Stop is called or the game ends.
func (e *Engine) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.cancel.Store(&cancel)
	e.running.Store(true)
	defer e.running.Store(false)

	slog.Info("simulation engine started", "date", e.Sim.Date(), "state", e.Sim.RunState())

	for {
		state := e.Sim.RunState()
		if state == clock.Ended {
			slog.Info("simulation ended", "date", e.Sim.Date())
			return
		}
		if state == clock.Paused {
			if !sleep(ctx, pausePoll) {
				break
			}
			continue
		}

		start := time.Now()
		report, err := e.Sim.Tick()
		if err == nil && e.OnTick != nil {
			e.OnTick(report)
		}

		if !sleep(ctx, e.delay(state)-time.Since(start)) {
			break
		}
	}

	slog.Info("simulation engine stopped", "date", e.Sim.Date())
}

// Stop halts a running loop.
func (e *Engine) Stop() {
	if c := e.cancel.Load(); c != nil {
		(*c)()
	}
}

// Running reports whether Run is active.
func (e *Engine) Running() bool { return e.running.Load() }

func (e *Engine) delay(state clock.RunState) time.Duration {
	if state == clock.Fast && e.FastFactor > 0 {
		return time.Duration(float64(e.Interval) / e.FastFactor)
	}
	return e.Interval
}

// sleep waits d or until ctx is done. It reports false when cancelled.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
