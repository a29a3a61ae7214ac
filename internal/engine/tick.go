// Package engine runs markets on a clock: minute, hour and day ticks,
// price noise, restocks and periodic persistence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// TickSchedule defines when each layer runs relative to the tick counter.
const (
	TicksPerHour = 60   // one tick per minute
	TicksPerDay  = 1440 // 24 hours × 60
)

// Engine drives the clock forward.
type Engine struct {
	Speed        float64       // Multiplier: 1.0 = real-time, 0 = paused
	Interval     time.Duration // Base tick interval (one minute)
	AlignToClock bool          // Delay the first tick to the next wall-clock minute

	// Callbacks for each tick layer, populated during setup.
	OnTick func(ctx context.Context, tick uint64) // Every tick
	OnHour func(ctx context.Context, tick uint64) // Every 60 ticks
	OnDay  func(ctx context.Context, tick uint64) // Every 1440 ticks

	tick     atomic.Uint64
	running  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
}

// NewEngine creates a clock with one-minute ticks at real-time speed.
func NewEngine() *Engine {
	return &Engine{
		Speed:    1.0,
		Interval: time.Minute,
		stop:     make(chan struct{}),
	}
}

// Tick returns the most recently processed tick.
func (e *Engine) Tick() uint64 { return e.tick.Load() }

// SetTick resumes the counter from a persisted value. Call before Run.
func (e *Engine) SetTick(t uint64) { e.tick.Store(t) }

// Running reports whether Run is active.
func (e *Engine) Running() bool { return e.running.Load() }

// Run starts the loop. Blocks until ctx is done or Stop is called.
func (e *Engine) Run(ctx context.Context) error {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("market clock started", "tick", e.Tick(), "speed", e.Speed, "interval", e.Interval)

	if e.AlignToClock {
		now := time.Now()
		if !e.wait(ctx, now.Truncate(time.Minute).Add(time.Minute).Sub(now)) {
			return e.stopped(ctx)
		}
	}

	for {
		if e.Speed <= 0 {
			// Paused: check again shortly.
			if !e.wait(ctx, 100*time.Millisecond) {
				return e.stopped(ctx)
			}
			continue
		}

		start := time.Now()
		e.Step(ctx)

		// Sleep for the remainder of the tick interval, adjusted for speed.
		target := time.Duration(float64(e.Interval) / e.Speed)
		if elapsed := time.Since(start); elapsed < target {
			if !e.wait(ctx, target-elapsed) {
				return e.stopped(ctx)
			}
		} else {
			slog.Warn("tick overran interval", "tick", e.Tick(), "elapsed", elapsed, "target", target)
			select {
			case <-ctx.Done():
				return e.stopped(ctx)
			case <-e.stop:
				return e.stopped(ctx)
			default:
			}
		}
	}
}

func (e *Engine) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-e.stop:
		return false
	}
}

func (e *Engine) stopped(ctx context.Context) error {
	slog.Info("market clock stopped", "tick", e.Tick())
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Stop halts the loop. Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}

// Step advances the clock by one tick.
func (e *Engine) Step(ctx context.Context) {
	tick := e.tick.Add(1)

	if e.OnTick != nil {
		e.OnTick(ctx, tick)
	}
	if tick%TicksPerHour == 0 && e.OnHour != nil {
		e.OnHour(ctx, tick)
	}
	if tick%TicksPerDay == 0 && e.OnDay != nil {
		e.OnDay(ctx, tick)
	}
}

// SimTime returns a human-readable time string from a tick number.
func SimTime(tick uint64) string {
	minutes := tick % 60
	hours := (tick / 60) % 24
	days := tick/TicksPerDay + 1
	return fmt.Sprintf("Day %d, %d:%02d", days, hours, minutes)
}
