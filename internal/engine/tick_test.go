package engine

import (
	"context"
	"testing"
	"time"
)

func TestEngine_StepLayers(t *testing.T) {
	e := NewEngine()
	var ticks, hours, days int
	e.OnTick = func(context.Context, uint64) { ticks++ }
	e.OnHour = func(context.Context, uint64) { hours++ }
	e.OnDay = func(context.Context, uint64) { days++ }

	for i := 0; i < TicksPerDay; i++ {
		e.Step(context.Background())
	}
	if ticks != TicksPerDay || hours != 24 || days != 1 {
		t.Errorf("ticks=%d hours=%d days=%d", ticks, hours, days)
	}
	if e.Tick() != TicksPerDay {
		t.Errorf("Tick() = %d", e.Tick())
	}
}

func TestEngine_ResumesFromTick(t *testing.T) {
	e := NewEngine()
	e.SetTick(59)
	var hour uint64
	e.OnHour = func(_ context.Context, tick uint64) { hour = tick }
	e.Step(context.Background())
	if hour != 60 {
		t.Errorf("OnHour tick = %d, want 60", hour)
	}
}

func TestEngine_Run(t *testing.T) {
	tests := []struct {
		name string
		stop func(e *Engine, cancel context.CancelFunc)
	}{
		{name: "context cancelled", stop: func(_ *Engine, cancel context.CancelFunc) { cancel() }},
		{name: "stopped", stop: func(e *Engine, _ context.CancelFunc) { e.Stop(); e.Stop() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine()
			e.Interval = time.Millisecond
			ticked := make(chan struct{}, 1)
			e.OnTick = func(context.Context, uint64) {
				select {
				case ticked <- struct{}{}:
				default:
				}
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			done := make(chan error, 1)
			go func() { done <- e.Run(ctx) }()

			select {
			case <-ticked:
			case <-time.After(2 * time.Second):
				t.Fatal("no tick within 2s")
			}
			tt.stop(e, cancel)

			select {
			case err := <-done:
				if err != nil {
					t.Errorf("Run() = %v", err)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("Run() did not return")
			}
			if e.Running() {
				t.Error("Running() after Run returned")
			}
		})
	}
}

func TestSimTime(t *testing.T) {
	tests := []struct {
		tick uint64
		want string
	}{
		{0, "Day 1, 0:00"},
		{61, "Day 1, 1:01"},
		{TicksPerDay + 1, "Day 2, 0:01"},
	}
	for _, tt := range tests {
		if got := SimTime(tt.tick); got != tt.want {
			t.Errorf("SimTime(%d) = %q, want %q", tt.tick, got, tt.want)
		}
	}
}
