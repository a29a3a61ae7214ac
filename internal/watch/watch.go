package watch

import (
	"context"
	"log/slog"
	"time"
)

// Steward runs observe, decide and act cycles.
type Steward struct {
	Observer  *Observer
	Actor     *Actor
	Threshold float64 // percent
	DryRun    bool
}

// Cycle runs one observe → decide → act pass and returns the decisions
// taken. A failed halt is logged and does not stop the others.
func (s *Steward) Cycle(ctx context.Context) ([]Decision, error) {
	markets, err := s.Observer.Observe(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("observation complete", "markets", len(markets))

	decisions := Decide(markets, s.Threshold)
	if len(decisions) == 0 {
		slog.Info("steward cycle complete, markets calm")
		return nil, nil
	}

	for _, d := range decisions {
		if s.DryRun {
			slog.Info("would halt market", "market", d.Market, "rationale", d.Rationale)
			continue
		}
		if err := s.Actor.Halt(ctx, d.Market); err != nil {
			slog.Error("halt failed", "market", d.Market, "error", err)
			continue
		}
		slog.Warn("market halted", "market", d.Market, "rationale", d.Rationale)
	}
	return decisions, nil
}

// Run executes a cycle immediately and then every interval until ctx ends.
func (s *Steward) Run(ctx context.Context, interval time.Duration) {
	s.runCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Steward) runCycle(ctx context.Context) {
	if _, err := s.Cycle(ctx); err != nil {
		slog.Error("observation failed", "error", err)
	}
}
