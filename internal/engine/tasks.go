package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/jamesperreaultdev/Nascraft/internal/economy"
)

// Run drives the clock, the noise task and the flush task until ctx is
// done or the clock is stopped, then flushes everything once more.
func (s *Simulation) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return s.Clock.Run(ctx)
	})
	if s.Config.Noise.Enabled {
		g.Go(func() error {
			every(ctx, s.Config.Noise.Period.Duration, s.ApplyNoise)
			return nil
		})
	}
	g.Go(func() error {
		every(ctx, s.Config.Persistence.FlushInterval.Duration, s.FlushAll)
		return nil
	})
	return g.Wait()
}

func every(ctx context.Context, d time.Duration, fn func()) {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}

// Shutdown stops restocks, queues a final flush and drains the writer.
func (s *Simulation) Shutdown(ctx context.Context) error {
	s.Clock.Stop()
	s.Restock.StopAll()
	s.FlushAll()
	if err := s.Exec.Close(ctx); err != nil {
		return fmt.Errorf("drain persistence queue: %w", err)
	}
	slog.Info("simulation saved", "writes", s.Exec.Stats().Completed)
	return nil
}

// forEachMarket runs fn for every market, a bounded number at a time.
func (s *Simulation) forEachMarket(fn func(m *economy.Market)) {
	var g errgroup.Group
	g.SetLimit(s.Config.Clock.Workers)
	for _, m := range s.Registry.All() {
		g.Go(func() error {
			if !m.Closed() {
				fn(m)
			}
			return nil
		})
	}
	g.Wait()
}

// TickMinute runs every tick: decays operation counts, samples prices,
// archives an instant per item and updates each market's hourly change.
func (s *Simulation) TickMinute(ctx context.Context, tick uint64) {
	now := s.now()
	s.forEachMarket(func(m *economy.Market) {
		for _, it := range m.ParentItems() {
			it.LowerOperations()
			it.SampleShortTerm()
			s.Stats.Record(m.ID(), it.Identifier(), now, it.Value(), it.TakeVolume())
		}
		m.UpdateChange1h(m.Change1h())
	})
}

// TickHour resets hourly extrema and operation counts and samples the
// daily window.
func (s *Simulation) TickHour(ctx context.Context, tick uint64) {
	s.forEachMarket(func(m *economy.Market) {
		for _, it := range m.ParentItems() {
			it.RestartHourLimits()
			it.SampleDaily()
		}
		m.UpdateChange24h(m.Change24h())
		m.ResetOperations()
	})
	slog.Debug("hourly reset", "tick", tick, "time", SimTime(tick))
}

// TickDay purges old samples and logs the daily report.
func (s *Simulation) TickDay(ctx context.Context, tick uint64) {
	cutoff := s.now().Add(-s.Config.Persistence.Retention.Duration)
	s.Exec.Submit("purge-instants", func(ctx context.Context) error {
		n, err := s.Store.PurgeInstants(ctx, cutoff)
		if err == nil && n > 0 {
			slog.Info("purged archived samples", "rows", humanize.Comma(n), "before", cutoff.Format(time.DateOnly))
		}
		return err
	})
	s.report(tick)
}

func (s *Simulation) report(tick uint64) {
	counts := make(map[string]int)
	for _, e := range s.Events(0) {
		counts[e.Category]++
	}

	for _, m := range s.Registry.All() {
		var taxes float64
		var units int64
		for _, it := range m.ParentItems() {
			taxes += it.Taxes()
			units += it.Units()
		}
		top := m.MostTraded(1)
		leader := ""
		if len(top) > 0 {
			leader = top[0].Identifier
		}
		slog.Info("daily report",
			"tick", tick,
			"time", SimTime(tick),
			"market", m.ID(),
			"active", m.Active(),
			"items", len(m.Items()),
			"cpi", fmt.Sprintf("%.2f", m.ConsumerPriceIndex()),
			"change_24h", fmt.Sprintf("%+.2f%%", m.Change24h()),
			"taxes", humanize.CommafWithDigits(taxes, 2),
			"stock", humanize.Comma(units),
			"most_traded", leader,
		)
	}
	slog.Info("daily events",
		"restocks", counts["restock"],
		"market", counts["market"],
		"admin", counts["admin"],
		"writes", humanize.Comma(s.Exec.Stats().Completed),
	)
}

// ApplyNoise perturbs every parent item. Halted markets are skipped when
// freeze_when_halted is set.
func (s *Simulation) ApplyNoise() {
	mag := s.Config.Noise.Magnitude
	s.forEachMarket(func(m *economy.Market) {
		if s.Config.Market.FreezeWhenHalted && !m.Active() {
			return
		}
		for _, it := range m.ParentItems() {
			it.ApplyNoise(mag)
		}
	})
}

// FlushAll queues a save of every item, the pending samples, each market's
// CPI and the clock position.
func (s *Simulation) FlushAll() {
	now := s.now()
	for _, m := range s.Registry.All() {
		if m.Closed() {
			continue
		}
		m.ScheduleAll()
		id, cpi := m.ID(), m.ConsumerPriceIndex()
		s.Exec.Submit("cpi-"+id, func(ctx context.Context) error {
			return s.Store.SaveCPI(ctx, id, now, cpi)
		})
	}
	s.Exec.Submit("stats", s.Stats.Flush)
	tick := strconv.FormatUint(s.Clock.Tick(), 10)
	s.Exec.Submit("meta-last_tick", func(ctx context.Context) error {
		return s.Store.SaveMeta(ctx, "last_tick", tick)
	})
}
