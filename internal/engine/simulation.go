// Simulation ties markets, storage and schedulers together and runs them
// on the clock.
package engine

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/jamesperreaultdev/Nascraft/internal/config"
	"github.com/jamesperreaultdev/Nascraft/internal/economy"
	"github.com/jamesperreaultdev/Nascraft/internal/entropy"
	"github.com/jamesperreaultdev/Nascraft/internal/persistence"
	"github.com/jamesperreaultdev/Nascraft/internal/stats"
)

const maxEvents = 1000

// Simulation holds the running markets and the systems that act on them.
type Simulation struct {
	Config   *config.Config
	Registry *Registry
	Store    persistence.Store
	Stats    *stats.Collector
	Exec     *persistence.Executor
	Clock    *Engine
	Restock  *Restocker

	rand    entropy.Source
	noise   *economy.NoiseField
	flusher economy.Flusher
	now     func() time.Time
	started time.Time

	eventsMu sync.Mutex
	events   []Event
}

// Event is a notable occurrence in a market.
type Event struct {
	Tick        uint64    `json:"tick"`
	At          time.Time `json:"at"`
	Market      string    `json:"market"`
	Description string    `json:"description"`
	Category    string    `json:"category"` // "restock", "market", "admin"
}

// Options are the collaborators a Simulation cannot derive from config.
type Options struct {
	MarketsPath string
	Rand        entropy.Source   // nil selects one from the entropy section
	Now         func() time.Time // nil selects time.Now
}

// NewSimulation wires a simulation. Call Start before Run.
func NewSimulation(cfg *config.Config, store persistence.Store, opts Options) *Simulation {
	src := opts.Rand
	if src == nil {
		if cfg.Entropy.Seed != 0 {
			src = entropy.NewSeeded(uint64(cfg.Entropy.Seed))
		} else {
			src = entropy.FromKey(cfg.Entropy.RandomOrgKey)
		}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	exec := persistence.NewExecutor(persistence.ExecutorOptions{
		MaxAttempts: cfg.Persistence.MaxRetries,
		BaseDelay:   cfg.Persistence.BaseDelay.Duration,
		QueueSize:   cfg.Persistence.QueueSize,
	})

	s := &Simulation{
		Config:  cfg,
		Store:   store,
		Exec:    exec,
		Stats:   stats.NewCollector(store, stats.Options{SeriesCapacity: cfg.Persistence.SeriesLength}),
		rand:    src,
		noise:   economy.NewNoiseField(entropy.Seed(src)),
		flusher: persistence.NewItemFlusher(exec, store),
		now:     now,
		started: now(),
	}

	clock := NewEngine()
	clock.Interval = cfg.Clock.Interval.Duration
	clock.Speed = cfg.Clock.Speed
	clock.AlignToClock = cfg.Clock.AlignToClock
	clock.OnTick = s.TickMinute
	clock.OnHour = s.TickHour
	clock.OnDay = s.TickDay
	s.Clock = clock

	minute := time.Duration(float64(clock.Interval) / clock.Speed)
	s.Restock = NewRestocker(src, minute, cfg.Market.FreezeWhenHalted, s.restocked)
	s.Registry = NewRegistry(opts.MarketsPath, s, s)
	return s
}

// Start resumes the clock from storage and loads every market.
func (s *Simulation) Start(ctx context.Context) error {
	if v, err := s.Store.GetMeta(ctx, "last_tick"); err == nil {
		if t, err := strconv.ParseUint(v, 10, 64); err == nil {
			s.Clock.SetTick(t)
		}
	}
	if err := s.Registry.Init(ctx); err != nil {
		return err
	}
	slog.Info("simulation ready",
		"markets", s.Registry.Len(),
		"tick", s.Clock.Tick(),
		"sim_time", SimTime(s.Clock.Tick()),
	)
	return nil
}

// MarketAdded starts restocking a newly registered market.
func (s *Simulation) MarketAdded(m *economy.Market) {
	if s.Config.RestockEnabled() {
		s.Restock.Start(m)
	}
	s.AddEvent("market", m.ID(), "market opened: "+m.DisplayName())
}

// MarketRemoved stops a market's schedules. Its in-memory history is
// dropped unless a market with the same id replaced it.
func (s *Simulation) MarketRemoved(m *economy.Market) {
	s.Restock.Stop(m.ID())
	if !s.Registry.Exists(m.ID()) {
		s.Stats.Forget(m.ID())
		s.AddEvent("market", m.ID(), "market deleted")
	}
}

// SaveMarket writes every parent item of m to the store synchronously.
func (s *Simulation) SaveMarket(ctx context.Context, m *economy.Market) error {
	for _, it := range m.ParentItems() {
		if err := s.Store.SaveItem(ctx, m.ID(), it.Snapshot()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) restocked(m *economy.Market, units int64) {
	s.AddEvent("restock", m.ID(), "restocked "+strconv.FormatInt(units, 10)+" units")
}

// AddEvent records an event, keeping the most recent ones.
func (s *Simulation) AddEvent(category, market, desc string) {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	s.events = append(s.events, Event{
		Tick:        s.Clock.Tick(),
		At:          s.now(),
		Market:      market,
		Description: desc,
		Category:    category,
	})
	if len(s.events) > maxEvents {
		s.events = s.events[len(s.events)-maxEvents:]
	}
}

// Events returns up to n recent events, newest last.
func (s *Simulation) Events(n int) []Event {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	start := 0
	if n > 0 && len(s.events) > n {
		start = len(s.events) - n
	}
	out := make([]Event, len(s.events)-start)
	copy(out, s.events[start:])
	return out
}

// Status summarizes the running simulation.
type Status struct {
	Tick      uint64                    `json:"tick"`
	SimTime   string                    `json:"sim_time"`
	Running   bool                      `json:"running"`
	Speed     float64                   `json:"speed"`
	Markets   int                       `json:"markets"`
	Items     int                       `json:"items"`
	Uptime    string                    `json:"uptime"`
	Persisted persistence.ExecutorStats `json:"persistence"`
	Queued    int                       `json:"queued_writes"`
	Samples   int                       `json:"pending_samples"`
}

// Status returns a point-in-time summary.
func (s *Simulation) Status() Status {
	items := 0
	for _, m := range s.Registry.All() {
		items += len(m.Items())
	}
	tick := s.Clock.Tick()
	return Status{
		Tick:      tick,
		SimTime:   SimTime(tick),
		Running:   s.Clock.Running(),
		Speed:     s.Clock.Speed,
		Markets:   s.Registry.Len(),
		Items:     items,
		Uptime:    s.now().Sub(s.started).Round(time.Second).String(),
		Persisted: s.Exec.Stats(),
		Queued:    s.Exec.Pending(),
		Samples:   s.Stats.Pending(),
	}
}
