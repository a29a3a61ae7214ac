package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesperreaultdev/Nascraft/internal/economy"
	"github.com/jamesperreaultdev/Nascraft/internal/entropy"
)

// Restocker replenishes each market on its own randomized timer. Every
// schedule carries a generation; stopping a market bumps it, and a timer
// that fires with a stale generation does nothing.
type Restocker struct {
	rand   entropy.Source
	minute time.Duration // wall-clock length of one simulated minute
	freeze bool          // skip halted markets
	notify func(m *economy.Market, units int64)

	mu     sync.Mutex
	gen    uint64
	timers map[string]*restockTimer
}

type restockTimer struct {
	gen    uint64
	market *economy.Market
	timer  *time.Timer
}

// NewRestocker returns a restocker drawing delays from src. notify, if
// non-nil, is called after each restock that added units.
func NewRestocker(src entropy.Source, minute time.Duration, freezeWhenHalted bool, notify func(m *economy.Market, units int64)) *Restocker {
	if minute <= 0 {
		minute = time.Minute
	}
	return &Restocker{
		rand:   src,
		minute: minute,
		freeze: freezeWhenHalted,
		notify: notify,
		timers: make(map[string]*restockTimer),
	}
}

// Start schedules the first restock of m, replacing any earlier schedule
// for the same id.
func (r *Restocker) Start(m *economy.Market) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked(m.ID())
	r.gen++
	r.scheduleLocked(&restockTimer{gen: r.gen, market: m})
}

// Stop cancels the schedule for id.
func (r *Restocker) Stop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked(id)
}

// StopAll cancels every schedule.
func (r *Restocker) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.timers {
		r.stopLocked(id)
	}
}

// Scheduled reports whether id has a live schedule.
func (r *Restocker) Scheduled(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[id]
	return ok
}

func (r *Restocker) stopLocked(id string) {
	if t, ok := r.timers[id]; ok {
		t.timer.Stop()
		delete(r.timers, id)
	}
}

func (r *Restocker) scheduleLocked(t *restockTimer) {
	lo, hi := t.market.RestockWindow()
	minutes := entropy.Between(r.rand, lo, hi)
	delay := time.Duration(minutes) * r.minute
	t.timer = time.AfterFunc(delay, func() { r.fire(t) })
	r.timers[t.market.ID()] = t
	slog.Debug("restock scheduled", "market", t.market.ID(), "minutes", minutes)
}

func (r *Restocker) current(t *restockTimer) bool {
	cur, ok := r.timers[t.market.ID()]
	return ok && cur.gen == t.gen
}

func (r *Restocker) fire(t *restockTimer) {
	r.mu.Lock()
	live := r.current(t) && !t.market.Closed()
	r.mu.Unlock()
	if !live {
		return
	}

	m := t.market
	if r.freeze && !m.Active() {
		slog.Debug("restock skipped, market halted", "market", m.ID())
	} else if units := m.Restock(); units > 0 {
		slog.Info("market restocked", "market", m.ID(), "units", humanize.Comma(units))
		if r.notify != nil {
			r.notify(m, units)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current(t) && !m.Closed() {
		r.scheduleLocked(t)
	}
}
