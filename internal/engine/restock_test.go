package engine

import (
	"testing"
	"time"

	"github.com/jamesperreaultdev/Nascraft/internal/economy"
	"github.com/jamesperreaultdev/Nascraft/internal/entropy"
)

func restockMarket(t *testing.T) (*economy.Market, *economy.Item) {
	t.Helper()
	p := economy.DefaultParams()
	p.StockEnabled = true
	m := economy.NewMarket(economy.MarketOptions{
		ID:       "spawn",
		Params:   p,
		Defaults: economy.Defaults{InitialPrice: 1, RestockAmount: 5, RestockMin: 1, RestockMax: 1},
	})
	it, err := m.AddItem(economy.ItemDef{Identifier: "stone"})
	if err != nil {
		t.Fatal(err)
	}
	return m, it
}

func timerFor(r *Restocker, id string) *restockTimer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timers[id]
}

func TestRestocker_Fires(t *testing.T) {
	m, it := restockMarket(t)
	done := make(chan int64, 1)
	r := NewRestocker(entropy.NewSeeded(1), time.Millisecond, false, func(_ *economy.Market, units int64) {
		select {
		case done <- units:
		default:
		}
	})
	r.Start(m)
	defer r.StopAll()

	select {
	case units := <-done:
		if units != 5 {
			t.Errorf("restocked %d units, want 5", units)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no restock within 2s")
	}
	if it.Units() < 5 {
		t.Errorf("Units() = %d", it.Units())
	}
}

func TestRestocker_Liveness(t *testing.T) {
	tests := []struct {
		name      string
		freeze    bool
		prepare   func(r *Restocker, m *economy.Market) *restockTimer
		wantUnits int64
		wantLive  bool
	}{
		{
			name: "current generation restocks and reschedules",
			prepare: func(r *Restocker, m *economy.Market) *restockTimer {
				return timerFor(r, m.ID())
			},
			wantUnits: 5,
			wantLive:  true,
		},
		{
			name: "stale generation is ignored",
			prepare: func(r *Restocker, m *economy.Market) *restockTimer {
				old := timerFor(r, m.ID())
				r.Start(m)
				return old
			},
			wantUnits: 0,
			wantLive:  true,
		},
		{
			name: "closed market is skipped",
			prepare: func(r *Restocker, m *economy.Market) *restockTimer {
				m.Close()
				return timerFor(r, m.ID())
			},
			wantUnits: 0,
			wantLive:  true,
		},
		{
			name:   "halted market frozen",
			freeze: true,
			prepare: func(r *Restocker, m *economy.Market) *restockTimer {
				m.Halt()
				return timerFor(r, m.ID())
			},
			wantUnits: 0,
			wantLive:  true,
		},
		{
			name: "halted market restocks without freeze",
			prepare: func(r *Restocker, m *economy.Market) *restockTimer {
				m.Halt()
				return timerFor(r, m.ID())
			},
			wantUnits: 5,
			wantLive:  true,
		},
		{
			name: "stopped market is not rescheduled",
			prepare: func(r *Restocker, m *economy.Market) *restockTimer {
				cur := timerFor(r, m.ID())
				r.Stop(m.ID())
				return cur
			},
			wantUnits: 0,
			wantLive:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, it := restockMarket(t)
			r := NewRestocker(entropy.NewSeeded(1), time.Hour, tt.freeze, nil)
			r.Start(m)
			defer r.StopAll()

			r.fire(tt.prepare(r, m))

			if got := it.Units(); got != tt.wantUnits {
				t.Errorf("Units() = %d, want %d", got, tt.wantUnits)
			}
			if got := r.Scheduled(m.ID()); got != tt.wantLive {
				t.Errorf("Scheduled() = %v, want %v", got, tt.wantLive)
			}
		})
	}
}
