package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jamesperreaultdev/Nascraft/internal/config"
	"github.com/jamesperreaultdev/Nascraft/internal/economy"
)

// Build creates a market from its definition and the global item list,
// then hydrates every parent item from the store.
func (s *Simulation) Build(ctx context.Context, id string, def config.MarketDef) (*economy.Market, error) {
	currency := def.Currency
	if currency == "" {
		currency = s.Config.Market.Currency
	}

	m := economy.NewMarket(economy.MarketOptions{
		ID:          id,
		DisplayName: def.DisplayName,
		Currency:    currency,
		Params:      s.Config.Params(),
		Defaults:    s.Config.EconomyDefaults(),
		Overrides:   def.Overrides(),
		Noise:       s.noise,
		Flusher:     s.flusher,
	})

	for _, c := range s.Config.Categories {
		m.AddCategory(c.ID, c.Name)
	}
	for _, d := range s.Config.ItemDefs() {
		if !def.Trades(d.Identifier) {
			continue
		}
		if d.Category != "" {
			m.AddCategory(d.Category, "")
		}
		if _, err := m.AddItem(d); err != nil {
			slog.Warn("skipping item", "market", id, "item", d.Identifier, "error", err)
		}
	}

	if err := s.hydrate(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// hydrate restores persisted state. The default market falls back to the
// legacy single-market table. Items with no stored row are saved with
// their resolved starting values.
func (s *Simulation) hydrate(ctx context.Context, m *economy.Market) error {
	restored, migrated, fresh := 0, 0, 0
	for _, it := range m.ParentItems() {
		st, found, err := s.Store.LoadItem(ctx, m.ID(), it.Identifier())
		if err != nil {
			return fmt.Errorf("load %s/%s: %w", m.ID(), it.Identifier(), err)
		}
		if found {
			it.Restore(st)
			restored++
			continue
		}

		if m.ID() == config.DefaultMarketID {
			st, found, err = s.Store.LoadItem(ctx, "", it.Identifier())
			if err != nil {
				return fmt.Errorf("load legacy %s: %w", it.Identifier(), err)
			}
			if found {
				// Legacy rows carry no inventory.
				st.Units = it.Units()
				it.Restore(st)
				migrated++
			}
		}
		if !found {
			fresh++
		}

		if err := s.Store.SaveItem(ctx, m.ID(), it.Snapshot()); err != nil {
			return fmt.Errorf("save %s/%s: %w", m.ID(), it.Identifier(), err)
		}
	}
	slog.Debug("market hydrated", "market", m.ID(), "restored", restored, "migrated", migrated, "new", fresh)
	return nil
}
