package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/jamesperreaultdev/Nascraft/internal/economy"
)

// DefaultMarketID names the market synthesized when none are defined.
const DefaultMarketID = "default"

// MarketsFile is the contents of markets.toml: market definitions and NPC
// bindings.
type MarketsFile struct {
	Markets map[string]MarketDef `toml:"markets"`
	NPCs    map[string]string    `toml:"npcs,omitempty"` // npc id -> market id
}

// MarketDef defines one market. An empty Items list means the market trades
// every configured item.
type MarketDef struct {
	DisplayName   string             `toml:"display_name"`
	Currency      string             `toml:"currency,omitempty"`
	Items         []string           `toml:"items,omitempty"`
	RestockAmount *int64             `toml:"restock_amount,omitempty"`
	RestockMin    *int               `toml:"restock_min,omitempty"`
	RestockMax    *int               `toml:"restock_max,omitempty"`
	Prices        map[string]float64 `toml:"prices,omitempty"`
	Stocks        map[string]int64   `toml:"stocks,omitempty"`
}

// LoadMarkets reads path. A missing file yields an empty definition set.
func LoadMarkets(path string) (*MarketsFile, error) {
	f := &MarketsFile{}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		f.init()
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read markets file: %w", err)
	}
	if err := toml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	f.init()

	normalized := make(map[string]MarketDef, len(f.Markets))
	for id, def := range f.Markets {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			return nil, fmt.Errorf("%s: market with empty id", path)
		}
		for item, v := range def.Prices {
			if !ValidPrice(v) {
				return nil, fmt.Errorf("%s: market %s: price for %s must be a positive finite number", path, id, item)
			}
		}
		normalized[id] = def
	}
	f.Markets = normalized
	return f, nil
}

func (f *MarketsFile) init() {
	if f.Markets == nil {
		f.Markets = make(map[string]MarketDef)
	}
	if f.NPCs == nil {
		f.NPCs = make(map[string]string)
	}
}

// Save writes the file atomically.
func (f *MarketsFile) Save(path string) error {
	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode markets file: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write markets file: %w", err)
	}
	return os.Rename(tmp, path)
}

// IDs returns the market ids in sorted order.
func (f *MarketsFile) IDs() []string {
	ids := make([]string, 0, len(f.Markets))
	for id := range f.Markets {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Overrides returns the market layer of override resolution.
func (d MarketDef) Overrides() economy.Overrides {
	o := economy.Overrides{
		Prices: make(map[string]float64, len(d.Prices)),
		Stocks: make(map[string]int64, len(d.Stocks)),
	}
	for id, v := range d.Prices {
		o.Prices[strings.ToLower(id)] = v
	}
	for id, v := range d.Stocks {
		o.Stocks[strings.ToLower(id)] = v
	}
	if d.RestockAmount != nil {
		o.RestockAmount = economy.Some(*d.RestockAmount)
	}
	if d.RestockMin != nil {
		o.RestockMin = economy.Some(*d.RestockMin)
	}
	if d.RestockMax != nil {
		o.RestockMax = economy.Some(*d.RestockMax)
	}
	return o
}

// Trades reports whether the market carries identifier.
func (d MarketDef) Trades(identifier string) bool {
	if len(d.Items) == 0 {
		return true
	}
	for _, id := range d.Items {
		if strings.EqualFold(id, identifier) {
			return true
		}
	}
	return false
}
