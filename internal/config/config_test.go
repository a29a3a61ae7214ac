package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "config.toml", `
[log]
level = "debug"

[market]
spread = 0
max_batch = 32
stock_enabled = true
decimals = 0

[defaults]
restock_min = 10
restock_max = 20

[noise]
enabled = true
period = "30s"

[persistence]
flush_interval = "2m"

[[categories]]
id = "ores"
name = "Ores"

[[items]]
identifier = "iron_ingot"
category = "ores"
initial_price = 12.5
include_in_cpi = false

[[items]]
identifier = "iron_block"
parent = "iron_ingot"
category = "ores"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level.String() != "DEBUG" {
		t.Errorf("log level = %v", cfg.Log.Level)
	}
	p := cfg.Params()
	if p.Spread != 0 {
		t.Errorf("explicit zero spread replaced with %v", p.Spread)
	}
	if p.MaxBatch != 32 || !p.StockEnabled || p.Decimals != 0 {
		t.Errorf("Params() = %+v", p)
	}
	if cfg.Noise.Period.Duration != 30*time.Second || cfg.Persistence.FlushInterval.Duration != 2*time.Minute {
		t.Errorf("durations = %v, %v", cfg.Noise.Period, cfg.Persistence.FlushInterval)
	}
	if d := cfg.EconomyDefaults(); d.RestockMin != 10 || d.RestockMax != 20 || d.InitialPrice != 1 {
		t.Errorf("EconomyDefaults() = %+v", d)
	}

	defs := cfg.ItemDefs()
	if len(defs) != 2 {
		t.Fatalf("ItemDefs() len = %d", len(defs))
	}
	if v, ok := defs[0].InitialPrice.Get(); !ok || v != 12.5 || defs[0].IncludeInCPI {
		t.Errorf("parent def = %+v", defs[0])
	}
	if defs[1].Parent != "iron_ingot" || !defs[1].IncludeInCPI || defs[1].InitialPrice.IsSet() {
		t.Errorf("child def = %+v", defs[1])
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	p := cfg.Params()
	if p.MaxBatch != 64 || p.Spread <= 0 || p.Decimals != 2 {
		t.Errorf("Params() = %+v", p)
	}
	if !cfg.RestockEnabled() {
		t.Error("restock disabled by default")
	}
	if cfg.Defaults.RestockMax < cfg.Defaults.RestockMin {
		t.Errorf("restock window [%d, %d]", cfg.Defaults.RestockMin, cfg.Defaults.RestockMax)
	}
}

func TestLoadRestockAmount(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int64
	}{
		{name: "unset", body: "[defaults]\nrestock_min = 5\n", want: 16},
		{name: "explicit zero", body: "[defaults]\nrestock_amount = 0\n", want: 0},
		{name: "explicit", body: "[defaults]\nrestock_amount = 40\n", want: 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, "config.toml", tt.body))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if got := cfg.EconomyDefaults().RestockAmount; got != tt.want {
				t.Errorf("RestockAmount = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "spread out of range",
			body: "[market]\nspread = 1.5\n",
			want: "market.spread",
		},
		{
			name: "duplicate item",
			body: "[[items]]\nidentifier = \"a\"\n[[items]]\nidentifier = \"a\"\n",
			want: "duplicate identifier",
		},
		{
			name: "child before parent",
			body: "[[items]]\nidentifier = \"b\"\nparent = \"a\"\n[[items]]\nidentifier = \"a\"\n",
			want: "must be listed before",
		},
		{
			name: "nan initial price",
			body: "[[items]]\nidentifier = \"iron\"\ninitial_price = nan\n",
			want: "initial_price",
		},
		{
			name: "infinite initial price",
			body: "[[items]]\nidentifier = \"iron\"\ninitial_price = inf\n",
			want: "initial_price",
		},
		{
			name: "bad duration",
			body: "[noise]\nperiod = \"soon\"\n",
			want: "decode",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.toml", tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestMarketsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "markets.toml")

	f, err := LoadMarkets(path)
	if err != nil {
		t.Fatalf("LoadMarkets(missing) error = %v", err)
	}
	if len(f.Markets) != 0 {
		t.Fatalf("missing file produced %d markets", len(f.Markets))
	}

	amount, lo := int64(5), 10
	f.Markets["spawn"] = MarketDef{
		DisplayName:   "Spawn",
		Items:         []string{"stone"},
		RestockAmount: &amount,
		RestockMin:    &lo,
		Prices:        map[string]float64{"Stone": 3},
	}
	f.Markets["default"] = MarketDef{DisplayName: "Default"}
	f.NPCs["trader_1"] = "spawn"
	if err := f.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := LoadMarkets(path)
	if err != nil {
		t.Fatal(err)
	}
	if ids := got.IDs(); len(ids) != 2 || ids[0] != "default" || ids[1] != "spawn" {
		t.Errorf("IDs() = %v", ids)
	}
	if got.NPCs["trader_1"] != "spawn" {
		t.Errorf("NPCs = %v", got.NPCs)
	}

	spawn := got.Markets["spawn"]
	if !spawn.Trades("STONE") || spawn.Trades("dirt") {
		t.Error("Trades() does not follow the item list")
	}
	if !got.Markets["default"].Trades("anything") {
		t.Error("empty item list should trade everything")
	}

	o := spawn.Overrides()
	if v, ok := o.Price("stone").Get(); !ok || v != 3 {
		t.Errorf("Price(stone) = %v, %v", v, ok)
	}
	if v, ok := o.RestockAmount.Get(); !ok || v != 5 {
		t.Errorf("RestockAmount = %v, %v", v, ok)
	}
	if o.RestockMax.IsSet() {
		t.Error("unset restock_max became set")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("NASCRAFT_DB_DRIVER", "postgres")
	t.Setenv("NASCRAFT_API_PORT", "9090")
	t.Setenv("NASCRAFT_WATCH_INTERVAL", "15s")

	env, err := LoadEnv()
	if err != nil {
		t.Fatal(err)
	}
	if env.DBDriver != "postgres" || env.APIPort != 9090 || env.ConfigPath != "config.toml" {
		t.Errorf("LoadEnv() = %+v", env)
	}

	w, err := LoadWatchEnv()
	if err != nil {
		t.Fatal(err)
	}
	if w.Interval != 15*time.Second || w.Threshold != 25 {
		t.Errorf("LoadWatchEnv() = %+v", w)
	}
}

func TestLoadMarketsRejectsBadPrices(t *testing.T) {
	for _, v := range []string{"nan", "inf", "-inf", "0", "-2"} {
		t.Run(v, func(t *testing.T) {
			body := "[markets.spawn]\ndisplay_name = \"Spawn\"\n[markets.spawn.prices]\niron = " + v + "\n"
			_, err := LoadMarkets(writeFile(t, "markets.toml", body))
			if err == nil || !strings.Contains(err.Error(), "price for iron") {
				t.Errorf("LoadMarkets() error = %v, want a price error", err)
			}
		})
	}
}
