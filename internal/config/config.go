// Package config loads the simulation configuration, the markets file and
// process environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jamesperreaultdev/Nascraft/internal/economy"
)

// Duration is a time.Duration written as a string ("90s", "5m") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the contents of config.toml.
type Config struct {
	Log         LogConfig         `toml:"log"`
	Clock       ClockConfig       `toml:"clock"`
	Market      MarketConfig      `toml:"market"`
	Defaults    DefaultsConfig    `toml:"defaults"`
	Noise       NoiseConfig       `toml:"noise"`
	Persistence PersistenceConfig `toml:"persistence"`
	Entropy     EntropyConfig     `toml:"entropy"`
	Categories  []CategoryConfig  `toml:"categories"`
	Items       []ItemConfig      `toml:"items"`
}

type LogConfig struct {
	Level  slog.Level `toml:"level"`
	Format string     `toml:"format"` // "text" or "json"
}

type ClockConfig struct {
	Interval     Duration `toml:"interval"` // one tick, one simulated minute
	Speed        float64  `toml:"speed"`
	AlignToClock bool     `toml:"align_to_clock"`
	Workers      int      `toml:"workers"` // markets processed at once per tick
}

type MarketConfig struct {
	Currency         string   `toml:"currency"`
	Elasticity       float64  `toml:"elasticity"`
	Depth            float64  `toml:"depth"`
	Spread           *float64 `toml:"spread"`
	TaxRate          *float64 `toml:"tax_rate"`
	MinPrice         float64  `toml:"min_price"`
	MaxPrice         float64  `toml:"max_price"`
	MaxBatch         int      `toml:"max_batch"`
	StockEnabled     bool     `toml:"stock_enabled"`
	StockCap         int64    `toml:"stock_cap"`
	Decimals         *int32   `toml:"decimals"`
	FreezeWhenHalted bool     `toml:"freeze_when_halted"`
}

type DefaultsConfig struct {
	InitialPrice   float64 `toml:"initial_price"`
	StartingStock  int64   `toml:"starting_stock"`
	RestockEnabled *bool   `toml:"restock_enabled"`
	RestockAmount  *int64  `toml:"restock_amount"` // nil selects 16; 0 disables top-ups
	RestockMin     int     `toml:"restock_min"`    // minutes
	RestockMax     int     `toml:"restock_max"`    // minutes
}

type NoiseConfig struct {
	Enabled   bool     `toml:"enabled"`
	Magnitude float64  `toml:"magnitude"` // largest move per application, fraction of value
	Period    Duration `toml:"period"`
	Step      float64  `toml:"step"`
}

type PersistenceConfig struct {
	FlushInterval Duration `toml:"flush_interval"`
	MaxRetries    int      `toml:"max_retries"`
	BaseDelay     Duration `toml:"base_delay"`
	QueueSize     int      `toml:"queue_size"`
	Retention     Duration `toml:"retention"` // archived samples older than this are purged daily
	SeriesLength  int      `toml:"series_length"`
}

type EntropyConfig struct {
	Seed         int64  `toml:"seed"` // 0 = crypto-backed
	RandomOrgKey string `toml:"random_org_key"`
}

type CategoryConfig struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

type ItemConfig struct {
	Identifier    string   `toml:"identifier"`
	Alias         string   `toml:"alias"`
	Category      string   `toml:"category"`
	Currency      string   `toml:"currency"`
	Parent        string   `toml:"parent"`
	IncludeInCPI  *bool    `toml:"include_in_cpi"`
	InitialPrice  *float64 `toml:"initial_price"`
	StartingStock *int64   `toml:"starting_stock"`
	RestockAmount *int64   `toml:"restock_amount"`
}

// Load reads a TOML config file and fills unset values with defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	p := economy.DefaultParams()

	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Clock.Interval.Duration <= 0 {
		c.Clock.Interval.Duration = time.Minute
	}
	if c.Clock.Speed <= 0 {
		c.Clock.Speed = 1
	}
	if c.Clock.Workers <= 0 {
		c.Clock.Workers = 4
	}

	m := &c.Market
	if m.Currency == "" {
		m.Currency = "coins"
	}
	if m.Elasticity <= 0 {
		m.Elasticity = p.Elasticity
	}
	if m.Depth <= 0 {
		m.Depth = p.Depth
	}
	if m.Spread == nil {
		m.Spread = &p.Spread
	}
	if m.TaxRate == nil {
		m.TaxRate = &p.TaxRate
	}
	if m.MinPrice <= 0 {
		m.MinPrice = p.MinPrice
	}
	if m.MaxBatch <= 0 {
		m.MaxBatch = p.MaxBatch
	}
	if m.Decimals == nil {
		d := p.Decimals
		m.Decimals = &d
	}

	d := &c.Defaults
	if !ValidPrice(d.InitialPrice) {
		d.InitialPrice = 1
	}
	if d.RestockEnabled == nil {
		on := true
		d.RestockEnabled = &on
	}
	if d.RestockAmount == nil || *d.RestockAmount < 0 {
		amount := int64(16)
		d.RestockAmount = &amount
	}
	if d.RestockMin <= 0 {
		d.RestockMin = 30
	}
	if d.RestockMax < d.RestockMin {
		d.RestockMax = max(d.RestockMin, 90)
	}

	if c.Noise.Magnitude <= 0 {
		c.Noise.Magnitude = 0.01
	}
	if c.Noise.Period.Duration <= 0 {
		c.Noise.Period.Duration = time.Minute
	}
	if c.Noise.Step <= 0 {
		c.Noise.Step = p.NoiseStep
	}

	ps := &c.Persistence
	if ps.FlushInterval.Duration <= 0 {
		ps.FlushInterval.Duration = 5 * time.Minute
	}
	if ps.MaxRetries <= 0 {
		ps.MaxRetries = 3
	}
	if ps.BaseDelay.Duration <= 0 {
		ps.BaseDelay.Duration = 50 * time.Millisecond
	}
	if ps.QueueSize <= 0 {
		ps.QueueSize = 4096
	}
	if ps.Retention.Duration <= 0 {
		ps.Retention.Duration = 30 * 24 * time.Hour
	}
	if ps.SeriesLength <= 0 {
		ps.SeriesLength = 1440
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if s := *c.Market.Spread; s < 0 || s >= 1 {
		errs = append(errs, fmt.Errorf("market.spread must be in [0, 1), got %v", s))
	}
	if t := *c.Market.TaxRate; t < 0 || t >= 1 {
		errs = append(errs, fmt.Errorf("market.tax_rate must be in [0, 1), got %v", t))
	}
	if c.Market.MaxPrice != 0 && c.Market.MaxPrice < c.Market.MinPrice {
		errs = append(errs, fmt.Errorf("market.max_price %v below min_price %v", c.Market.MaxPrice, c.Market.MinPrice))
	}
	if c.Noise.Magnitude >= 1 {
		errs = append(errs, fmt.Errorf("noise.magnitude must be below 1, got %v", c.Noise.Magnitude))
	}

	seen := make(map[string]bool, len(c.Items))
	for i, it := range c.Items {
		if it.Identifier == "" {
			errs = append(errs, fmt.Errorf("items[%d]: missing identifier", i))
			continue
		}
		if seen[it.Identifier] {
			errs = append(errs, fmt.Errorf("items[%d]: duplicate identifier %q", i, it.Identifier))
		}
		seen[it.Identifier] = true
		if it.Parent != "" && !seen[it.Parent] {
			errs = append(errs, fmt.Errorf("items[%d]: parent %q must be listed before %q", i, it.Parent, it.Identifier))
		}
		if it.InitialPrice != nil && !ValidPrice(*it.InitialPrice) {
			errs = append(errs, fmt.Errorf("items[%d]: initial_price must be a positive finite number", i))
		}
	}
	return errors.Join(errs...)
}

// ValidPrice reports whether v is usable as a price: positive and finite.
func ValidPrice(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Params returns the per-market pricing parameters.
func (c *Config) Params() economy.Params {
	m := c.Market
	return economy.Params{
		Elasticity:   m.Elasticity,
		Depth:        m.Depth,
		Spread:       *m.Spread,
		TaxRate:      *m.TaxRate,
		MinPrice:     m.MinPrice,
		MaxPrice:     m.MaxPrice,
		MaxBatch:     m.MaxBatch,
		StockEnabled: m.StockEnabled,
		StockCap:     m.StockCap,
		Decimals:     *m.Decimals,
		NoiseStep:    c.Noise.Step,
	}
}

// EconomyDefaults returns the global fallback layer of override resolution.
func (c *Config) EconomyDefaults() economy.Defaults {
	return economy.Defaults{
		InitialPrice:  c.Defaults.InitialPrice,
		StartingStock: c.Defaults.StartingStock,
		RestockAmount: *c.Defaults.RestockAmount,
		RestockMin:    c.Defaults.RestockMin,
		RestockMax:    c.Defaults.RestockMax,
	}
}

// RestockEnabled reports whether markets restock on a timer.
func (c *Config) RestockEnabled() bool {
	return c.Defaults.RestockEnabled == nil || *c.Defaults.RestockEnabled
}

// ItemDefs converts the configured items, parents first as listed.
func (c *Config) ItemDefs() []economy.ItemDef {
	defs := make([]economy.ItemDef, 0, len(c.Items))
	for _, it := range c.Items {
		defs = append(defs, it.Def())
	}
	return defs
}

// Def converts one item entry. Items are included in the CPI unless they
// opt out.
func (it ItemConfig) Def() economy.ItemDef {
	def := economy.ItemDef{
		Identifier:   it.Identifier,
		Alias:        it.Alias,
		Category:     it.Category,
		Currency:     it.Currency,
		Parent:       it.Parent,
		IncludeInCPI: it.IncludeInCPI == nil || *it.IncludeInCPI,
	}
	if it.InitialPrice != nil {
		def.InitialPrice = economy.Some(*it.InitialPrice)
	}
	if it.StartingStock != nil {
		def.StartingStock = economy.Some(*it.StartingStock)
	}
	if it.RestockAmount != nil {
		def.RestockAmount = economy.Some(*it.RestockAmount)
	}
	return def
}

// NewLogger builds the process logger described by the log section.
func (l LogConfig) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.Level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
