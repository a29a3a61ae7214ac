package economy

import "math"

// Params are the numeric knobs shared by every item in a market.
type Params struct {
	// Elasticity is the per-unit log return at zero price pressure.
	Elasticity float64
	// Depth is the price-stock magnitude at which returns start to diminish.
	Depth float64

	Spread   float64 // fraction added to buys and taken from sells
	TaxRate  float64 // fraction of the gross charged on every trade
	MinPrice float64 // floor, always > 0
	MaxPrice float64 // ceiling, 0 = none

	MaxBatch     int   // largest quantity accepted per trade
	StockEnabled bool  // gate buys on inventory
	StockCap     int64 // inventory ceiling, 0 = none

	Decimals  int32   // currency precision for trade receipts
	NoiseStep float64 // noise-space distance travelled per application
}

// DefaultParams returns the parameters used when configuration is silent.
func DefaultParams() Params {
	return Params{
		Elasticity: 0.01,
		Depth:      256,
		Spread:     0.025,
		TaxRate:    0.01,
		MinPrice:   0.001,
		MaxBatch:   64,
		Decimals:   2,
		NoiseStep:  0.05,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.Elasticity <= 0 {
		p.Elasticity = d.Elasticity
	}
	if p.Depth <= 0 {
		p.Depth = d.Depth
	}
	if !(p.MinPrice > 0) || math.IsInf(p.MinPrice, 0) {
		p.MinPrice = d.MinPrice
	}
	if p.MaxPrice > 0 && p.MaxPrice < p.MinPrice {
		p.MaxPrice = p.MinPrice
	}
	if p.MaxBatch <= 0 {
		p.MaxBatch = d.MaxBatch
	}
	if p.NoiseStep <= 0 {
		p.NoiseStep = d.NoiseStep
	}
	return p
}
