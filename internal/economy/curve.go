package economy

import "math"

// Direction of a trade from the trader's point of view.
type Direction int

const (
	Buy Direction = iota
	Sell
)

func (d Direction) String() string {
	if d == Sell {
		return "sell"
	}
	return "buy"
}

// Window capacities. The short-term window is sampled once per minute, so
// its oldest slot is the value an hour ago; the daily window is sampled once
// per hour. Changing either cadence requires changing the capacity with it.
const (
	ShortTermSamples = 60
	DailySamples     = 24
)

// Curve is the per-item price model:
//
//	value = anchor · exp(−k·D·asinh(priceStock / D))
//
// Buying one unit lowers priceStock by one, selling raises it by one. The log
// return of one unit is k / sqrt(1 + (priceStock/D)²), so pressure in either
// direction has diminishing effect. Noise moves the anchor only. Curve is not
// safe for concurrent use; Item holds the lock.
type Curve struct {
	params Params

	anchor  float64
	value   float64
	initial float64

	low, high         float64
	hourLow, hourHigh float64

	priceStock float64

	shortTerm *Window
	daily     *Window

	noise *NoiseSource
}

// NewCurve returns a curve at initial with zero price pressure.
func NewCurve(initial float64, p Params, noise *NoiseSource) *Curve {
	p = p.withDefaults()
	if !(initial >= p.MinPrice) || math.IsInf(initial, 0) {
		initial = p.MinPrice
	}
	if p.MaxPrice > 0 && initial > p.MaxPrice {
		initial = p.MaxPrice
	}
	return &Curve{
		params:    p,
		anchor:    initial,
		value:     initial,
		initial:   initial,
		low:       initial,
		high:      initial,
		hourLow:   initial,
		hourHigh:  initial,
		shortTerm: NewWindow(ShortTermSamples, initial),
		daily:     NewWindow(DailySamples, initial),
		noise:     noise,
	}
}

func (c *Curve) Value() float64          { return c.value }
func (c *Curve) Initial() float64        { return c.initial }
func (c *Curve) HistoricalLow() float64  { return c.low }
func (c *Curve) HistoricalHigh() float64 { return c.high }
func (c *Curve) HourLow() float64        { return c.hourLow }
func (c *Curve) HourHigh() float64       { return c.hourHigh }
func (c *Curve) PriceStock() float64     { return c.priceStock }

// BuyPrice is the quote a buyer pays per unit at the current value.
func (c *Curve) BuyPrice() float64 {
	return c.value * (1 + c.params.Spread)
}

// SellPrice is the quote a seller receives per unit at the current value.
func (c *Curve) SellPrice() float64 {
	return c.value * (1 - c.params.Spread)
}

func (c *Curve) shape(stock float64) float64 {
	d := c.params.Depth
	return math.Exp(-c.params.Elasticity * d * math.Asinh(stock/d))
}

// settle recomputes value from anchor and priceStock. When the result falls
// outside the price band the value is pinned to the bound and the anchor is
// rebased, so pressure in the other direction moves the price immediately.
func (c *Curve) settle() {
	s := c.shape(c.priceStock)
	v := c.anchor * s
	if v < c.params.MinPrice {
		v = c.params.MinPrice
		c.anchor = v / s
	}
	if c.params.MaxPrice > 0 && v > c.params.MaxPrice {
		v = c.params.MaxPrice
		c.anchor = v / s
	}
	c.value = v
	c.track()
}

func (c *Curve) track() {
	if c.value < c.low {
		c.low = c.value
	}
	if c.value > c.high {
		c.high = c.value
	}
	if c.value < c.hourLow {
		c.hourLow = c.value
	}
	if c.value > c.hourHigh {
		c.hourHigh = c.value
	}
}

// ApplyTrade moves the curve by qty units in direction dir and returns the
// new value.
func (c *Curve) ApplyTrade(dir Direction, qty int) float64 {
	c.trade(dir, qty)
	return c.value
}

// trade walks the curve one unit at a time and returns the settlement
// value of the whole batch, each unit priced at the midpoint of the value
// before and after it.
func (c *Curve) trade(dir Direction, qty int) float64 {
	step := -1.0
	if dir == Sell {
		step = 1
	}
	var total float64
	for i := 0; i < qty; i++ {
		before := c.value
		c.priceStock += step
		c.settle()
		total += (before + c.value) / 2
	}
	return total
}

// ApplyNoise perturbs the value by at most magnitude (a fraction of the
// current value) in either direction. It returns the change applied.
func (c *Curve) ApplyNoise(magnitude float64) float64 {
	if magnitude <= 0 || c.noise == nil {
		return 0
	}
	if magnitude >= 1 {
		magnitude = 0.99
	}
	before := c.value
	c.anchor *= 1 + magnitude*c.noise.Next()
	c.settle()
	return c.value - before
}

// SampleShortTerm pushes the current value onto the minute window.
func (c *Curve) SampleShortTerm() {
	c.shortTerm.Push(c.value)
}

// SampleDaily pushes the current value onto the hourly window.
func (c *Curve) SampleDaily() {
	c.daily.Push(c.value)
}

// ValueAnHourAgo returns the oldest minute sample.
func (c *Curve) ValueAnHourAgo() float64 {
	return c.shortTerm.Oldest()
}

// ValueADayAgo returns the oldest hourly sample.
func (c *Curve) ValueADayAgo() float64 {
	return c.daily.Oldest()
}

// ShortTerm returns the minute samples, oldest first.
func (c *Curve) ShortTerm() []float64 {
	return c.shortTerm.Values()
}

// ChangeLastHour is the percentage change against the value an hour ago.
func (c *Curve) ChangeLastHour() float64 {
	return percentChange(c.ValueAnHourAgo(), c.value)
}

// ChangeLastDay is the percentage change against the value a day ago.
func (c *Curve) ChangeLastDay() float64 {
	return percentChange(c.ValueADayAgo(), c.value)
}

// RestartHourLimits resets the intraday range to the current value.
func (c *Curve) RestartHourLimits() {
	c.hourLow = c.value
	c.hourHigh = c.value
}

// restore loads persisted state. The anchor is derived so that the restored
// value and price stock agree; both windows restart at the restored value.
func (c *Curve) restore(value, low, high, priceStock float64) {
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return
	}
	c.priceStock = priceStock
	c.value = value
	c.anchor = value / c.shape(priceStock)
	c.low = math.Min(low, value)
	if c.low <= 0 {
		c.low = value
	}
	c.high = math.Max(high, value)
	c.hourLow, c.hourHigh = value, value
	c.shortTerm.Fill(value)
	c.daily.Fill(value)
}

func percentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to/from - 1) * 100
}
