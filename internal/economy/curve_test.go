package economy

import (
	"math"
	"testing"
)

func checkBounds(t *testing.T, c *Curve) {
	t.Helper()
	if c.Value() <= 0 {
		t.Fatalf("value = %v, want > 0", c.Value())
	}
	if c.HistoricalLow() > c.Value() || c.Value() > c.HistoricalHigh() {
		t.Fatalf("low %v <= value %v <= high %v violated", c.HistoricalLow(), c.Value(), c.HistoricalHigh())
	}
	if c.HourLow() > c.Value() || c.Value() > c.HourHigh() {
		t.Fatalf("hour low %v <= value %v <= hour high %v violated", c.HourLow(), c.Value(), c.HourHigh())
	}
}

func TestCurve_ApplyTrade(t *testing.T) {
	tests := []struct {
		name  string
		dir   Direction
		qty   int
		above bool
		stock float64
	}{
		{name: "buy raises value", dir: Buy, qty: 5, above: true, stock: -5},
		{name: "sell lowers value", dir: Sell, qty: 5, above: false, stock: 5},
		{name: "single unit buy", dir: Buy, qty: 1, above: true, stock: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCurve(10, DefaultParams(), nil)
			got := c.ApplyTrade(tt.dir, tt.qty)
			if (got > 10) != tt.above {
				t.Errorf("ApplyTrade() = %v, want above 10: %v", got, tt.above)
			}
			if c.PriceStock() != tt.stock {
				t.Errorf("PriceStock() = %v, want %v", c.PriceStock(), tt.stock)
			}
			checkBounds(t, c)
		})
	}
}

func TestCurve_DiminishingReturns(t *testing.T) {
	c := NewCurve(10, DefaultParams(), nil)
	var prevStep float64
	for i := 0; i < 2000; i++ {
		before := math.Log(c.Value())
		c.ApplyTrade(Buy, 1)
		step := math.Log(c.Value()) - before
		if step <= 0 {
			t.Fatalf("unit %d: log step = %v, want > 0", i, step)
		}
		if i > 0 && step > prevStep {
			t.Fatalf("unit %d: log step %v grew from %v", i, step, prevStep)
		}
		prevStep = step
	}
}

func TestCurve_RoundTripTradeReturnsToValue(t *testing.T) {
	c := NewCurve(10, DefaultParams(), nil)
	c.ApplyTrade(Buy, 40)
	c.ApplyTrade(Sell, 40)
	if math.Abs(c.Value()-10) > 1e-9 {
		t.Errorf("Value() = %v, want 10", c.Value())
	}
}

func TestCurve_ClampsToBand(t *testing.T) {
	p := DefaultParams()
	p.MinPrice = 5
	p.MaxPrice = 12
	c := NewCurve(10, p, nil)

	for i := 0; i < 20; i++ {
		c.ApplyTrade(Sell, 64)
		checkBounds(t, c)
	}
	if c.Value() != 5 {
		t.Fatalf("Value() = %v, want floor 5", c.Value())
	}

	// the anchor is rebased at the floor, so buying moves the price at once
	c.ApplyTrade(Buy, 1)
	if c.Value() <= 5 {
		t.Errorf("Value() after buy = %v, want > 5", c.Value())
	}

	for i := 0; i < 20; i++ {
		c.ApplyTrade(Buy, 64)
		checkBounds(t, c)
	}
	if c.Value() != 12 {
		t.Errorf("Value() = %v, want ceiling 12", c.Value())
	}
}

func TestNewCurve_NonFiniteInitialFallsToFloor(t *testing.T) {
	p := DefaultParams()
	p.MinPrice = 0.5
	for _, initial := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 0, -3} {
		c := NewCurve(initial, p, nil)
		if c.Value() != 0.5 || c.Initial() != 0.5 {
			t.Errorf("NewCurve(%v): value %v initial %v, want floor 0.5", initial, c.Value(), c.Initial())
		}
		checkBounds(t, c)
		c.ApplyTrade(Buy, 3)
		checkBounds(t, c)
	}

	p.MinPrice = math.NaN()
	if c := NewCurve(math.NaN(), p, nil); !(c.Value() > 0) {
		t.Errorf("NaN floor: value = %v, want > 0", c.Value())
	}
}

func TestCurve_ApplyNoiseBounded(t *testing.T) {
	field := NewNoiseField(7)
	c := NewCurve(10, DefaultParams(), field.Source("default/stone", 0.3))
	for i := 0; i < 500; i++ {
		before := c.Value()
		delta := c.ApplyNoise(0.02)
		if math.Abs(delta) > 0.02*before+1e-12 {
			t.Fatalf("step %d: |delta| = %v exceeds %v", i, math.Abs(delta), 0.02*before)
		}
		checkBounds(t, c)
	}
	if c.PriceStock() != 0 {
		t.Errorf("PriceStock() = %v, noise must not move it", c.PriceStock())
	}
}

func TestCurve_ApplyNoiseWithoutSource(t *testing.T) {
	c := NewCurve(10, DefaultParams(), nil)
	if d := c.ApplyNoise(0.5); d != 0 {
		t.Errorf("ApplyNoise() = %v, want 0", d)
	}
}

func TestCurve_ShortTermWindow(t *testing.T) {
	c := NewCurve(10, DefaultParams(), nil)
	if got := len(c.ShortTerm()); got != ShortTermSamples {
		t.Fatalf("len(ShortTerm()) = %d, want %d", got, ShortTermSamples)
	}
	if c.ValueAnHourAgo() != 10 {
		t.Fatalf("ValueAnHourAgo() = %v, want 10", c.ValueAnHourAgo())
	}

	c.ApplyTrade(Buy, 10)
	raised := c.Value()
	for i := 0; i < ShortTermSamples-1; i++ {
		c.SampleShortTerm()
	}
	if c.ValueAnHourAgo() != 10 {
		t.Errorf("after 59 samples ValueAnHourAgo() = %v, want 10", c.ValueAnHourAgo())
	}
	c.SampleShortTerm()
	if c.ValueAnHourAgo() != raised {
		t.Errorf("after 60 samples ValueAnHourAgo() = %v, want %v", c.ValueAnHourAgo(), raised)
	}
	if len(c.ShortTerm()) != ShortTermSamples {
		t.Errorf("window length changed to %d", len(c.ShortTerm()))
	}
}

func TestCurve_ChangeLastHour(t *testing.T) {
	c := NewCurve(10, DefaultParams(), nil)
	c.ApplyTrade(Buy, 10)
	want := (c.Value()/10 - 1) * 100
	if got := c.ChangeLastHour(); math.Abs(got-want) > 1e-9 {
		t.Errorf("ChangeLastHour() = %v, want %v", got, want)
	}
}

func TestCurve_RestartHourLimitsIdempotent(t *testing.T) {
	c := NewCurve(10, DefaultParams(), nil)
	c.ApplyTrade(Buy, 8)
	c.ApplyTrade(Sell, 3)

	c.RestartHourLimits()
	lo1, hi1 := c.HourLow(), c.HourHigh()
	c.RestartHourLimits()
	lo2, hi2 := c.HourLow(), c.HourHigh()

	if lo1 != c.Value() || hi1 != c.Value() {
		t.Errorf("first reset: hour range = [%v, %v], want %v", lo1, hi1, c.Value())
	}
	if lo1 != lo2 || hi1 != hi2 {
		t.Errorf("second reset changed range: [%v, %v] -> [%v, %v]", lo1, hi1, lo2, hi2)
	}
}

func TestCurve_Quotes(t *testing.T) {
	c := NewCurve(10, DefaultParams(), nil)
	if !(c.BuyPrice() >= c.Value() && c.Value() >= c.SellPrice()) {
		t.Errorf("buy %v >= value %v >= sell %v violated", c.BuyPrice(), c.Value(), c.SellPrice())
	}
}

func TestWindow(t *testing.T) {
	w := NewWindow(3, 0)
	w.Push(1)
	w.Push(2)
	if got := w.Values(); got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("Values() = %v, want [0 1 2]", got)
	}
	w.Push(3)
	if w.Oldest() != 1 || w.Newest() != 3 {
		t.Errorf("Oldest, Newest = %v, %v, want 1, 3", w.Oldest(), w.Newest())
	}
}
