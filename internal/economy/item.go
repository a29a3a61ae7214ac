package economy

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade is the receipt of a completed buy or sell.
type Trade struct {
	ID        uuid.UUID       `json:"id"`
	Market    string          `json:"market"`
	Item      string          `json:"item"`
	Trader    string          `json:"trader"`
	Direction string          `json:"direction"`
	Units     int             `json:"units"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Gross     decimal.Decimal `json:"gross"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	Value     float64         `json:"value"` // curve value after the trade
	At        time.Time       `json:"at"`
}

// ItemState is the persisted form of an item. Floats are quantized to
// single precision so a save followed by a load is exact.
type ItemState struct {
	Identifier string
	Value      float64
	Low        float64
	High       float64
	PriceStock float64
	Units      int64
	Taxes      float64
}

// Quote is a point-in-time read of an item.
type Quote struct {
	Identifier string  `json:"identifier"`
	Alias      string  `json:"alias"`
	Category   string  `json:"category"`
	Currency   string  `json:"currency"`
	Parent     string  `json:"parent,omitempty"`
	Value      float64 `json:"value"`
	BuyPrice   float64 `json:"buy_price"`
	SellPrice  float64 `json:"sell_price"`
	Initial    float64 `json:"initial"`
	Low        float64 `json:"low"`
	High       float64 `json:"high"`
	HourLow    float64 `json:"hour_low"`
	HourHigh   float64 `json:"hour_high"`
	PriceStock float64 `json:"price_stock"`
	Change1h   float64 `json:"change_1h"`
	Change24h  float64 `json:"change_24h"`
	Stock      int64   `json:"stock"`
	Volume     float64 `json:"volume"`
	Operations int64   `json:"operations"`
	Taxes      float64 `json:"taxes"`
}

// Item is a tradable good. A parent owns a curve and an inventory; a child
// carries only identity and points at its parent by identifier. All state
// is guarded by mu.
type Item struct {
	mu sync.Mutex

	identifier   string
	alias        string
	category     string
	currency     string
	parent       string
	children     []string
	includeInCPI bool
	restock      Override[int64]

	params Params
	curve  *Curve
	stock  *Inventory

	volume     float64
	operations int64
	taxes      float64
}

// NewItem builds a parent item at the given starting price and stock.
func NewItem(def ItemDef, initial float64, startingStock int64, p Params, noise *NoiseSource) *Item {
	p = p.withDefaults()
	it := newItem(def, p)
	it.curve = NewCurve(initial, p, noise)
	it.stock = NewInventory(startingStock, p.StockCap)
	return it
}

// NewChildItem builds a variant that resolves to def.Parent for pricing.
func NewChildItem(def ItemDef, p Params) *Item {
	return newItem(def, p.withDefaults())
}

func newItem(def ItemDef, p Params) *Item {
	alias := def.Alias
	if alias == "" {
		alias = def.Identifier
	}
	return &Item{
		identifier:   def.Identifier,
		alias:        alias,
		category:     def.Category,
		currency:     def.Currency,
		parent:       def.Parent,
		includeInCPI: def.IncludeInCPI,
		restock:      def.RestockAmount,
		params:       p,
	}
}

func (it *Item) Identifier() string { return it.identifier }
func (it *Item) Alias() string      { return it.alias }
func (it *Item) Category() string   { return it.category }
func (it *Item) Currency() string   { return it.currency }
func (it *Item) Parent() string     { return it.parent }
func (it *Item) IsParent() bool     { return it.parent == "" }
func (it *Item) IncludeInCPI() bool { return it.includeInCPI }

// RestockAmount returns the item-level restock configuration.
func (it *Item) RestockAmount() Override[int64] { return it.restock }

// Children returns the identifiers of this item's variants.
func (it *Item) Children() []string {
	it.mu.Lock()
	defer it.mu.Unlock()
	out := make([]string, len(it.children))
	copy(out, it.children)
	return out
}

func (it *Item) addChild(id string) {
	it.mu.Lock()
	it.children = append(it.children, id)
	it.mu.Unlock()
}

// CheckQuantity validates a trade size without touching state.
func (it *Item) CheckQuantity(qty int) error {
	if qty < 1 || qty > it.params.MaxBatch {
		return fmt.Errorf("%w: %d (allowed 1-%d)", ErrInvalidQuantity, qty, it.params.MaxBatch)
	}
	return nil
}

// Buy sells qty units to buyer. The cost integrates the curve over the
// batch, so a large order pays for the price it moves.
func (it *Item) Buy(qty int, buyer string) (Trade, error) {
	if !it.IsParent() {
		return Trade{}, fmt.Errorf("buy %s: %w", it.identifier, ErrChildItem)
	}
	if err := it.CheckQuantity(qty); err != nil {
		return Trade{}, err
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	if it.params.StockEnabled {
		if !it.stock.take(int64(qty)) {
			return Trade{}, fmt.Errorf("%w: %s has %d, requested %d",
				ErrInsufficientStock, it.identifier, it.stock.Units(), qty)
		}
	}

	gross := it.curve.trade(Buy, qty) * (1 + it.params.Spread)
	tax := gross * it.params.TaxRate
	it.record(qty, tax)

	return it.receipt(Buy, qty, buyer, gross, tax, gross+tax), nil
}

// Sell buys qty units from seller.
func (it *Item) Sell(qty int, seller string) (Trade, error) {
	if !it.IsParent() {
		return Trade{}, fmt.Errorf("sell %s: %w", it.identifier, ErrChildItem)
	}
	if err := it.CheckQuantity(qty); err != nil {
		return Trade{}, err
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	if it.params.StockEnabled {
		it.stock.add(int64(qty))
	}

	gross := it.curve.trade(Sell, qty) * (1 - it.params.Spread)
	tax := gross * it.params.TaxRate
	it.record(qty, tax)

	return it.receipt(Sell, qty, seller, gross, tax, gross-tax), nil
}

func (it *Item) record(qty int, tax float64) {
	it.volume += float64(qty)
	it.operations++
	it.taxes += tax
}

func (it *Item) receipt(dir Direction, qty int, trader string, gross, tax, total float64) Trade {
	d := it.params.Decimals
	g := decimal.NewFromFloat(gross)
	return Trade{
		ID:        uuid.New(),
		Item:      it.identifier,
		Trader:    trader,
		Direction: dir.String(),
		Units:     qty,
		UnitPrice: g.Div(decimal.NewFromInt(int64(qty))).Round(d),
		Gross:     g.Round(d),
		Tax:       decimal.NewFromFloat(tax).Round(d),
		Total:     decimal.NewFromFloat(total).Round(d),
		Value:     it.curve.value,
		At:        time.Now(),
	}
}

// AddStock credits restocked units. Zero is a no-op; negative is rejected.
func (it *Item) AddStock(amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: restock amount %d", ErrInvalidQuantity, amount)
	}
	if !it.IsParent() || amount == 0 {
		return 0, nil
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.stock.add(amount), nil
}

// RestartVolume clears the traded volume after it has been archived.
func (it *Item) RestartVolume() {
	it.mu.Lock()
	it.volume = 0
	it.mu.Unlock()
}

// TakeVolume returns the traded volume and clears it in one step, so a
// trade landing during the archive is counted in the next sample.
func (it *Item) TakeVolume() float64 {
	it.mu.Lock()
	defer it.mu.Unlock()
	v := it.volume
	it.volume = 0
	return v
}

// LowerOperations decays the trade counter: by a tenth when it is above
// ten, otherwise by one, never below zero.
func (it *Item) LowerOperations() {
	it.mu.Lock()
	defer it.mu.Unlock()
	switch {
	case it.operations > 10:
		it.operations -= int64(math.Round(float64(it.operations) * 0.1))
	case it.operations > 0:
		it.operations--
	}
}

func (it *Item) Volume() float64 {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.volume
}

func (it *Item) Operations() int64 {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.operations
}

func (it *Item) Taxes() float64 {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.taxes
}

// Units returns the inventory count, or 0 for a child.
func (it *Item) Units() int64 {
	if !it.IsParent() {
		return 0
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.stock.Units()
}

// Value returns the current curve value, or 0 for a child.
func (it *Item) Value() float64 {
	if !it.IsParent() {
		return 0
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.curve.value
}

// ChangeLastHour returns the hourly percentage change, or 0 for a child.
func (it *Item) ChangeLastHour() float64 {
	if !it.IsParent() {
		return 0
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.curve.ChangeLastHour()
}

// ChangeLastDay returns the daily percentage change, or 0 for a child.
func (it *Item) ChangeLastDay() float64 {
	if !it.IsParent() {
		return 0
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.curve.ChangeLastDay()
}

// ApplyNoise perturbs the curve by at most magnitude of its value.
func (it *Item) ApplyNoise(magnitude float64) {
	if !it.IsParent() {
		return
	}
	it.mu.Lock()
	it.curve.ApplyNoise(magnitude)
	it.mu.Unlock()
}

func (it *Item) SampleShortTerm() {
	if !it.IsParent() {
		return
	}
	it.mu.Lock()
	it.curve.SampleShortTerm()
	it.mu.Unlock()
}

func (it *Item) SampleDaily() {
	if !it.IsParent() {
		return
	}
	it.mu.Lock()
	it.curve.SampleDaily()
	it.mu.Unlock()
}

func (it *Item) RestartHourLimits() {
	if !it.IsParent() {
		return
	}
	it.mu.Lock()
	it.curve.RestartHourLimits()
	it.mu.Unlock()
}

// History returns the last hour of minute samples, oldest first.
func (it *Item) History() []float64 {
	if !it.IsParent() {
		return nil
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.curve.ShortTerm()
}

// Quote reads the item under its lock. A child reports identity only.
func (it *Item) Quote() Quote {
	q := Quote{
		Identifier: it.identifier,
		Alias:      it.alias,
		Category:   it.category,
		Currency:   it.currency,
		Parent:     it.parent,
	}
	if !it.IsParent() {
		return q
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	c := it.curve
	q.Value = c.value
	q.BuyPrice = c.BuyPrice()
	q.SellPrice = c.SellPrice()
	q.Initial = c.initial
	q.Low = c.low
	q.High = c.high
	q.HourLow = c.hourLow
	q.HourHigh = c.hourHigh
	q.PriceStock = c.priceStock
	q.Change1h = c.ChangeLastHour()
	q.Change24h = c.ChangeLastDay()
	q.Stock = it.stock.Units()
	q.Volume = it.volume
	q.Operations = it.operations
	q.Taxes = it.taxes
	return q
}

// Snapshot returns the persisted form of a parent item.
func (it *Item) Snapshot() ItemState {
	st := ItemState{Identifier: it.identifier}
	if !it.IsParent() {
		return st
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	st.Value = quantize(it.curve.value)
	st.Low = quantize(it.curve.low)
	st.High = quantize(it.curve.high)
	st.PriceStock = quantize(it.curve.priceStock)
	st.Units = it.stock.Units()
	st.Taxes = quantize(it.taxes)
	return st
}

// Restore hydrates a parent item from persisted state. Values are quantized
// the same way Snapshot quantizes them.
func (it *Item) Restore(st ItemState) {
	if !it.IsParent() {
		return
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	it.curve.restore(quantize(st.Value), quantize(st.Low), quantize(st.High), quantize(st.PriceStock))
	it.stock.set(st.Units)
	it.taxes = quantize(st.Taxes)
}

func quantize(v float64) float64 {
	return float64(float32(v))
}
