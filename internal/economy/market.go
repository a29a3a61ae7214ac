package economy

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

// Market-wide aggregate window sizes.
const (
	Change1hSamples  = 60
	Change24hSamples = 24
)

// Flusher receives items whose persisted state is stale. Implementations
// must not block the caller.
type Flusher interface {
	Schedule(marketID string, it *Item)
}

// MarketOptions configures a new market.
type MarketOptions struct {
	ID          string
	DisplayName string
	Currency    string // default currency, used for CPI eligibility
	Params      Params
	Defaults    Defaults
	Overrides   Overrides
	Noise       *NoiseField
	Flusher     Flusher
}

// Market is an isolated set of items with its own aggregates. The item set
// is guarded by mu; item state is guarded by each item's own lock, so
// market-wide reads see each item consistently but not the market as a
// whole at one instant.
type Market struct {
	id       string
	name     string
	currency string
	params   Params
	defaults Defaults
	overs    Overrides
	noise    *NoiseField
	flusher  Flusher

	mu         sync.RWMutex
	items      []*Item
	index      map[string]*Item
	categories []*Category
	catIndex   map[string]*Category

	seriesMu   sync.Mutex
	change1h   *Window
	change24h  *Window
	lastChange float64

	operations atomic.Int64
	active     atomic.Bool
	closed     atomic.Bool
}

// NewMarket returns an empty, active market.
func NewMarket(opts MarketOptions) *Market {
	name := opts.DisplayName
	if name == "" {
		name = opts.ID
	}
	m := &Market{
		id:        opts.ID,
		name:      name,
		currency:  opts.Currency,
		params:    opts.Params.withDefaults(),
		defaults:  opts.Defaults,
		overs:     opts.Overrides,
		noise:     opts.Noise,
		flusher:   opts.Flusher,
		index:     make(map[string]*Item),
		catIndex:  make(map[string]*Category),
		change1h:  NewWindow(Change1hSamples, 0),
		change24h: NewWindow(Change24hSamples, 0),
	}
	m.active.Store(true)
	return m
}

func (m *Market) ID() string          { return m.id }
func (m *Market) DisplayName() string { return m.name }
func (m *Market) Currency() string    { return m.currency }
func (m *Market) Params() Params      { return m.params }

// SetFlusher replaces the persistence hook.
func (m *Market) SetFlusher(f Flusher) {
	m.mu.Lock()
	m.flusher = f
	m.mu.Unlock()
}

// AddCategory registers a category. Adding an existing id returns it.
func (m *Market) AddCategory(id, name string) *Category {
	id = normalize(id)
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.catIndex[id]; ok {
		return c
	}
	c := NewCategory(id, name)
	m.categories = append(m.categories, c)
	m.catIndex[id] = c
	return c
}

// AddItem builds an item from def, resolving its starting price and stock
// through the market, item and global layers. Parents must be added before
// their children.
func (m *Market) AddItem(def ItemDef) (*Item, error) {
	def.Identifier = normalize(def.Identifier)
	def.Parent = normalize(def.Parent)
	def.Category = normalize(def.Category)
	if def.Currency == "" {
		def.Currency = m.currency
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[def.Identifier]; ok {
		return nil, fmt.Errorf("%w: %s in market %s", ErrDuplicateItem, def.Identifier, m.id)
	}
	var cat *Category
	if def.Category != "" {
		c, ok := m.catIndex[def.Category]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, def.Category)
		}
		cat = c
	}

	var it *Item
	if def.Parent != "" {
		parent, ok := m.index[def.Parent]
		if !ok || !parent.IsParent() {
			return nil, fmt.Errorf("%w: parent %s of %s", ErrUnknownItem, def.Parent, def.Identifier)
		}
		it = NewChildItem(def, m.params)
		parent.addChild(def.Identifier)
	} else {
		price, _ := Resolve(m.overs.Price(def.Identifier), def.InitialPrice, m.defaults.InitialPrice)
		stock, _ := Resolve(m.overs.Stock(def.Identifier), def.StartingStock, m.defaults.StartingStock)
		var src *NoiseSource
		if m.noise != nil {
			src = m.noise.Source(m.id+"/"+def.Identifier, m.params.NoiseStep)
		}
		it = NewItem(def, price, stock, m.params, src)
	}

	m.items = append(m.items, it)
	m.index[def.Identifier] = it
	if cat != nil {
		cat.members = append(cat.members, def.Identifier)
	}
	return it, nil
}

// Item looks up an identifier, case-insensitively.
func (m *Market) Item(identifier string) (*Item, error) {
	m.mu.RLock()
	it, ok := m.index[normalize(identifier)]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s in market %s", ErrUnknownItem, identifier, m.id)
	}
	return it, nil
}

// Pricing returns the item that owns pricing for identifier: the item
// itself for a parent, its parent for a child.
func (m *Market) Pricing(identifier string) (*Item, error) {
	it, err := m.Item(identifier)
	if err != nil {
		return nil, err
	}
	if it.IsParent() {
		return it, nil
	}
	return m.Item(it.Parent())
}

// Items returns all items in load order.
func (m *Market) Items() []*Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Item, len(m.items))
	copy(out, m.items)
	return out
}

// ParentItems returns the items that own a curve, in load order.
func (m *Market) ParentItems() []*Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Item, 0, len(m.items))
	for _, it := range m.items {
		if it.IsParent() {
			out = append(out, it)
		}
	}
	return out
}

// Identifiers returns every identifier in load order.
func (m *Market) Identifiers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.items))
	for i, it := range m.items {
		out[i] = it.identifier
	}
	return out
}

// Categories returns the categories in definition order.
func (m *Market) Categories() []*Category {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Category, len(m.categories))
	copy(out, m.categories)
	return out
}

// Category looks up a category by id.
func (m *Market) Category(id string) (*Category, error) {
	m.mu.RLock()
	c, ok := m.catIndex[normalize(id)]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, id)
	}
	return c, nil
}

// Quote reads identifier, resolving a child to its parent's price state.
func (m *Market) Quote(identifier string) (Quote, error) {
	it, err := m.Item(identifier)
	if err != nil {
		return Quote{}, err
	}
	if it.IsParent() {
		return it.Quote(), nil
	}
	parent, err := m.Item(it.Parent())
	if err != nil {
		return Quote{}, err
	}
	q := parent.Quote()
	q.Identifier = it.identifier
	q.Alias = it.alias
	q.Parent = parent.identifier
	return q, nil
}

// Buy executes a purchase of qty units of identifier.
func (m *Market) Buy(identifier string, qty int, trader string) (Trade, error) {
	return m.trade(Buy, identifier, qty, trader)
}

// Sell executes a sale of qty units of identifier.
func (m *Market) Sell(identifier string, qty int, trader string) (Trade, error) {
	return m.trade(Sell, identifier, qty, trader)
}

func (m *Market) trade(dir Direction, identifier string, qty int, trader string) (Trade, error) {
	if qty < 1 || qty > m.params.MaxBatch {
		return Trade{}, fmt.Errorf("%w: %d (allowed 1-%d)", ErrInvalidQuantity, qty, m.params.MaxBatch)
	}
	it, err := m.Pricing(identifier)
	if err != nil {
		return Trade{}, err
	}
	if !m.Active() {
		return Trade{}, fmt.Errorf("%s %s: %w: %s", dir, identifier, ErrMarketInactive, m.id)
	}

	var t Trade
	if dir == Buy {
		t, err = it.Buy(qty, trader)
	} else {
		t, err = it.Sell(qty, trader)
	}
	if err != nil {
		return Trade{}, err
	}

	t.Market = m.id
	t.Item = normalize(identifier)
	m.operations.Add(1)
	m.schedule(it)
	return t, nil
}

func (m *Market) schedule(it *Item) {
	m.mu.RLock()
	f := m.flusher
	m.mu.RUnlock()
	if f != nil {
		f.Schedule(m.id, it)
	}
}

// ScheduleAll queues every parent item for persistence.
func (m *Market) ScheduleAll() {
	for _, it := range m.ParentItems() {
		m.schedule(it)
	}
}

// Halt stops trading. Scheduled ticks are unaffected.
func (m *Market) Halt() { m.active.Store(false) }

// Resume re-enables trading.
func (m *Market) Resume() { m.active.Store(true) }

func (m *Market) Active() bool { return m.active.Load() }

// Close marks the market as torn down. Scheduled callbacks check Closed
// before touching items.
func (m *Market) Close() {
	m.closed.Store(true)
	m.active.Store(false)
}

func (m *Market) Closed() bool { return m.closed.Load() }

func (m *Market) Operations() int64 { return m.operations.Load() }
func (m *Market) AddOperation()     { m.operations.Add(1) }
func (m *Market) ResetOperations()  { m.operations.Store(0) }

// UpdateChange1h records the latest aggregate hourly change.
func (m *Market) UpdateChange1h(change float64) {
	m.seriesMu.Lock()
	m.change1h.Push(change)
	m.lastChange = change
	m.seriesMu.Unlock()
}

// UpdateChange24h records an hourly entry in the daily series.
func (m *Market) UpdateChange24h(change float64) {
	m.seriesMu.Lock()
	m.change24h.Push(change)
	m.seriesMu.Unlock()
}

func (m *Market) LastChange() float64 {
	m.seriesMu.Lock()
	defer m.seriesMu.Unlock()
	return m.lastChange
}

// Change1hSeries returns the minute series, oldest first.
func (m *Market) Change1hSeries() []float64 {
	m.seriesMu.Lock()
	defer m.seriesMu.Unlock()
	return m.change1h.Values()
}

// Change24hSeries returns the hourly series, oldest first.
func (m *Market) Change24hSeries() []float64 {
	m.seriesMu.Lock()
	defer m.seriesMu.Unlock()
	return m.change24h.Values()
}

// Change1h is the mean hourly percentage change across parent items.
func (m *Market) Change1h() float64 {
	return m.meanOf((*Item).ChangeLastHour)
}

// Change24h is the mean daily percentage change across parent items.
func (m *Market) Change24h() float64 {
	return m.meanOf((*Item).ChangeLastDay)
}

func (m *Market) meanOf(f func(*Item) float64) float64 {
	parents := m.ParentItems()
	if len(parents) == 0 {
		return 0
	}
	var sum float64
	for _, it := range parents {
		sum += f(it)
	}
	return sum / float64(len(parents))
}

// ConsumerPriceIndex is 100 times the mean ratio of current to initial
// value over parent items flagged for the index and priced in the market's
// default currency. It is exactly 100 when no item qualifies.
func (m *Market) ConsumerPriceIndex() float64 {
	var sum float64
	var n int
	for _, it := range m.ParentItems() {
		if !it.includeInCPI || it.currency != m.currency {
			continue
		}
		it.mu.Lock()
		sum += it.curve.value / it.curve.initial
		it.mu.Unlock()
		n++
	}
	if n == 0 {
		return 100
	}
	return sum / float64(n) * 100
}

// Benchmark1h compounds the minute series onto base, oldest first.
func (m *Market) Benchmark1h(base float64) []float64 {
	return compound(base, m.Change1hSeries())
}

// Benchmark24h compounds the hourly series onto base, oldest first.
func (m *Market) Benchmark24h(base float64) []float64 {
	return compound(base, m.Change24hSeries())
}

func compound(base float64, changes []float64) []float64 {
	out := make([]float64, len(changes))
	v := base
	for i, c := range changes {
		v += v * c / 100
		out[i] = v
	}
	return out
}

// RestockAmount resolves the restock quantity for a parent item.
func (m *Market) RestockAmount(it *Item) int64 {
	v, _ := Resolve(m.overs.RestockAmount, it.restock, m.defaults.RestockAmount)
	if v < 0 {
		return 0
	}
	return v
}

// RestockWindow resolves the restock interval bounds in minutes.
func (m *Market) RestockWindow() (lo, hi int) {
	lo, _ = Resolve(m.overs.RestockMin, None[int](), m.defaults.RestockMin)
	hi, _ = Resolve(m.overs.RestockMax, None[int](), m.defaults.RestockMax)
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Restock credits every parent item with its effective restock amount and
// returns the total units added.
func (m *Market) Restock() int64 {
	var total int64
	for _, it := range m.ParentItems() {
		added, err := it.AddStock(m.RestockAmount(it))
		if err != nil {
			slog.Warn("restock failed", "market", m.id, "item", it.identifier, "error", err)
			continue
		}
		if added > 0 {
			total += added
			m.schedule(it)
		}
	}
	return total
}

func normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
