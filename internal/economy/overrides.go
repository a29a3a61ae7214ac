package economy

// Override is an optional configuration value. The zero value is unset.
type Override[T any] struct {
	value T
	set   bool
}

// Some returns an override holding v.
func Some[T any](v T) Override[T] {
	return Override[T]{value: v, set: true}
}

// None returns an unset override.
func None[T any]() Override[T] {
	return Override[T]{}
}

// Get returns the held value and whether it is set.
func (o Override[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether the override holds a value.
func (o Override[T]) IsSet() bool {
	return o.set
}

// Tier names the configuration layer a resolved value came from.
type Tier int

const (
	TierMarket Tier = iota
	TierItem
	TierGlobal
)

func (t Tier) String() string {
	switch t {
	case TierMarket:
		return "market"
	case TierItem:
		return "item"
	default:
		return "global"
	}
}

// Resolve picks the effective value: the market override if set, then the
// per-item configuration, then the global default. Every override read in
// the engine goes through here.
func Resolve[T any](market, item Override[T], global T) (T, Tier) {
	if v, ok := market.Get(); ok {
		return v, TierMarket
	}
	if v, ok := item.Get(); ok {
		return v, TierItem
	}
	return global, TierGlobal
}

// Overrides holds the per-market configuration layer.
type Overrides struct {
	Prices        map[string]float64
	Stocks        map[string]int64
	RestockAmount Override[int64]
	RestockMin    Override[int]
	RestockMax    Override[int]
}

// Price returns the market-level initial price override for identifier.
func (o Overrides) Price(identifier string) Override[float64] {
	if v, ok := o.Prices[identifier]; ok {
		return Some(v)
	}
	return None[float64]()
}

// Stock returns the market-level starting stock override for identifier.
func (o Overrides) Stock(identifier string) Override[int64] {
	if v, ok := o.Stocks[identifier]; ok {
		return Some(v)
	}
	return None[int64]()
}

// Defaults are the global fallbacks used when neither the market nor the
// item configures a value.
type Defaults struct {
	InitialPrice  float64
	StartingStock int64
	RestockAmount int64
	RestockMin    int
	RestockMax    int
}
