package economy

// Inventory counts the units a market can hand out before the next restock.
// It is unrelated to the curve's price stock.
type Inventory struct {
	units int64
	cap   int64
}

// NewInventory returns an inventory holding units, bounded by cap (0 = none).
func NewInventory(units, cap int64) *Inventory {
	inv := &Inventory{cap: cap}
	inv.add(units)
	return inv
}

func (s *Inventory) Units() int64 { return s.units }
func (s *Inventory) Cap() int64   { return s.cap }

func (s *Inventory) take(n int64) bool {
	if n < 0 || n > s.units {
		return false
	}
	s.units -= n
	return true
}

// add increases units by n, respecting the cap, and returns what was added.
func (s *Inventory) add(n int64) int64 {
	if n <= 0 {
		return 0
	}
	if s.cap > 0 && s.units+n > s.cap {
		n = s.cap - s.units
		if n < 0 {
			n = 0
		}
	}
	s.units += n
	return n
}

func (s *Inventory) set(units int64) {
	if units < 0 {
		units = 0
	}
	if s.cap > 0 && units > s.cap {
		units = s.cap
	}
	s.units = units
}
