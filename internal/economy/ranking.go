package economy

import "math"

// Ranked is one entry of a leaderboard.
type Ranked struct {
	Identifier string  `json:"identifier"`
	Value      float64 `json:"value"`
}

// TopGainers returns up to n parent items with the largest hourly change.
func (m *Market) TopGainers(n int) []Ranked {
	return m.rank(n, (*Item).ChangeLastHour, greater)
}

// TopDippers returns up to n parent items with the smallest hourly change.
func (m *Market) TopDippers(n int) []Ranked {
	return m.rank(n, (*Item).ChangeLastHour, less)
}

// MostMoved returns up to n parent items with the largest absolute hourly
// change.
func (m *Market) MostMoved(n int) []Ranked {
	return m.rank(n, func(it *Item) float64 { return math.Abs(it.ChangeLastHour()) }, greater)
}

// MostTraded returns up to n parent items with the most recent operations.
func (m *Market) MostTraded(n int) []Ranked {
	return m.rank(n, func(it *Item) float64 { return float64(it.Operations()) }, greater)
}

// VolumeRank returns the 1-based position of identifier when parent items
// are ordered by traded volume, or 0 if it is not a parent in this market.
func (m *Market) VolumeRank(identifier string) int {
	parents := m.ParentItems()
	board := m.rank(len(parents), (*Item).Volume, greater)
	id := normalize(identifier)
	for i, r := range board {
		if r.Identifier == id {
			return i + 1
		}
	}
	return 0
}

func greater(a, b float64) bool { return a > b }
func less(a, b float64) bool    { return a < b }

// rank takes one reading of metric per item, then repeatedly selects the
// best remaining candidate. Comparison is strict, so among equal values the
// one seen first in load order wins.
func (m *Market) rank(n int, metric func(*Item) float64, better func(a, b float64) bool) []Ranked {
	if n <= 0 {
		return nil
	}
	parents := m.ParentItems()
	pool := make([]Ranked, len(parents))
	for i, it := range parents {
		pool[i] = Ranked{Identifier: it.identifier, Value: metric(it)}
	}

	out := make([]Ranked, 0, min(n, len(pool)))
	for len(out) < n && len(pool) > 0 {
		best := 0
		for i := 1; i < len(pool); i++ {
			if better(pool[i].Value, pool[best].Value) {
				best = i
			}
		}
		out = append(out, pool[best])
		pool = append(pool[:best], pool[best+1:]...)
	}
	return out
}
