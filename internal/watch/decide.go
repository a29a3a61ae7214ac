package watch

import (
	"fmt"
	"math"
	"sort"
)

// Decision is a proposed halt.
type Decision struct {
	Market    string  `json:"market"`
	Change    float64 `json:"change"`
	Rationale string  `json:"rationale"`
}

// Decide proposes a halt for every active market whose last sampled change
// exceeds threshold percent in either direction. The largest moves come
// first.
func Decide(markets []MarketInfo, threshold float64) []Decision {
	var out []Decision
	for _, m := range markets {
		if !m.Active || math.Abs(m.LastChange) <= threshold {
			continue
		}
		out = append(out, Decision{
			Market:    m.ID,
			Change:    m.LastChange,
			Rationale: fmt.Sprintf("last change %+.2f%% exceeds %.2f%%", m.LastChange, threshold),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Change) > math.Abs(out[j].Change)
	})
	return out
}
