package economy

import (
	"hash/fnv"

	"github.com/ojrac/opensimplex-go"
)

// NoiseField is a shared, read-only OpenSimplex field. Each item walks its
// own row of the field, so neighbouring draws are correlated over time but
// items move independently of one another.
type NoiseField struct {
	gen opensimplex.Noise
}

// NewNoiseField builds a field from seed.
func NewNoiseField(seed int64) *NoiseField {
	return &NoiseField{gen: opensimplex.NewNormalized(seed)}
}

// Source returns a walker on the row derived from key.
func (f *NoiseField) Source(key string, step float64) *NoiseSource {
	h := fnv.New64a()
	h.Write([]byte(key))
	row := float64(h.Sum64()%1_000_000) / 97.0
	return &NoiseSource{field: f, row: row, step: step}
}

// NoiseSource yields values in [-1, 1]. It is owned by one item and relies
// on that item's lock.
type NoiseSource struct {
	field *NoiseField
	row   float64
	t     float64
	step  float64
}

// Next advances along the row and returns the next value.
func (s *NoiseSource) Next() float64 {
	s.t += s.step
	v := 2*s.field.gen.Eval2(s.t, s.row) - 1
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
