// Package stats archives per-item (price, volume) samples for charting.
// It knows nothing about pricing; the engine feeds it once per minute.
package stats

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const (
	defaultSeriesCapacity = 1440 // one day of minute samples
	defaultSeriesCount    = 10000
	defaultMaxPending     = 100000
)

// Instant is one archived sample.
type Instant struct {
	Market    string  `json:"market" parquet:"market"`
	Item      string  `json:"item" parquet:"item"`
	Timestamp int64   `json:"t" parquet:"t"` // unix milliseconds
	Price     float64 `json:"price" parquet:"price"`
	Volume    float64 `json:"volume" parquet:"volume"`
}

// At returns the sample time.
func (i Instant) At() time.Time {
	return time.UnixMilli(i.Timestamp)
}

// Sink persists archived samples.
type Sink interface {
	SaveInstants(ctx context.Context, rows []Instant) error
}

type series struct {
	mu   sync.Mutex
	rows []Instant
}

// Collector keeps a bounded in-memory series per item and buffers new
// samples until they are flushed to the sink.
type Collector struct {
	capacity   int
	maxPending int
	cache      *lru.Cache
	sink       Sink

	mu      sync.Mutex
	pending []Instant
}

// Options tunes a Collector. Zero values select defaults.
type Options struct {
	SeriesCapacity int // samples kept per item
	SeriesCount    int // items kept in memory
	MaxPending     int // unflushed samples kept before the oldest are dropped
}

// NewCollector returns a collector writing to sink (which may be nil).
func NewCollector(sink Sink, opts Options) *Collector {
	if opts.SeriesCapacity <= 0 {
		opts.SeriesCapacity = defaultSeriesCapacity
	}
	if opts.SeriesCount <= 0 {
		opts.SeriesCount = defaultSeriesCount
	}
	if opts.MaxPending <= 0 {
		opts.MaxPending = defaultMaxPending
	}
	cache, _ := lru.New(opts.SeriesCount)
	return &Collector{
		capacity:   opts.SeriesCapacity,
		maxPending: opts.MaxPending,
		cache:      cache,
		sink:       sink,
	}
}

func key(market, item string) string {
	return market + "/" + item
}

// Record archives one sample.
func (c *Collector) Record(market, item string, at time.Time, price, volume float64) {
	in := Instant{
		Market:    market,
		Item:      item,
		Timestamp: at.UnixMilli(),
		Price:     price,
		Volume:    volume,
	}

	s := c.series(key(market, item))
	s.mu.Lock()
	s.rows = append(s.rows, in)
	if over := len(s.rows) - c.capacity; over > 0 {
		s.rows = append(s.rows[:0:0], s.rows[over:]...)
	}
	s.mu.Unlock()

	c.mu.Lock()
	c.pending = append(c.pending, in)
	c.trimPending()
	c.mu.Unlock()
}

func (c *Collector) series(k string) *series {
	if v, ok := c.cache.Get(k); ok {
		return v.(*series)
	}
	s := &series{}
	if prev, found, _ := c.cache.PeekOrAdd(k, s); found {
		return prev.(*series)
	}
	return s
}

func (c *Collector) trimPending() {
	if over := len(c.pending) - c.maxPending; over > 0 {
		c.pending = append(c.pending[:0:0], c.pending[over:]...)
	}
}

// History returns a copy of the in-memory series, oldest first.
func (c *Collector) History(market, item string) []Instant {
	v, ok := c.cache.Get(key(market, item))
	if !ok {
		return nil
	}
	s := v.(*series)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Instant, len(s.rows))
	copy(out, s.rows)
	return out
}

// Forget drops the in-memory series of every item in market.
func (c *Collector) Forget(market string) {
	prefix := market + "/"
	for _, k := range c.cache.Keys() {
		if s, ok := k.(string); ok && len(s) > len(prefix) && s[:len(prefix)] == prefix {
			c.cache.Remove(k)
		}
	}
}

// Pending returns the number of samples waiting for a flush.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Flush writes buffered samples to the sink. On failure the batch is put
// back so a retry sends it again.
func (c *Collector) Flush(ctx context.Context) error {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(batch) == 0 || c.sink == nil {
		return nil
	}
	if err := c.sink.SaveInstants(ctx, batch); err != nil {
		c.mu.Lock()
		c.pending = append(batch, c.pending...)
		c.trimPending()
		c.mu.Unlock()
		return err
	}
	return nil
}
