// Package entropy supplies the random draws behind price noise seeds and
// restock intervals. The default source is crypto/rand; a random.org pool
// can be used instead, falling back to crypto/rand when the API is down.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	mrand "math/rand/v2"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// Source yields uniform random numbers. Implementations are safe for
// concurrent use.
type Source interface {
	Float() float64
}

// Intn returns a uniform integer in [0, n) drawn from src. n < 1 yields 0.
func Intn(src Source, n int) int {
	if n < 1 {
		return 0
	}
	v := int(src.Float() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}

// Between returns a uniform integer in [lo, hi].
func Between(src Source, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	return lo + Intn(src, hi-lo+1)
}

// Seed derives an int64 seed from src.
func Seed(src Source) int64 {
	return int64(src.Float() * (1 << 53))
}

// Crypto draws from crypto/rand.
type Crypto struct{}

func (Crypto) Float() float64 { return cryptoRandFloat() }

// Seeded is a deterministic source for reproducible runs and tests.
type Seeded struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeeded returns a PCG-backed source for seed.
func NewSeeded(seed uint64) *Seeded {
	return &Seeded{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *Seeded) Float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Client provides true random numbers from random.org with a local pool.
type Client struct {
	apiKey string
	url    string
	http   *resty.Client

	mu   sync.Mutex
	pool []float64
}

const randomOrgURL = "https://api.random.org/json-rpc/4/invoke"

// NewClient creates a random.org client. Returns nil if apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey: apiKey,
		url:    randomOrgURL,
		http:   resty.New().SetTimeout(15 * time.Second),
	}
}

// Float returns a random float64 in [0, 1). Uses the pool, refilling from
// random.org when low. Falls back to crypto/rand on API failure.
func (c *Client) Float() float64 {
	if c == nil {
		return cryptoRandFloat()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pool) < 10 {
		c.refill()
	}

	if len(c.pool) == 0 {
		return cryptoRandFloat()
	}

	val := c.pool[0]
	c.pool = c.pool[1:]
	return val
}

type rpcResult struct {
	Result struct {
		Random struct {
			Data []float64 `json:"data"`
		} `json:"random"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) refill() {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateDecimalFractions",
		"params": map[string]any{
			"apiKey":        c.apiKey,
			"n":             100,
			"decimalPlaces": 6,
		},
		"id": 1,
	}

	var result rpcResult
	resp, err := c.http.R().SetBody(req).SetResult(&result).Post(c.url)
	if err != nil {
		slog.Debug("random.org fetch failed", "error", err)
		return
	}
	if resp.IsError() {
		slog.Debug("random.org bad status", "status", resp.StatusCode())
		return
	}
	if result.Error != nil {
		slog.Debug("random.org API error", "error", result.Error.Message)
		return
	}

	c.pool = append(c.pool, result.Result.Random.Data...)
	slog.Debug("random.org pool refilled", "count", len(result.Result.Random.Data))
}

// cryptoRandFloat generates a random float64 using crypto/rand.
func cryptoRandFloat() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0.5
	}
	// 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// FromKey returns a random.org-backed source when apiKey is set, otherwise
// crypto/rand.
func FromKey(apiKey string) Source {
	if c := NewClient(apiKey); c != nil {
		return c
	}
	return Crypto{}
}
