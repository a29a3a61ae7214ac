package stats

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

type memSink struct {
	rows []Instant
	err  error
}

func (s *memSink) SaveInstants(_ context.Context, rows []Instant) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, rows...)
	return nil
}

func TestCollector_RecordAndHistory(t *testing.T) {
	c := NewCollector(nil, Options{SeriesCapacity: 3})
	base := time.UnixMilli(1_700_000_000_000)
	for i := 0; i < 5; i++ {
		c.Record("default", "stone", base.Add(time.Duration(i)*time.Minute), float64(10+i), float64(i))
	}
	c.Record("spawn", "stone", base, 99, 1)

	got := c.History("default", "stone")
	if len(got) != 3 {
		t.Fatalf("len(History()) = %d, want 3", len(got))
	}
	if got[0].Price != 12 || got[2].Price != 14 {
		t.Errorf("History() prices = %v..%v, want 12..14", got[0].Price, got[2].Price)
	}
	if !got[2].At().Equal(base.Add(4 * time.Minute)) {
		t.Errorf("At() = %v", got[2].At())
	}
	if spawn := c.History("spawn", "stone"); len(spawn) != 1 || spawn[0].Price != 99 {
		t.Errorf("spawn history = %+v", spawn)
	}
	if c.History("default", "dirt") != nil {
		t.Error("unknown series should be nil")
	}

	c.Forget("default")
	if c.History("default", "stone") != nil {
		t.Error("Forget() left the series behind")
	}
	if c.History("spawn", "stone") == nil {
		t.Error("Forget() removed another market's series")
	}
}

func TestCollector_FlushRequeuesOnError(t *testing.T) {
	sink := &memSink{err: errors.New("database is locked")}
	c := NewCollector(sink, Options{})
	now := time.Now()
	c.Record("default", "a", now, 1, 0)
	c.Record("default", "b", now, 2, 0)

	if err := c.Flush(context.Background()); err == nil {
		t.Fatal("Flush() error = nil, want sink error")
	}
	if c.Pending() != 2 {
		t.Fatalf("Pending() = %d after failed flush, want 2", c.Pending())
	}

	sink.err = nil
	c.Record("default", "c", now, 3, 0)
	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	var items []string
	for _, r := range sink.rows {
		items = append(items, r.Item)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(items, want) {
		t.Errorf("flushed %v, want %v", items, want)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", c.Pending())
	}
}

func TestCollector_PendingIsBounded(t *testing.T) {
	c := NewCollector(nil, Options{MaxPending: 4})
	for i := 0; i < 10; i++ {
		c.Record("default", "a", time.Now(), float64(i), 0)
	}
	if c.Pending() != 4 {
		t.Errorf("Pending() = %d, want 4", c.Pending())
	}
}
