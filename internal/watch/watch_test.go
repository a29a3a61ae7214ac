package watch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestDecide(t *testing.T) {
	markets := []MarketInfo{
		{ID: "calm", Active: true, LastChange: 3},
		{ID: "crash", Active: true, LastChange: -40},
		{ID: "halted", Active: false, LastChange: 90},
		{ID: "spike", Active: true, LastChange: 30},
		{ID: "edge", Active: true, LastChange: 25},
	}
	got := Decide(markets, 25)
	if len(got) != 2 || got[0].Market != "crash" || got[1].Market != "spike" {
		t.Errorf("Decide() = %+v, want crash then spike", got)
	}
	if got := Decide(nil, 25); got != nil {
		t.Errorf("Decide(nil) = %v", got)
	}
}

type fakeAPI struct {
	mu     sync.Mutex
	halted []string
	auth   []string
}

func (f *fakeAPI) handler(markets []MarketInfo) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"running":true}`))
	})
	mux.HandleFunc("GET /api/v1/markets", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(markets)
	})
	mux.HandleFunc("POST /api/v1/market/{id}/halt", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		if r.PathValue("id") == "locked" {
			http.Error(w, "nope", http.StatusUnauthorized)
			return
		}
		f.halted = append(f.halted, r.PathValue("id"))
		w.Write([]byte(`{"ok":true}`))
	})
	return mux
}

func TestStewardCycle(t *testing.T) {
	markets := []MarketInfo{
		{ID: "default", Active: true, LastChange: 1},
		{ID: "nether", Active: true, LastChange: 50},
		{ID: "locked", Active: true, LastChange: -60},
	}

	tests := []struct {
		name       string
		dryRun     bool
		wantHalted []string
	}{
		{name: "act", wantHalted: []string{"nether"}},
		{name: "dry run", dryRun: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			srv := httptest.NewServer(api.handler(markets))
			defer srv.Close()

			s := &Steward{
				Observer:  NewObserver(srv.URL),
				Actor:     NewActor(srv.URL, "secret"),
				Threshold: 25,
				DryRun:    tt.dryRun,
			}
			decisions, err := s.Cycle(context.Background())
			if err != nil {
				t.Fatalf("Cycle() error = %v", err)
			}
			if len(decisions) != 2 {
				t.Errorf("decisions = %+v, want 2", decisions)
			}

			api.mu.Lock()
			defer api.mu.Unlock()
			if len(api.halted) != len(tt.wantHalted) {
				t.Fatalf("halted = %v, want %v", api.halted, tt.wantHalted)
			}
			for i := range tt.wantHalted {
				if api.halted[i] != tt.wantHalted[i] {
					t.Errorf("halted = %v, want %v", api.halted, tt.wantHalted)
				}
			}
			for _, a := range api.auth {
				if a != "Bearer secret" {
					t.Errorf("Authorization = %q", a)
				}
			}
		})
	}
}

func TestObserveError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewObserver(srv.URL).Observe(context.Background()); err == nil {
		t.Error("Observe() should fail on a 503")
	}
}

func TestWaitReady(t *testing.T) {
	srv := httptest.NewServer((&fakeAPI{}).handler(nil))
	defer srv.Close()

	if err := NewObserver(srv.URL).WaitReady(context.Background(), time.Second); err != nil {
		t.Errorf("WaitReady() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	down := NewObserver("http://127.0.0.1:1")
	if err := down.WaitReady(ctx, time.Minute); err == nil {
		t.Error("WaitReady() should fail with a cancelled context")
	}
}
