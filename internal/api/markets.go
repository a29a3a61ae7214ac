package api

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/jamesperreaultdev/Nascraft/internal/economy"
	"github.com/jamesperreaultdev/Nascraft/internal/engine"
	"github.com/jamesperreaultdev/Nascraft/internal/stats"
)

type marketSummary struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Currency    string  `json:"currency"`
	Active      bool    `json:"active"`
	Items       int     `json:"items"`
	CPI         float64 `json:"cpi"`
	LastChange  float64 `json:"last_change"`
	Change1h    float64 `json:"change_1h"`
	Change24h   float64 `json:"change_24h"`
	Operations  int64   `json:"operations_last_hour"`
}

func summarize(m *economy.Market) marketSummary {
	return marketSummary{
		ID:          m.ID(),
		DisplayName: m.DisplayName(),
		Currency:    m.Currency(),
		Active:      m.Active(),
		Items:       len(m.Items()),
		CPI:         m.ConsumerPriceIndex(),
		LastChange:  m.LastChange(),
		Change1h:    m.Change1h(),
		Change24h:   m.Change24h(),
		Operations:  m.Operations(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Status())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", 50, 500)
	events := s.Sim.Events(0)

	// Optional market filter.
	if market := r.URL.Query().Get("market"); market != "" {
		filtered := make([]engine.Event, 0, len(events))
		for _, e := range events {
			if e.Market == market {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	writeJSON(w, events[start:])
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	markets := s.Sim.Registry.All()
	out := make([]marketSummary, 0, len(markets))
	for _, m := range markets {
		out = append(out, summarize(m))
	}
	writeJSON(w, out)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	m, ok := s.market(w, r)
	if !ok {
		return
	}

	type categoryView struct {
		ID      string   `json:"id"`
		Name    string   `json:"name"`
		Members []string `json:"members"`
	}
	cats := m.Categories()
	categories := make([]categoryView, 0, len(cats))
	for _, c := range cats {
		categories = append(categories, categoryView{ID: c.ID(), Name: c.DisplayName(), Members: c.Members()})
	}

	var npcs []string
	for npc, id := range s.Sim.Registry.NPCs() {
		if id == m.ID() {
			npcs = append(npcs, npc)
		}
	}

	lo, hi := m.RestockWindow()
	writeJSON(w, map[string]any{
		"market":      summarize(m),
		"categories":  categories,
		"change_1h":   m.Change1hSeries(),
		"change_24h":  m.Change24hSeries(),
		"restock_min": lo,
		"restock_max": hi,
		"npcs":        npcs,
	})
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	m, ok := s.market(w, r)
	if !ok {
		return
	}

	ids := m.Identifiers()
	if cat := r.URL.Query().Get("category"); cat != "" {
		c, err := m.Category(cat)
		if err != nil {
			writeError(w, err)
			return
		}
		ids = c.Members()
	}

	quotes := make([]economy.Quote, 0, len(ids))
	for _, id := range ids {
		q, err := m.Quote(id)
		if err != nil {
			continue
		}
		quotes = append(quotes, q)
	}
	writeJSON(w, quotes)
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	m, ok := s.market(w, r)
	if !ok {
		return
	}
	id := r.PathValue("identifier")
	q, err := m.Quote(id)
	if err != nil {
		writeError(w, err)
		return
	}
	owner, err := m.Pricing(id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"quote":       q,
		"short_term":  owner.History(),
		"units":       owner.Units(),
		"volume_rank": m.VolumeRank(owner.Identifier()),
		"children":    owner.Children(),
	})
}

// handleFindItem quotes an item from the first market, by id, that trades it.
func (s *Server) handleFindItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("identifier")
	_, m, ok := s.Sim.Registry.ItemAcrossMarkets(id)
	if !ok {
		writeError(w, fmt.Errorf("%w: %s", economy.ErrUnknownItem, id))
		return
	}
	q, err := m.Quote(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"market": m.ID(), "quote": q})
}

// handleHistory exports archived samples. Without since the in-memory
// series is returned; with since (a duration such as "72h") rows are read
// from storage.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	m, ok := s.market(w, r)
	if !ok {
		return
	}
	owner, err := m.Pricing(r.PathValue("identifier"))
	if err != nil {
		writeError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	exp := stats.NewExporter(format)
	if exp == nil {
		http.Error(w, fmt.Sprintf("format must be one of %v", stats.Formats()), http.StatusBadRequest)
		return
	}

	var rows []stats.Instant
	if since := r.URL.Query().Get("since"); since != "" {
		d, err := time.ParseDuration(since)
		if err != nil || d <= 0 {
			http.Error(w, "since must be a positive duration", http.StatusBadRequest)
			return
		}
		rows, err = s.Sim.Store.LoadInstants(r.Context(), m.ID(), owner.Identifier(), time.Now().Add(-d))
		if err != nil {
			writeError(w, err)
			return
		}
	} else {
		rows = s.Sim.Stats.History(m.ID(), owner.Identifier())
	}

	w.Header().Set("Content-Type", exp.ContentType())
	if format != "json" {
		name := m.ID() + "-" + owner.Identifier() + "." + exp.Extension()
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	}
	if err := exp.Export(w, rows); err != nil {
		slog.Error("history export failed", "market", m.ID(), "item", owner.Identifier(), "format", format, "error", err)
	}
}

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	m, ok := s.market(w, r)
	if !ok {
		return
	}
	n := intParam(r, "n", 10, 100)

	var board []economy.Ranked
	by := r.URL.Query().Get("by")
	switch by {
	case "", "gainers":
		by = "gainers"
		board = m.TopGainers(n)
	case "dippers":
		board = m.TopDippers(n)
	case "moved":
		board = m.MostMoved(n)
	case "traded":
		board = m.MostTraded(n)
	default:
		http.Error(w, "by must be gainers, dippers, moved or traded", http.StatusBadRequest)
		return
	}
	if board == nil {
		board = []economy.Ranked{}
	}
	writeJSON(w, map[string]any{"by": by, "entries": board})
}

func (s *Server) handleBenchmark(w http.ResponseWriter, r *http.Request) {
	m, ok := s.market(w, r)
	if !ok {
		return
	}

	base := 100.0
	if b := r.URL.Query().Get("base"); b != "" {
		v, err := strconv.ParseFloat(b, 64)
		if err != nil || !(v > 0) || math.IsInf(v, 0) {
			http.Error(w, "base must be a positive finite number", http.StatusBadRequest)
			return
		}
		base = v
	}

	window := r.URL.Query().Get("window")
	var values []float64
	switch window {
	case "", "1h":
		window = "1h"
		values = m.Benchmark1h(base)
	case "24h":
		values = m.Benchmark24h(base)
	default:
		http.Error(w, "window must be 1h or 24h", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"window": window, "base": base, "values": values})
}
