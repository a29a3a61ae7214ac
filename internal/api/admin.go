package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jamesperreaultdev/Nascraft/internal/economy"
)

type tradeRequest struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
	Side     string `json:"side"` // "buy" or "sell"
	Trader   string `json:"trader"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	m, ok := s.market(w, r)
	if !ok {
		return
	}
	s.trade(w, r, m, "")
}

// handleNPCTrade routes a trade to the market the NPC is bound to.
func (s *Server) handleNPCTrade(w http.ResponseWriter, r *http.Request) {
	npc := r.PathValue("npc")
	m, ok := s.Sim.Registry.MarketForNPC(npc)
	if !ok {
		writeError(w, fmt.Errorf("%w: npc %s is not bound", economy.ErrUnknownMarket, npc))
		return
	}
	s.trade(w, r, m, npc)
}

func (s *Server) trade(w http.ResponseWriter, r *http.Request, m *economy.Market, npc string) {
	var req tradeRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Trader == "" {
		req.Trader = npc
	}

	var (
		receipt economy.Trade
		err     error
	)
	switch strings.ToLower(req.Side) {
	case "buy":
		receipt, err = m.Buy(req.Item, req.Quantity, req.Trader)
	case "sell":
		receipt, err = m.Sell(req.Item, req.Quantity, req.Trader)
	default:
		http.Error(w, "side must be buy or sell", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Debug("trade", "market", m.ID(), "item", receipt.Item, "side", receipt.Direction,
		"units", receipt.Units, "total", receipt.Total.String(), "trader", receipt.Trader)
	writeJSON(w, receipt)
}

func (s *Server) handleHalt(w http.ResponseWriter, r *http.Request) {
	m, ok := s.market(w, r)
	if !ok {
		return
	}
	m.Halt()
	slog.Info("market halted", "market", m.ID())
	s.Sim.AddEvent("admin", m.ID(), "trading halted")
	writeJSON(w, summarize(m))
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	m, ok := s.market(w, r)
	if !ok {
		return
	}
	m.Resume()
	slog.Info("market resumed", "market", m.ID())
	s.Sim.AddEvent("admin", m.ID(), "trading resumed")
	writeJSON(w, summarize(m))
}

func (s *Server) handleHaltAll(w http.ResponseWriter, r *http.Request) {
	s.Sim.Registry.HaltAll()
	slog.Warn("all markets halted")
	s.Sim.AddEvent("admin", "", "trading halted in every market")
	s.handleMarkets(w, r)
}

func (s *Server) handleResumeAll(w http.ResponseWriter, r *http.Request) {
	s.Sim.Registry.ResumeAll()
	slog.Info("all markets resumed")
	s.Sim.AddEvent("admin", "", "trading resumed in every market")
	s.handleMarkets(w, r)
}

func (s *Server) handleCreateMarket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	m, created, err := s.Sim.Registry.Create(r.Context(), req.ID, req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	if created {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
	}
	writeJSON(w, summarize(m))
}

func (s *Server) handleDeleteMarket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.Sim.Registry.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"deleted": id})
}

func (s *Server) handleNPC(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NPC    string `json:"npc"`
		Unbind bool   `json:"unbind"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.NPC == "" {
		http.Error(w, "npc is required", http.StatusBadRequest)
		return
	}

	if req.Unbind {
		writeJSON(w, map[string]any{"npc": req.NPC, "unbound": s.Sim.Registry.UnbindNPC(req.NPC)})
		return
	}
	id := r.PathValue("id")
	if err := s.Sim.Registry.BindNPC(req.NPC, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"npc": req.NPC, "market": strings.ToLower(id)})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Sim.Registry.Reload(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	s.Sim.AddEvent("admin", "", "markets reloaded")
	writeJSON(w, map[string]any{"markets": s.Sim.Registry.IDs()})
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	s.Sim.FlushAll()
	writeJSON(w, map[string]int{"queued": s.Sim.Exec.Pending()})
}
