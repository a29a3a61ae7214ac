// Package api provides the HTTP API for querying and administering markets.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jamesperreaultdev/Nascraft/internal/economy"
	"github.com/jamesperreaultdev/Nascraft/internal/engine"
)

// Server serves market state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// TradeLimit caps trade requests per client. Nil selects 120 per minute.
	TradeLimit *RateLimiter

	srv *http.Server
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	tradeLimiter := s.TradeLimit
	if tradeLimiter == nil {
		tradeLimiter = NewRateLimiter(120, time.Minute)
	}

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/markets", s.handleMarkets)
	mux.HandleFunc("GET /api/v1/item/{identifier}", s.handleFindItem)
	mux.HandleFunc("GET /api/v1/market/{id}", s.handleMarket)
	mux.HandleFunc("GET /api/v1/market/{id}/items", s.handleItems)
	mux.HandleFunc("GET /api/v1/market/{id}/item/{identifier}", s.handleItem)
	mux.HandleFunc("GET /api/v1/market/{id}/item/{identifier}/history", s.handleHistory)
	mux.HandleFunc("GET /api/v1/market/{id}/rankings", s.handleRankings)
	mux.HandleFunc("GET /api/v1/market/{id}/benchmark", s.handleBenchmark)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("POST /api/v1/markets", s.adminOnly(s.handleCreateMarket))
	mux.HandleFunc("POST /api/v1/market/{id}/trade", s.adminOnly(RateLimitMiddleware(tradeLimiter, s.handleTrade)))
	mux.HandleFunc("POST /api/v1/npc/{npc}/trade", s.adminOnly(RateLimitMiddleware(tradeLimiter, s.handleNPCTrade)))
	mux.HandleFunc("POST /api/v1/market/{id}/halt", s.adminOnly(s.handleHalt))
	mux.HandleFunc("POST /api/v1/market/{id}/resume", s.adminOnly(s.handleResume))
	mux.HandleFunc("POST /api/v1/market/{id}/delete", s.adminOnly(s.handleDeleteMarket))
	mux.HandleFunc("POST /api/v1/market/{id}/npc", s.adminOnly(s.handleNPC))
	mux.HandleFunc("POST /api/v1/halt", s.adminOnly(s.handleHaltAll))
	mux.HandleFunc("POST /api/v1/resume", s.adminOnly(s.handleResumeAll))
	mux.HandleFunc("POST /api/v1/reload", s.adminOnly(s.handleReload))
	mux.HandleFunc("POST /api/v1/flush", s.adminOnly(s.handleFlush))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the server started by Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no NASCRAFT_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) market(w http.ResponseWriter, r *http.Request) (*economy.Market, bool) {
	m, err := s.Sim.Registry.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return m, true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, economy.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, economy.ErrUnknownMarket),
		errors.Is(err, economy.ErrUnknownItem),
		errors.Is(err, economy.ErrUnknownCategory):
		return http.StatusNotFound
	case errors.Is(err, economy.ErrInsufficientStock),
		errors.Is(err, economy.ErrMarketInactive),
		errors.Is(err, engine.ErrLastMarket):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, data any) {
	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("encode response failed", "error", err)
		http.Error(w, "could not encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(append(body, '\n'))
}

// intParam parses a positive integer query parameter, clamped to limit.
func intParam(r *http.Request, name string, def, limit int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return def
	}
	return min(v, limit)
}
