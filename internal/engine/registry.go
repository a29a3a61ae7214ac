package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/jamesperreaultdev/Nascraft/internal/config"
	"github.com/jamesperreaultdev/Nascraft/internal/economy"
)

// ErrLastMarket is returned when deleting would leave no markets.
var ErrLastMarket = errors.New("cannot delete the last market")

// Builder turns a market definition into a ready market.
type Builder interface {
	Build(ctx context.Context, id string, def config.MarketDef) (*economy.Market, error)
}

// Lifecycle is notified as markets enter and leave the registry.
type Lifecycle interface {
	MarketAdded(m *economy.Market)
	MarketRemoved(m *economy.Market)
	// SaveMarket writes m's item state to storage before returning.
	SaveMarket(ctx context.Context, m *economy.Market) error
}

// Registry maps market ids to markets and NPC ids to market ids. After
// Init it always holds at least one market.
type Registry struct {
	path      string
	builder   Builder
	lifecycle Lifecycle

	mu      sync.RWMutex
	markets map[string]*economy.Market
	npcs    map[string]string
	file    *config.MarketsFile
}

// NewRegistry returns an empty registry backed by the markets file at path.
// lifecycle may be nil.
func NewRegistry(path string, b Builder, lifecycle Lifecycle) *Registry {
	return &Registry{
		path:      path,
		builder:   b,
		lifecycle: lifecycle,
		markets:   make(map[string]*economy.Market),
		npcs:      make(map[string]string),
	}
}

// Init loads the markets file and builds every market in it. A default
// market is synthesized and saved when the file defines none.
func (r *Registry) Init(ctx context.Context) error {
	file, err := config.LoadMarkets(r.path)
	if err != nil {
		return err
	}

	built, err := r.buildAll(ctx, file)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.file = file
	r.markets = built
	r.npcs = bindings(file, built)
	r.mu.Unlock()

	r.notifyAdded(sortedMarkets(built))
	return nil
}

func (r *Registry) buildAll(ctx context.Context, file *config.MarketsFile) (map[string]*economy.Market, error) {
	built := make(map[string]*economy.Market, len(file.Markets))
	for _, id := range file.IDs() {
		m, err := r.builder.Build(ctx, id, file.Markets[id])
		if err != nil {
			return nil, fmt.Errorf("build market %s: %w", id, err)
		}
		built[id] = m
		slog.Info("loaded market", "market", id, "name", m.DisplayName(), "items", len(m.Items()))
	}

	if len(built) == 0 {
		slog.Warn("no markets defined, creating default market")
		def := config.MarketDef{DisplayName: "Market"}
		m, err := r.builder.Build(ctx, config.DefaultMarketID, def)
		if err != nil {
			return nil, fmt.Errorf("build default market: %w", err)
		}
		file.Markets[config.DefaultMarketID] = def
		built[config.DefaultMarketID] = m
		if err := file.Save(r.path); err != nil {
			slog.Error("could not save markets file", "path", r.path, "error", err)
		}
	}
	return built, nil
}

func bindings(file *config.MarketsFile, built map[string]*economy.Market) map[string]string {
	npcs := make(map[string]string, len(file.NPCs))
	for npc, id := range file.NPCs {
		if _, ok := built[id]; !ok {
			slog.Warn("npc bound to unknown market, ignoring", "npc", npc, "market", id)
			continue
		}
		npcs[npc] = id
	}
	return npcs
}

// Get returns the market with id.
func (r *Registry) Get(id string) (*economy.Market, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.markets[normalizeID(id)]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", economy.ErrUnknownMarket, id)
}

// Exists reports whether a market with id is registered.
func (r *Registry) Exists(id string) bool {
	_, err := r.Get(id)
	return err == nil
}

// Default returns the "default" market if present, otherwise the first by id.
func (r *Registry) Default() *economy.Market {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.markets[config.DefaultMarketID]; ok {
		return m
	}
	ms := sortedMarkets(r.markets)
	if len(ms) == 0 {
		return nil
	}
	return ms[0]
}

// All returns every market sorted by id.
func (r *Registry) All() []*economy.Market {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedMarkets(r.markets)
}

// IDs returns the sorted market ids.
func (r *Registry) IDs() []string {
	ms := r.All()
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.ID()
	}
	return ids
}

// Len returns the number of markets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.markets)
}

// Create registers a market with the global item set. Creating an existing
// id returns the existing market and created=false.
func (r *Registry) Create(ctx context.Context, id, displayName string) (m *economy.Market, created bool, err error) {
	id = normalizeID(id)
	if id == "" {
		return nil, false, errors.New("market id is required")
	}

	if existing, err := r.Get(id); err == nil {
		return existing, false, nil
	}

	// Build may read storage; no lock is held across it.
	def := config.MarketDef{DisplayName: displayName}
	m, err = r.builder.Build(ctx, id, def)
	if err != nil {
		return nil, false, fmt.Errorf("build market %s: %w", id, err)
	}

	r.mu.Lock()
	if existing, ok := r.markets[id]; ok {
		r.mu.Unlock()
		m.Close()
		return existing, false, nil
	}
	r.markets[id] = m
	r.file.Markets[id] = def
	r.saveLocked()
	r.mu.Unlock()

	slog.Info("created market", "market", id, "name", m.DisplayName())
	r.notifyAdded([]*economy.Market{m})
	return m, true, nil
}

// Delete removes a market, its NPC bindings and its definition. The last
// remaining market cannot be deleted. The market is closed so scheduled
// work skips it.
func (r *Registry) Delete(id string) error {
	id = normalizeID(id)

	r.mu.Lock()
	m, ok := r.markets[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", economy.ErrUnknownMarket, id)
	}
	if len(r.markets) <= 1 {
		r.mu.Unlock()
		slog.Warn("refusing to delete the last market", "market", id)
		return ErrLastMarket
	}

	delete(r.markets, id)
	delete(r.file.Markets, id)
	for npc, mid := range r.npcs {
		if mid == id {
			delete(r.npcs, npc)
			delete(r.file.NPCs, npc)
		}
	}
	m.Close()
	r.saveLocked()
	r.mu.Unlock()

	slog.Info("deleted market", "market", id)
	if r.lifecycle != nil {
		r.lifecycle.MarketRemoved(m)
	}
	return nil
}

// Reload re-reads the markets file and rebuilds every market from it. It
// must not run concurrently with trades; old markets are closed and
// replaced wholesale.
func (r *Registry) Reload(ctx context.Context) error {
	file, err := config.LoadMarkets(r.path)
	if err != nil {
		return err
	}
	if r.lifecycle != nil {
		for _, m := range r.All() {
			if err := r.lifecycle.SaveMarket(ctx, m); err != nil {
				return fmt.Errorf("save market %s before reload: %w", m.ID(), err)
			}
		}
	}
	built, err := r.buildAll(ctx, file)
	if err != nil {
		return err
	}

	r.mu.Lock()
	old := sortedMarkets(r.markets)
	r.file = file
	r.markets = built
	r.npcs = bindings(file, built)
	r.mu.Unlock()

	for _, m := range old {
		m.Close()
		if r.lifecycle != nil {
			r.lifecycle.MarketRemoved(m)
		}
	}
	r.notifyAdded(sortedMarkets(built))
	slog.Info("markets reloaded", "markets", len(built))
	return nil
}

// BindNPC routes an NPC's trades to a market.
func (r *Registry) BindNPC(npc, marketID string) error {
	marketID = normalizeID(marketID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.markets[marketID]; !ok {
		return fmt.Errorf("%w: %s", economy.ErrUnknownMarket, marketID)
	}
	r.npcs[npc] = marketID
	r.file.NPCs[npc] = marketID
	r.saveLocked()
	return nil
}

// UnbindNPC removes an NPC binding. It reports whether one existed.
func (r *Registry) UnbindNPC(npc string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.npcs[npc]; !ok {
		return false
	}
	delete(r.npcs, npc)
	delete(r.file.NPCs, npc)
	r.saveLocked()
	return true
}

// MarketForNPC returns the market an NPC is bound to.
func (r *Registry) MarketForNPC(npc string) (*economy.Market, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.npcs[npc]
	if !ok {
		return nil, false
	}
	m, ok := r.markets[id]
	return m, ok
}

// IsNPCBound reports whether an NPC has a market.
func (r *Registry) IsNPCBound(npc string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.npcs[npc]
	return ok
}

// NPCs returns a copy of the NPC bindings.
func (r *Registry) NPCs() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.npcs))
	for k, v := range r.npcs {
		out[k] = v
	}
	return out
}

// ItemAcrossMarkets returns the first item with identifier, searching
// markets in id order.
func (r *Registry) ItemAcrossMarkets(identifier string) (*economy.Item, *economy.Market, bool) {
	for _, m := range r.All() {
		if it, err := m.Item(identifier); err == nil {
			return it, m, true
		}
	}
	return nil, nil, false
}

// HaltAll stops trading in every market.
func (r *Registry) HaltAll() {
	for _, m := range r.All() {
		m.Halt()
	}
}

// ResumeAll reopens trading in every market.
func (r *Registry) ResumeAll() {
	for _, m := range r.All() {
		m.Resume()
	}
}

func (r *Registry) saveLocked() {
	if err := r.file.Save(r.path); err != nil {
		slog.Error("could not save markets file", "path", r.path, "error", err)
	}
}

func (r *Registry) notifyAdded(ms []*economy.Market) {
	if r.lifecycle == nil {
		return
	}
	for _, m := range ms {
		r.lifecycle.MarketAdded(m)
	}
}

func sortedMarkets(markets map[string]*economy.Market) []*economy.Market {
	out := make([]*economy.Market, 0, len(markets))
	for _, m := range markets {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b *economy.Market) int {
		return strings.Compare(a.ID(), b.ID())
	})
	return out
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
