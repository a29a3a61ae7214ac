package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/jamesperreaultdev/Nascraft/internal/config"
	"github.com/jamesperreaultdev/Nascraft/internal/economy"
)

type stubBuilder struct {
	built []string
}

func (b *stubBuilder) Build(_ context.Context, id string, def config.MarketDef) (*economy.Market, error) {
	b.built = append(b.built, id)
	m := economy.NewMarket(economy.MarketOptions{ID: id, DisplayName: def.DisplayName})
	if _, err := m.AddItem(economy.ItemDef{Identifier: "stone"}); err != nil {
		return nil, err
	}
	return m, nil
}

type recordingLifecycle struct {
	added, removed, saved []string
	saveErr               error
}

func (l *recordingLifecycle) MarketAdded(m *economy.Market)   { l.added = append(l.added, m.ID()) }
func (l *recordingLifecycle) MarketRemoved(m *economy.Market) { l.removed = append(l.removed, m.ID()) }

func (l *recordingLifecycle) SaveMarket(ctx context.Context, m *economy.Market) error {
	l.saved = append(l.saved, m.ID())
	return l.saveErr
}

func newTestRegistry(t *testing.T, file *config.MarketsFile) (*Registry, *recordingLifecycle, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "markets.toml")
	if file != nil {
		if err := file.Save(path); err != nil {
			t.Fatal(err)
		}
	}
	lc := &recordingLifecycle{}
	r := NewRegistry(path, &stubBuilder{}, lc)
	if err := r.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return r, lc, path
}

func TestRegistry_InitSynthesizesDefault(t *testing.T) {
	r, lc, path := newTestRegistry(t, nil)

	if ids := r.IDs(); !slices.Equal(ids, []string{"default"}) {
		t.Fatalf("IDs() = %v", ids)
	}
	if r.Default().DisplayName() != "Market" {
		t.Errorf("default display name = %q", r.Default().DisplayName())
	}
	if !slices.Equal(lc.added, []string{"default"}) {
		t.Errorf("added = %v", lc.added)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("markets file not written: %v", err)
	}
}

func TestRegistry_CreateDelete(t *testing.T) {
	ctx := context.Background()
	r, lc, path := newTestRegistry(t, nil)

	m, created, err := r.Create(ctx, "Spawn", "Spawn Market")
	if err != nil || !created {
		t.Fatalf("Create() = %v, %v", created, err)
	}
	again, created, err := r.Create(ctx, "spawn", "Other")
	if err != nil || created || again != m {
		t.Errorf("second Create() = %p, %v, %v; want existing market", again, created, err)
	}

	if err := r.BindNPC("trader", "spawn"); err != nil {
		t.Fatal(err)
	}
	if err := r.BindNPC("ghost", "nowhere"); !errors.Is(err, economy.ErrUnknownMarket) {
		t.Errorf("BindNPC(unknown) = %v", err)
	}
	if got, ok := r.MarketForNPC("trader"); !ok || got != m {
		t.Errorf("MarketForNPC() = %v, %v", got, ok)
	}

	saved, err := config.LoadMarkets(path)
	if err != nil {
		t.Fatal(err)
	}
	if saved.Markets["spawn"].DisplayName != "Spawn Market" || saved.NPCs["trader"] != "spawn" {
		t.Errorf("markets file = %+v", saved)
	}

	if err := r.Delete("spawn"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !m.Closed() {
		t.Error("deleted market not closed")
	}
	if r.IsNPCBound("trader") {
		t.Error("npc still bound to deleted market")
	}
	if !slices.Equal(lc.removed, []string{"spawn"}) {
		t.Errorf("removed = %v", lc.removed)
	}

	if err := r.Delete("default"); !errors.Is(err, ErrLastMarket) {
		t.Errorf("Delete(last) = %v, want ErrLastMarket", err)
	}
	if err := r.Delete("missing"); !errors.Is(err, economy.ErrUnknownMarket) {
		t.Errorf("Delete(missing) = %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d", r.Len())
	}
}

func TestRegistry_DefaultFallsBackToFirst(t *testing.T) {
	file := &config.MarketsFile{
		Markets: map[string]config.MarketDef{"zeta": {}, "alpha": {}},
		NPCs:    map[string]string{"bob": "zeta", "lost": "gone"},
	}
	r, _, _ := newTestRegistry(t, file)

	if got := r.Default().ID(); got != "alpha" {
		t.Errorf("Default() = %s, want alpha", got)
	}
	if !r.IsNPCBound("bob") || r.IsNPCBound("lost") {
		t.Errorf("NPCs() = %v", r.NPCs())
	}
	it, m, ok := r.ItemAcrossMarkets("STONE")
	if !ok || it.Identifier() != "stone" || m.ID() != "alpha" {
		t.Errorf("ItemAcrossMarkets() = %v, %v, %v", it, m, ok)
	}
}

func TestRegistry_Reload(t *testing.T) {
	ctx := context.Background()
	r, lc, path := newTestRegistry(t, nil)
	old := r.Default()

	file, err := config.LoadMarkets(path)
	if err != nil {
		t.Fatal(err)
	}
	file.Markets["nether"] = config.MarketDef{DisplayName: "Nether"}
	if err := file.Save(path); err != nil {
		t.Fatal(err)
	}

	if err := r.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if !slices.Equal(r.IDs(), []string{"default", "nether"}) {
		t.Errorf("IDs() = %v", r.IDs())
	}
	if !old.Closed() || r.Default() == old {
		t.Error("old market not replaced")
	}
	if !slices.Equal(lc.saved, []string{"default"}) {
		t.Errorf("saved = %v", lc.saved)
	}
	if !slices.Equal(lc.removed, []string{"default"}) {
		t.Errorf("removed = %v", lc.removed)
	}
}

func TestRegistry_ReloadAbortsWhenSaveFails(t *testing.T) {
	r, lc, _ := newTestRegistry(t, nil)
	old := r.Default()
	lc.saveErr = errors.New("disk full")

	if err := r.Reload(context.Background()); err == nil {
		t.Fatal("Reload() should fail when the current state cannot be saved")
	}
	if r.Default() != old || old.Closed() {
		t.Error("markets replaced after a failed reload")
	}
}

// gatedBuilder blocks in Build until release is closed.
type gatedBuilder struct {
	entered chan struct{}
	release chan struct{}
}

func (b *gatedBuilder) Build(_ context.Context, id string, def config.MarketDef) (*economy.Market, error) {
	if id != config.DefaultMarketID {
		b.entered <- struct{}{}
		<-b.release
	}
	m := economy.NewMarket(economy.MarketOptions{ID: id, DisplayName: def.DisplayName})
	if _, err := m.AddItem(economy.ItemDef{Identifier: "stone"}); err != nil {
		return nil, err
	}
	return m, nil
}

func TestRegistry_CreateDoesNotBlockReads(t *testing.T) {
	b := &gatedBuilder{entered: make(chan struct{}, 2), release: make(chan struct{})}
	r := NewRegistry(filepath.Join(t.TempDir(), "markets.toml"), b, nil)
	if err := r.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	type result struct {
		m       *economy.Market
		created bool
	}
	results := make(chan result, 2)
	for range 2 {
		go func() {
			m, created, err := r.Create(context.Background(), "nether", "Nether")
			if err != nil {
				t.Error(err)
			}
			results <- result{m, created}
		}()
	}
	<-b.entered
	<-b.entered

	done := make(chan struct{})
	go func() {
		r.All()
		r.Get("default")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reads blocked while a market was being built")
	}

	close(b.release)
	first, second := <-results, <-results
	if first.m != second.m || first.created == second.created {
		t.Errorf("racing creates: %+v and %+v, want one created and the same market", first, second)
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestRegistry_HaltResumeAll(t *testing.T) {
	file := &config.MarketsFile{Markets: map[string]config.MarketDef{"a": {}, "b": {}}}
	r, _, _ := newTestRegistry(t, file)

	r.HaltAll()
	for _, m := range r.All() {
		if m.Active() {
			t.Errorf("%s active after HaltAll", m.ID())
		}
	}
	r.ResumeAll()
	for _, m := range r.All() {
		if !m.Active() {
			t.Errorf("%s halted after ResumeAll", m.ID())
		}
	}
}
