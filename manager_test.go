package pluginplay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/NWChemEx/PluginPlay-sub003/anyvalue"
	"github.com/NWChemEx/PluginPlay-sub003/hasher"
	pr "github.com/NWChemEx/PluginPlay-sub003/provider"
)

func newManager(t *testing.T, opts Options) *ModuleManagerCache {
	t.Helper()
	m, err := NewModuleManagerCache(opts)
	if err != nil {
		t.Fatalf("NewModuleManagerCache: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m
}

func TestManagerIdentityIsStable(t *testing.T) {
	m := newManager(t, Options{})

	a1, err := m.GetOrMakeModuleCache("scf")
	if err != nil {
		t.Fatal(err)
	}
	a2, _ := m.GetOrMakeModuleCache("scf")
	b, _ := m.GetOrMakeModuleCache("mp2")
	if a1 != a2 {
		t.Fatalf("same id gave different module caches")
	}
	if a1 == b {
		t.Fatalf("different ids share a module cache")
	}

	u1, _ := m.GetOrMakeUserCache("scf")
	u2, _ := m.GetOrMakeUserCache("scf")
	if u1 != u2 {
		t.Fatalf("same id gave different user caches")
	}
	if u1.mc == a1 || u1.mc.Store() == a1.Store() {
		t.Fatalf("user cache shares storage with the module cache")
	}
	if a1.Store().Persistent() {
		t.Fatalf("default manager should keep caches in memory")
	}
	if a1.Store().Namespace() != "module:scf" || u1.mc.Store().Namespace() != "user:scf" {
		t.Fatalf("namespaces = %q, %q", a1.Store().Namespace(), u1.mc.Store().Namespace())
	}
}

func TestManagerConcurrentGetOrMake(t *testing.T) {
	m := newManager(t, Options{})
	var wg sync.WaitGroup
	got := make([]*ModuleCache, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = m.GetOrMakeModuleCache("ccsd")
		}(i)
	}
	wg.Wait()
	for _, c := range got {
		if c != got[0] {
			t.Fatalf("concurrent callers got different caches")
		}
	}
}

func TestChangeSaveLocationAffectsLaterCachesOnly(t *testing.T) {
	ctx := context.Background()
	locations := map[string]*memProvider{}
	open := func(path string) (pr.Provider, error) {
		if locations[path] == nil {
			locations[path] = newMemProvider()
		}
		return locations[path], nil
	}
	m := newManager(t, Options{OpenSaveLocation: open})

	before, _ := m.GetOrMakeModuleCache("early")
	if err := m.ChangeSaveLocation("/tmp/run1"); err != nil {
		t.Fatalf("ChangeSaveLocation: %v", err)
	}
	after, _ := m.GetOrMakeModuleCache("late")

	if before.Store().Persistent() || !after.Store().Persistent() {
		t.Fatalf("persistence: before=%v after=%v", before.Store().Persistent(), after.Store().Persistent())
	}

	in := InputSet{"x": Input(1.0)}
	if err := after.Cache(ctx, in, ResultSet{"y": Result(2.0)}); err != nil {
		t.Fatalf("Cache: %v", err)
	}
	key, _ := in.Key()
	if !locations["/tmp/run1"].has(entryKey("module:late", key)) {
		t.Fatalf("result not written to the save location")
	}

	if err := m.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !locations["/tmp/run1"].closed {
		t.Fatalf("Close did not release the save location")
	}
	if _, err := m.GetOrMakeModuleCache("new"); err == nil {
		t.Fatalf("closed manager handed out a new cache")
	}
	if err := m.ChangeSaveLocation("/tmp/run2"); err == nil {
		t.Fatalf("closed manager changed save location")
	}
}

func TestChangeSaveLocationOpenError(t *testing.T) {
	boom := errors.New("disk on fire")
	m := newManager(t, Options{OpenSaveLocation: func(string) (pr.Provider, error) { return nil, boom }})
	if err := m.ChangeSaveLocation("/x"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	c, _ := m.GetOrMakeModuleCache("m")
	if c.Store().Persistent() {
		t.Fatalf("failed ChangeSaveLocation must not change the backing")
	}
}

func TestManagerWithProvider(t *testing.T) {
	ctx := context.Background()
	p := newMemProvider()
	opts := Options{Provider: p, KeyOptions: []hasher.Option{hasher.WithAlgorithm(hasher.XXHash64)}}

	m1 := newManager(t, opts)
	u, _ := m1.GetOrMakeUserCache("scf")
	if err := u.Cache(ctx, "guess", "core"); err != nil {
		t.Fatalf("Cache: %v", err)
	}

	m2 := newManager(t, opts)
	u2, _ := m2.GetOrMakeUserCache("scf")
	if got := UncacheOr(ctx, u2, "guess", ""); got != "core" {
		t.Fatalf("second manager sees %q", got)
	}

	if err := m1.Close(ctx); err != nil || !p.closed {
		t.Fatalf("Close should close the configured provider: %v", err)
	}
}

func TestManagerOptionsValidation(t *testing.T) {
	if _, err := NewModuleManagerCache(Options{GenStore: nopGenStore{}}); err == nil {
		t.Fatalf("GenStore without Provider accepted")
	}
}

func TestSaveLocationSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	in := InputSet{"basis": Input("sto-3g"), "charge": Input(0)}

	m1, err := NewModuleManagerCache(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := m1.ChangeSaveLocation(dir); err != nil {
		t.Fatalf("ChangeSaveLocation: %v", err)
	}
	mc, _ := m1.GetOrMakeModuleCache("scf")
	if err := mc.Cache(ctx, in, ResultSet{"energy": Result(-1.137)}); err != nil {
		t.Fatalf("Cache: %v", err)
	}
	uc, _ := m1.GetOrMakeUserCache("scf")
	_ = uc.Cache(ctx, "iterations", 12)
	if err := m1.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	m2, err := NewModuleManagerCache(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer m2.Close(ctx)
	if err := m2.ChangeSaveLocation(dir); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	mc2, _ := m2.GetOrMakeModuleCache("scf")
	rs, err := mc2.Uncache(ctx, in)
	if err != nil {
		t.Fatalf("Uncache after restart: %v", err)
	}
	if e, _ := anyvalue.Cast[float64](rs["energy"].Value); e != -1.137 {
		t.Fatalf("energy = %v", e)
	}
	uc2, _ := m2.GetOrMakeUserCache("scf")
	if n := UncacheOr(ctx, uc2, "iterations", 0); n != 12 {
		t.Fatalf("user value after restart = %d", n)
	}

	// badger enumerates, so a fresh store can load everything up front
	fresh, _ := m2.GetOrMakeModuleCache("scf")
	fresh.Store().entries = map[string]*entry{}
	n, err := fresh.Store().Load(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Load = %d, %v", n, err)
	}

	if err := mc2.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if ok, _ := mc2.Count(ctx, in); ok {
		t.Fatalf("cleared entry still visible")
	}
}

func TestModuleIDsSharingAPrefixStayIsolated(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	in := InputSet{"basis": Input("cc-pvdz")}

	m1, err := NewModuleManagerCache(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := m1.ChangeSaveLocation(dir); err != nil {
		t.Fatal(err)
	}
	scf, _ := m1.GetOrMakeModuleCache("scf")
	scfDF, _ := m1.GetOrMakeModuleCache("scf:df")
	if err := scfDF.Cache(ctx, in, ResultSet{"energy": Result(-76.4)}); err != nil {
		t.Fatal(err)
	}

	n, err := scf.Store().Load(ctx)
	if err != nil || n != 0 {
		t.Fatalf("Load of scf pulled %d entries (keys %v), err %v", n, scf.Store().Keys(), err)
	}
	if err := scf.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := scf.Store().Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m1.Close(ctx); err != nil {
		t.Fatal(err)
	}

	m2, err := NewModuleManagerCache(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer m2.Close(ctx)
	if err := m2.ChangeSaveLocation(dir); err != nil {
		t.Fatal(err)
	}
	again, _ := m2.GetOrMakeModuleCache("scf:df")
	if ok, err := again.Count(ctx, in); err != nil || !ok {
		t.Fatalf("scf:df result lost after clearing scf: %v, %v", ok, err)
	}
}

type nopGenStore struct{}

func (nopGenStore) Snapshot(context.Context, string) (uint64, error) { return 0, nil }
func (nopGenStore) SnapshotMany(context.Context, []string) (map[string]uint64, error) {
	return map[string]uint64{}, nil
}
func (nopGenStore) Bump(context.Context, string) (uint64, error) { return 1, nil }
func (nopGenStore) Close(context.Context) error                  { return nil }

func TestBusySaveLocationFallsBackToMemory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	in := InputSet{"basis": Input("sto-3g")}

	owner := newManager(t, Options{})
	if err := owner.ChangeSaveLocation(dir); err != nil {
		t.Fatalf("first open: %v", err)
	}
	if got := owner.SaveLocation(); got != dir {
		t.Fatalf("SaveLocation = %q", got)
	}

	h := newRecHooks()
	second := newManager(t, Options{Hooks: h})
	if err := second.ChangeSaveLocation(dir); err != nil {
		t.Fatalf("busy save location must degrade, got %v", err)
	}
	if got := second.SaveLocation(); got != "" {
		t.Fatalf("SaveLocation after busy = %q", got)
	}
	if len(h.busy) != 1 || h.busy[0] != dir {
		t.Fatalf("busy hook = %v", h.busy)
	}

	mc, err := second.GetOrMakeModuleCache("scf")
	if err != nil {
		t.Fatal(err)
	}
	if mc.Store().Persistent() {
		t.Fatalf("cache of busy manager should be memory-only")
	}
	if err := mc.Cache(ctx, in, ResultSet{"energy": Result(-1.1)}); err != nil {
		t.Fatalf("Cache: %v", err)
	}
	if ok, _ := mc.Count(ctx, in); !ok {
		t.Fatalf("memory-only cache lost its entry")
	}

	oc, _ := owner.GetOrMakeModuleCache("scf")
	if !oc.Store().Persistent() {
		t.Fatalf("owner lost its save location")
	}
}

func TestWrappedBusyErrorFromCustomOpener(t *testing.T) {
	m := newManager(t, Options{OpenSaveLocation: func(p string) (pr.Provider, error) {
		return nil, fmt.Errorf("nfs share %s: %w", p, ErrSaveLocationBusy)
	}})
	if err := m.ChangeSaveLocation("/shared"); err != nil {
		t.Fatalf("err = %v", err)
	}
	c, _ := m.GetOrMakeModuleCache("m")
	if c.Store().Persistent() {
		t.Fatalf("busy location must leave caches in memory")
	}
}
