package pluginplay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gen "github.com/NWChemEx/PluginPlay-sub003/genstore"
	pr "github.com/NWChemEx/PluginPlay-sub003/provider"
	"github.com/NWChemEx/PluginPlay-sub003/provider/badger"
)

const (
	moduleNamespacePrefix = "module:"
	userNamespacePrefix   = "user:"
)

// ModuleNamespace and UserNamespace name the stores the manager creates for a
// module id.
func ModuleNamespace(id string) string { return moduleNamespacePrefix + id }
func UserNamespace(id string) string   { return userNamespacePrefix + id }

// ModuleManagerCache hands out one ModuleCache and one UserCache per module
// id, for the lifetime of the manager. Caches are created on first request
// against the current save location. Safe for concurrent use; the caches it
// returns are not.
type ModuleManagerCache struct {
	opts  Options
	log   Logger
	hooks Hooks

	mu      sync.Mutex
	p       pr.Provider // current save location, nil => memory only
	gens    gen.GenStore
	path    string        // save location of p, "" if not opened by path
	opened  []pr.Provider // opened by ChangeSaveLocation, closed by Close
	modules map[string]*ModuleCache
	users   map[string]*UserCache
	closed  bool
}

func NewModuleManagerCache(opts Options) (*ModuleManagerCache, error) {
	if opts.GenStore != nil && opts.Provider == nil {
		return nil, errors.New("pluginplay: GenStore given without Provider")
	}
	m := &ModuleManagerCache{
		opts:    opts,
		log:     coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:   coalesce[Hooks](opts.Hooks, NopHooks{}),
		p:       opts.Provider,
		gens:    opts.GenStore,
		modules: make(map[string]*ModuleCache),
		users:   make(map[string]*UserCache),
	}
	if m.opts.OpenSaveLocation == nil {
		m.opts.OpenSaveLocation = openBadger
	}
	return m, nil
}

func openBadger(path string) (pr.Provider, error) {
	return badger.New(badger.DefaultConfig(path))
}

func (m *ModuleManagerCache) newStore(ns string) (*Store, error) {
	return NewStore(StoreOptions{
		Namespace:      ns,
		Provider:       m.p,
		GenStore:       m.gens,
		EntryTTL:       m.opts.EntryTTL,
		ComputeSetCost: m.opts.ComputeSetCost,
		KeyOptions:     m.opts.KeyOptions,
		Logger:         m.opts.Logger,
		Hooks:          m.opts.Hooks,
	})
}

var errManagerClosed = errors.New("pluginplay: module manager cache closed")

// GetOrMakeModuleCache returns the module cache of id, creating it on first
// use. The same id always yields the same *ModuleCache.
func (m *ModuleManagerCache) GetOrMakeModuleCache(id string) (*ModuleCache, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.modules[id]; ok {
		return c, nil
	}
	if m.closed {
		return nil, errManagerClosed
	}
	s, err := m.newStore(ModuleNamespace(id))
	if err != nil {
		return nil, fmt.Errorf("pluginplay: module cache %q: %w", id, err)
	}
	c := NewModuleCache(s, m.opts.KeyOptions...)
	m.modules[id] = c
	m.log.Debug("module cache created", Fields{"module": id, "persistent": s.Persistent()})
	return c, nil
}

// GetOrMakeUserCache returns the user cache of id, creating it on first use.
// It never shares storage with the module cache of the same id.
func (m *ModuleManagerCache) GetOrMakeUserCache(id string) (*UserCache, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.users[id]; ok {
		return c, nil
	}
	if m.closed {
		return nil, errManagerClosed
	}
	s, err := m.newStore(UserNamespace(id))
	if err != nil {
		return nil, fmt.Errorf("pluginplay: user cache %q: %w", id, err)
	}
	c := NewUserCache(NewModuleCache(s, m.opts.KeyOptions...))
	m.users[id] = c
	m.log.Debug("user cache created", Fields{"module": id, "persistent": s.Persistent()})
	return c, nil
}

// ChangeSaveLocation makes caches created from now on persist under path.
// An existing save location is reopened and its entries are found again.
// Caches handed out earlier keep their current backing.
//
// If path is held by another process (ErrSaveLocationBusy) the manager logs a
// warning, fires Hooks.SaveLocationBusy and returns nil; caches created from
// then on live in memory only.
func (m *ModuleManagerCache) ChangeSaveLocation(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errManagerClosed
	}
	p, err := m.opts.OpenSaveLocation(path)
	if errors.Is(err, ErrSaveLocationBusy) {
		m.p, m.gens, m.path = nil, nil, ""
		m.log.Warn("save location busy, caching in memory", Fields{"path": path, "err": err})
		m.hooks.SaveLocationBusy(path, err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("pluginplay: open save location %s: %w", path, err)
	}
	m.p = p
	m.gens = gen.NewProviderGenStore(p)
	m.path = path
	m.opened = append(m.opened, p)
	m.log.Info("save location changed", Fields{"path": path})
	return nil
}

// SaveLocation is the path caches created now persist under, or "" when
// they would be memory-only or backed by Options.Provider.
func (m *ModuleManagerCache) SaveLocation() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

// Close releases every save location opened by ChangeSaveLocation plus the
// configured Provider and GenStore. Caches handed out must not be used
// afterwards.
func (m *ModuleManagerCache) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for _, p := range m.opened {
		errs = append(errs, p.Close(ctx))
	}
	if m.opts.GenStore != nil {
		errs = append(errs, m.opts.GenStore.Close(ctx))
	}
	if m.opts.Provider != nil {
		errs = append(errs, m.opts.Provider.Close(ctx))
	}
	return errors.Join(errs...)
}
