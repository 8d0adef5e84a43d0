package pluginplay

import (
	"time"

	gen "github.com/NWChemEx/PluginPlay-sub003/genstore"
	"github.com/NWChemEx/PluginPlay-sub003/hasher"
	pr "github.com/NWChemEx/PluginPlay-sub003/provider"
)

// SetCostFunc computes the provider cost of one persisted entry. Only
// cost-aware providers (ristretto) look at it.
type SetCostFunc func(storageKey string, raw []byte) int64

// StoreOptions configure a Store. The zero value is a memory-only store.
type StoreOptions struct {
	// Namespace separates stores sharing a provider. Required with Provider.
	Namespace string
	// Provider persists every insert. nil => memory only.
	Provider pr.Provider
	// GenStore holds the namespace generation. nil => ProviderGenStore over
	// Provider.
	GenStore gen.GenStore

	EntryTTL       time.Duration // 0 => entries never expire
	ComputeSetCost SetCostFunc   // default len(raw)
	KeyOptions     []hasher.Option

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used
}

// Options tune a ModuleManagerCache. The zero value keeps every cache in
// memory until ChangeSaveLocation is called.
type Options struct {
	// Provider backs every cache made from now on. ChangeSaveLocation replaces
	// it for caches made afterwards.
	Provider pr.Provider
	// GenStore goes with Provider. nil => ProviderGenStore over Provider.
	GenStore gen.GenStore

	EntryTTL       time.Duration
	ComputeSetCost SetCostFunc
	// KeyOptions select the digest used for input set keys. All processes
	// sharing a save location must agree on them.
	KeyOptions []hasher.Option

	// OpenSaveLocation opens the provider for a ChangeSaveLocation path.
	// nil => a badger database in that directory.
	OpenSaveLocation func(path string) (pr.Provider, error)

	Logger Logger
	Hooks  Hooks
}

func defaultSetCost(_ string, raw []byte) int64 { return int64(len(raw)) }

// coalesce returns def when v is the zero value of T.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
