package pluginplay

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// A persisted entry was deleted by the store on read.
	// reason ∈ {"corrupt", "gen_mismatch", "value_decode"}
	SelfHeal(storageKey, reason string)

	// Provider returned ok=false on Set (backpressure/eviction). The entry
	// stays in memory and misses in later processes.
	ProviderSetRejected(storageKey string)

	// A lookup missed in memory and was served from the provider.
	BackendLoaded(namespace, key string)

	// Clear bumped the namespace generation to gen.
	NamespaceCleared(namespace string, gen uint64)

	// GenStore snapshot or bump failed; the error is also returned.
	GenError(namespace string, err error)

	// ChangeSaveLocation found path locked by another process. Caches made
	// afterwards stay in memory.
	SaveLocationBusy(path string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string)         {}
func (NopHooks) ProviderSetRejected(string)      {}
func (NopHooks) BackendLoaded(string, string)    {}
func (NopHooks) NamespaceCleared(string, uint64) {}
func (NopHooks) GenError(string, error)          {}
func (NopHooks) SaveLocationBusy(string, error)  {}
