// Package asynchook moves hook work off the cache's call path. Events go to a
// bounded queue served by worker goroutines; when the queue is full, events
// are dropped rather than blocking the caller.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SelfHealEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	m, _ := pluginplay.NewModuleManagerCache(pluginplay.Options{Hooks: hooks})
package asynchook

import (
	"sync"
	"sync/atomic"

	pluginplay "github.com/NWChemEx/PluginPlay-sub003"
)

type Hooks struct {
	inner   pluginplay.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
}

var _ pluginplay.Hooks = (*Hooks)(nil)

func New(inner pluginplay.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains the queue and stops the workers. Events sent after Close are
// dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped counts events lost to a full queue.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	defer func() {
		// send on a closed queue
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) SelfHeal(k, r string)          { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) ProviderSetRejected(k string)  { h.try(func() { h.inner.ProviderSetRejected(k) }) }
func (h *Hooks) BackendLoaded(ns, k string)    { h.try(func() { h.inner.BackendLoaded(ns, k) }) }
func (h *Hooks) GenError(ns string, err error) { h.try(func() { h.inner.GenError(ns, err) }) }
func (h *Hooks) SaveLocationBusy(path string, err error) {
	h.try(func() { h.inner.SaveLocationBusy(path, err) })
}
func (h *Hooks) NamespaceCleared(ns string, g uint64) {
	h.try(func() { h.inner.NamespaceCleared(ns, g) })
}
