package pluginplay

import (
	"context"
	"errors"
	"iter"
	"sort"
	"sync/atomic"

	"github.com/NWChemEx/PluginPlay-sub003/anyvalue"
	gen "github.com/NWChemEx/PluginPlay-sub003/genstore"
	"github.com/NWChemEx/PluginPlay-sub003/hasher"
)

// entry is one stored value. refs counts the stores holding it plus the
// handles not yet released.
type entry struct {
	val  anyvalue.Value
	refs atomic.Int64
}

func newEntry(v anyvalue.Value) *entry {
	e := &entry{val: v}
	e.refs.Store(1)
	return e
}

// Store maps hash-string keys to shared values. With a Provider every insert
// is written through and lookups that miss in memory fall back to it.
//
// A Store is not safe for concurrent use.
type Store struct {
	ns      string
	entries map[string]*entry
	back    *backing // nil => memory only
	keyOpts []hasher.Option

	log   Logger
	hooks Hooks
}

// NewMemoryStore returns a store that never persists.
func NewMemoryStore() *Store {
	s, _ := NewStore(StoreOptions{})
	return s
}

func NewStore(opts StoreOptions) (*Store, error) {
	s := &Store{
		ns:      opts.Namespace,
		entries: make(map[string]*entry),
		keyOpts: opts.KeyOptions,
		log:     coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:   coalesce[Hooks](opts.Hooks, NopHooks{}),
	}
	if opts.Provider == nil {
		return s, nil
	}
	if opts.Namespace == "" {
		return nil, errors.New("pluginplay: namespace is required with a provider")
	}
	gs := opts.GenStore
	if gs == nil {
		gs = gen.NewProviderGenStore(opts.Provider)
	}
	cost := opts.ComputeSetCost
	if cost == nil {
		cost = defaultSetCost
	}
	s.back = &backing{
		ns:    opts.Namespace,
		p:     opts.Provider,
		gens:  gs,
		ttl:   opts.EntryTTL,
		cost:  cost,
		log:   s.log,
		hooks: s.hooks,
	}
	return s, nil
}

func (s *Store) Namespace() string { return s.ns }

// Persistent reports whether inserts are written to a provider.
func (s *Store) Persistent() bool { return s.back != nil }

func (s *Store) keyErr(op, key string, err error) error {
	return &KeyError{Op: op, Namespace: s.ns, Key: key, Err: err}
}

// lookup finds key in memory, then in the provider. A provider hit becomes
// resident.
func (s *Store) lookup(ctx context.Context, key string) (*entry, error) {
	if e, ok := s.entries[key]; ok {
		return e, nil
	}
	if s.back == nil {
		return nil, nil
	}
	v, ok, err := s.back.load(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	e := newEntry(v)
	s.entries[key] = e
	s.hooks.BackendLoaded(s.ns, key)
	return e, nil
}

func (s *Store) put(key string, e *entry) {
	if old, ok := s.entries[key]; ok {
		old.refs.Add(-1)
	}
	s.entries[key] = e
}

// Insert stores v under key, replacing any previous value. v is copied unless
// it is an anyvalue.Value, which is stored as is (a reference stays a
// reference). Handles to the replaced value remain valid.
//
// On a persistent store v must have a registered type; otherwise Insert fails
// with ErrUnregistered and the store is unchanged.
func (s *Store) Insert(ctx context.Context, key string, v any) error {
	val := anyvalue.FromAny(v)
	if s.back != nil {
		if err := s.back.save(ctx, key, val); err != nil {
			return s.keyErr("insert", key, err)
		}
	}
	s.put(key, newEntry(val))
	return nil
}

// InsertValue stores v under the hex digest of v and returns that key.
func (s *Store) InsertValue(ctx context.Context, v any) (string, error) {
	h := hasher.New(s.keyOpts...)
	if err := h.Hash(v); err != nil {
		return "", err
	}
	key := h.Hex()
	return key, s.Insert(ctx, key, v)
}

// Count returns 1 if key is present, 0 otherwise.
func (s *Store) Count(ctx context.Context, key string) (int, error) {
	e, err := s.lookup(ctx, key)
	if err != nil {
		return 0, s.keyErr("count", key, err)
	}
	if e == nil {
		return 0, nil
	}
	return 1, nil
}

// UseCount is the number of holders of the value under key: the store itself
// plus outstanding handles (plus other stores sharing it after Synchronize).
// 0 when key is not resident.
func (s *Store) UseCount(key string) int {
	e, ok := s.entries[key]
	if !ok {
		return 0
	}
	return int(e.refs.Load())
}

// Erase removes key from the provider, then from memory. Handles keep the
// value alive. Erasing a missing key is not an error. If the provider delete
// fails the store is unchanged.
func (s *Store) Erase(ctx context.Context, key string) error {
	if s.back != nil {
		if err := s.back.del(ctx, key); err != nil {
			return s.keyErr("erase", key, err)
		}
	}
	if e, ok := s.entries[key]; ok {
		delete(s.entries, key)
		e.refs.Add(-1)
	}
	return nil
}

// Entry is a key/value pair of a Store, as produced by iteration.
type Entry struct {
	Key   string
	Value anyvalue.Value
	e     *entry
}

// Find returns the entry under key.
func (s *Store) Find(ctx context.Context, key string) (Entry, bool, error) {
	e, err := s.lookup(ctx, key)
	if err != nil {
		return Entry{}, false, s.keyErr("find", key, err)
	}
	if e == nil {
		return Entry{}, false, nil
	}
	return Entry{Key: key, Value: e.val, e: e}, true, nil
}

// Keys returns the resident keys in ascending order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len is the number of resident entries.
func (s *Store) Len() int { return len(s.entries) }

// Entries returns the resident entries in key order.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, k := range s.Keys() {
		e := s.entries[k]
		out = append(out, Entry{Key: k, Value: e.val, e: e})
	}
	return out
}

// All iterates the resident entries in key order. Persisted entries become
// resident once looked up, or all at once through Load.
func (s *Store) All() iter.Seq2[string, anyvalue.Value] {
	return func(yield func(string, anyvalue.Value) bool) {
		for _, k := range s.Keys() {
			e, ok := s.entries[k]
			if !ok {
				continue // erased by the loop body
			}
			if !yield(k, e.val) {
				return
			}
		}
	}
}

// Load makes every current persisted entry resident and returns how many
// were loaded. Providers that cannot enumerate keys load nothing.
func (s *Store) Load(ctx context.Context) (int, error) {
	if s.back == nil {
		return 0, nil
	}
	keys, ok, err := s.back.keys(ctx)
	if err != nil || !ok {
		return 0, err
	}
	n := 0
	for _, k := range keys {
		if _, resident := s.entries[k]; resident {
			continue
		}
		e, err := s.lookup(ctx, k)
		if err != nil {
			return n, s.keyErr("load", k, err)
		}
		if e != nil {
			n++
		}
	}
	return n, nil
}

// Synchronize copies into s every entry of other whose key s does not have.
// Existing keys are never overwritten and other is never modified. Copied
// entries are shared, so their use count rises.
func (s *Store) Synchronize(ctx context.Context, other *Store) error {
	if other == nil || other == s {
		return nil
	}
	for _, k := range other.Keys() {
		mine, err := s.lookup(ctx, k)
		if err != nil {
			return s.keyErr("synchronize", k, err)
		}
		if mine != nil {
			continue
		}
		oe := other.entries[k]
		if s.back != nil {
			if err := s.back.save(ctx, k, oe.val); err != nil {
				return s.keyErr("synchronize", k, err)
			}
		}
		oe.refs.Add(1)
		s.entries[k] = oe
	}
	return nil
}

// Equal reports whether both stores hold the same resident keys with equal
// values.
func (s *Store) Equal(other *Store) bool {
	if s == other {
		return true
	}
	if other == nil || len(s.entries) != len(other.entries) {
		return false
	}
	for k, e := range s.entries {
		oe, ok := other.entries[k]
		if !ok || !e.val.Equal(oe.val) {
			return false
		}
	}
	return true
}

// Clear drops every resident entry and invalidates everything persisted
// under the namespace.
func (s *Store) Clear(ctx context.Context) error {
	for _, e := range s.entries {
		e.refs.Add(-1)
	}
	clear(s.entries)
	if s.back != nil {
		return s.back.clear(ctx)
	}
	return nil
}

// Handle is a shared reference to a stored value. It stays valid after the
// value is erased or replaced in the store. Release it when done.
type Handle[T any] struct {
	key      string
	e        *entry
	ptr      *T
	released atomic.Bool
}

// At returns a handle to the value under key, viewed as T.
func At[T any](ctx context.Context, s *Store, key string) (*Handle[T], error) {
	e, err := s.lookup(ctx, key)
	if err != nil {
		return nil, s.keyErr("at", key, err)
	}
	if e == nil {
		return nil, s.keyErr("at", key, ErrNotFound)
	}
	h, err := newHandle[T](key, e)
	if err != nil {
		return nil, s.keyErr("at", key, err)
	}
	return h, nil
}

// AtEntry is At for an entry obtained from Find or iteration.
func AtEntry[T any](en Entry) (*Handle[T], error) {
	if en.e == nil {
		return nil, &KeyError{Op: "at", Key: en.Key, Err: ErrNotFound}
	}
	h, err := newHandle[T](en.Key, en.e)
	if err != nil {
		return nil, &KeyError{Op: "at", Key: en.Key, Err: err}
	}
	return h, nil
}

func newHandle[T any](key string, e *entry) (*Handle[T], error) {
	p, err := anyvalue.CastConstRef[T](e.val)
	if err != nil {
		return nil, err
	}
	e.refs.Add(1)
	return &Handle[T]{key: key, e: e, ptr: p}, nil
}

func (h *Handle[T]) Get() T { return *h.ptr }

// Ptr points at the stored value for writing. Writes are seen by every
// holder. Values inserted as anyvalue.ConstRef stay read-only: Ptr fails with
// ErrBadCast for them.
func (h *Handle[T]) Ptr() (*T, error) {
	p, err := anyvalue.CastRef[T](h.e.val)
	if err != nil {
		return nil, &KeyError{Op: "ptr", Key: h.key, Err: err}
	}
	return p, nil
}

func (h *Handle[T]) Value() anyvalue.Value { return h.e.val }

func (h *Handle[T]) Key() string { return h.key }

func (h *Handle[T]) UseCount() int { return int(h.e.refs.Load()) }

// Release gives up this handle's reference. Further calls do nothing.
func (h *Handle[T]) Release() {
	if h.released.CompareAndSwap(false, true) {
		h.e.refs.Add(-1)
	}
}
