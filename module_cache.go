package pluginplay

import (
	"context"
	"fmt"
	"sort"

	"github.com/NWChemEx/PluginPlay-sub003/anyvalue"
	"github.com/NWChemEx/PluginPlay-sub003/codec"
	"github.com/NWChemEx/PluginPlay-sub003/hasher"
	"github.com/NWChemEx/PluginPlay-sub003/internal/wire"
)

// ModuleInput is one named input of a module call. Transparent inputs take
// part in the call but not in the cache key: calls differing only in them
// share results.
type ModuleInput struct {
	Value       anyvalue.Value
	Transparent bool
	Optional    bool
	Description string
}

// Input wraps v as an opaque input.
func Input(v any) ModuleInput { return ModuleInput{Value: anyvalue.FromAny(v)} }

// TransparentInput wraps v as an input that does not affect the cache key.
func TransparentInput(v any) ModuleInput {
	return ModuleInput{Value: anyvalue.FromAny(v), Transparent: true}
}

type InputSet map[string]ModuleInput

// Key is the cache key of the input set: the hex digest of every input name,
// in sorted order, each followed by its value or, for transparent inputs, by
// the hasher sentinel.
func (in InputSet) Key(opts ...hasher.Option) (string, error) {
	names := make([]string, 0, len(in))
	for n := range in {
		names = append(names, n)
	}
	sort.Strings(names)

	h := hasher.New(opts...)
	for _, n := range names {
		var err error
		if in[n].Transparent {
			err = h.Hash(n, hasher.Sentinel{})
		} else {
			err = h.Hash(n, in[n].Value)
		}
		if err != nil {
			return "", fmt.Errorf("pluginplay: hash input %q: %w", n, err)
		}
	}
	return h.Hex(), nil
}

type ModuleResult struct {
	Value       anyvalue.Value
	Description string
}

// Result wraps v as a result.
func Result(v any) ModuleResult { return ModuleResult{Value: anyvalue.FromAny(v)} }

type ResultSet map[string]ModuleResult

// Equal compares names, descriptions and values.
func (rs ResultSet) Equal(o ResultSet) bool {
	if len(rs) != len(o) {
		return false
	}
	for n, r := range rs {
		or, ok := o[n]
		if !ok || r.Description != or.Description || !r.Value.Equal(or.Value) {
			return false
		}
	}
	return true
}

func (rs ResultSet) clone() ResultSet {
	if rs == nil {
		return nil
	}
	out := make(ResultSet, len(rs))
	for n, r := range rs {
		out[n] = r
	}
	return out
}

type persistedResult struct {
	Description string `cbor:"1,keyasint,omitempty"`
	Value       []byte `cbor:"2,keyasint"`
}

var persistedResultCodec = codec.MustCBOR[persistedResult](true)

// resultSetCodec frames a result set as one wire field per result, sorted by
// name. Every result value must have a registered type.
type resultSetCodec struct{}

func (resultSetCodec) Encode(rs ResultSet) ([]byte, error) {
	names := make([]string, 0, len(rs))
	for n := range rs {
		names = append(names, n)
	}
	sort.Strings(names)

	fields := make([]wire.Field, 0, len(rs))
	for _, n := range names {
		v, err := anyvalue.Marshal(rs[n].Value)
		if err != nil {
			return nil, fmt.Errorf("result %q: %w", n, err)
		}
		b, err := persistedResultCodec.Encode(persistedResult{Description: rs[n].Description, Value: v})
		if err != nil {
			return nil, fmt.Errorf("result %q: %w", n, err)
		}
		fields = append(fields, wire.Field{Name: n, Payload: b})
	}
	return wire.EncodeFields(fields)
}

func (resultSetCodec) Decode(b []byte) (ResultSet, error) {
	fields, err := wire.DecodeFields(b)
	if err != nil {
		return nil, err
	}
	rs := make(ResultSet, len(fields))
	for _, f := range fields {
		pr, err := persistedResultCodec.Decode(f.Payload)
		if err != nil {
			return nil, fmt.Errorf("result %q: %w", f.Name, err)
		}
		v, err := anyvalue.Unmarshal(pr.Value)
		if err != nil {
			return nil, fmt.Errorf("result %q: %w", f.Name, err)
		}
		rs[f.Name] = ModuleResult{Value: v, Description: pr.Description}
	}
	return rs, nil
}

func init() {
	anyvalue.MustRegister[ResultSet]("pluginplay.ResultSet", resultSetCodec{})
}

// ModuleCache memoizes the results of one module by input set. The zero
// value (and a nil *ModuleCache) is a placeholder: it never hits and refuses
// writes with ErrNoBacking.
type ModuleCache struct {
	store   *Store
	keyOpts []hasher.Option
}

// NewModuleCache memoizes into s. opts select the key digest.
func NewModuleCache(s *Store, opts ...hasher.Option) *ModuleCache {
	return &ModuleCache{store: s, keyOpts: opts}
}

func (c *ModuleCache) backed() bool { return c != nil && c.store != nil }

// Count reports whether results for in are cached.
func (c *ModuleCache) Count(ctx context.Context, in InputSet) (bool, error) {
	if !c.backed() {
		return false, nil
	}
	key, err := in.Key(c.keyOpts...)
	if err != nil {
		return false, err
	}
	n, err := c.store.Count(ctx, key)
	return n > 0, err
}

// Cache records out as the results for in, replacing earlier results.
func (c *ModuleCache) Cache(ctx context.Context, in InputSet, out ResultSet) error {
	if !c.backed() {
		return ErrNoBacking
	}
	key, err := in.Key(c.keyOpts...)
	if err != nil {
		return err
	}
	return c.store.Insert(ctx, key, out.clone())
}

// Uncache returns the results cached for in, or ErrNotFound.
func (c *ModuleCache) Uncache(ctx context.Context, in InputSet) (ResultSet, error) {
	if !c.backed() {
		return nil, ErrNoBacking
	}
	key, err := in.Key(c.keyOpts...)
	if err != nil {
		return nil, err
	}
	h, err := At[ResultSet](ctx, c.store, key)
	if err != nil {
		return nil, err
	}
	defer h.Release()
	return h.Get().clone(), nil
}

// Clear forgets every cached result, persisted ones included.
func (c *ModuleCache) Clear(ctx context.Context) error {
	if !c.backed() {
		return nil
	}
	return c.store.Clear(ctx)
}

// Len is the number of resident result sets.
func (c *ModuleCache) Len() int {
	if !c.backed() {
		return 0
	}
	return c.store.Len()
}

// Store exposes the backing store, nil for a placeholder.
func (c *ModuleCache) Store() *Store {
	if c == nil {
		return nil
	}
	return c.store
}
