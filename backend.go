package pluginplay

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/NWChemEx/PluginPlay-sub003/anyvalue"
	gen "github.com/NWChemEx/PluginPlay-sub003/genstore"
	"github.com/NWChemEx/PluginPlay-sub003/internal/util"
	"github.com/NWChemEx/PluginPlay-sub003/internal/wire"
	pr "github.com/NWChemEx/PluginPlay-sub003/provider"
)

// backing writes a store through to a provider. Every entry is framed with
// the namespace generation current at write time; reads drop entries whose
// generation no longer matches.
type backing struct {
	ns    string
	p     pr.Provider
	gens  gen.GenStore
	ttl   time.Duration
	cost  SetCostFunc
	log   Logger
	hooks Hooks
}

func (b *backing) storageKey(key string) string {
	return util.StorageKey(util.KindEntry, b.ns, key)
}

func (b *backing) generation(ctx context.Context) (uint64, error) {
	g, err := b.gens.Snapshot(ctx, b.ns)
	if err != nil {
		b.hooks.GenError(b.ns, err)
		return 0, err
	}
	return g, nil
}

func (b *backing) save(ctx context.Context, key string, v anyvalue.Value) error {
	payload, err := anyvalue.Marshal(v)
	if err != nil {
		return err
	}
	g, err := b.generation(ctx)
	if err != nil {
		return err
	}
	sk := b.storageKey(key)
	raw, err := wire.EncodeSingle(g, payload)
	if err != nil {
		return err
	}
	ok, err := b.p.Set(ctx, sk, raw, b.cost(sk, raw), b.ttl)
	if err != nil {
		return err
	}
	if !ok {
		b.log.Debug("write rejected by provider (pressure)", Fields{"key": sk})
		b.hooks.ProviderSetRejected(sk)
	}
	return nil
}

// load returns ok=false for anything that is not a valid, current entry.
// Entries of types this process never registered are left in place: another
// program sharing the save location may own them.
func (b *backing) load(ctx context.Context, key string) (anyvalue.Value, bool, error) {
	sk := b.storageKey(key)
	raw, ok, err := b.p.Get(ctx, sk)
	if err != nil || !ok {
		return anyvalue.Value{}, false, err
	}
	g, payload, err := wire.DecodeSingle(raw)
	if err != nil {
		return b.heal(ctx, sk, "corrupt")
	}
	cur, err := b.generation(ctx)
	if err != nil {
		return anyvalue.Value{}, false, err
	}
	if g != cur {
		return b.heal(ctx, sk, "gen_mismatch")
	}
	v, err := anyvalue.Unmarshal(payload)
	if errors.Is(err, anyvalue.ErrUnregistered) {
		b.log.Debug("skipping persisted entry of unknown type", Fields{"key": sk, "err": err.Error()})
		return anyvalue.Value{}, false, nil
	}
	if err != nil {
		return b.heal(ctx, sk, "value_decode")
	}
	return v, true, nil
}

func (b *backing) heal(ctx context.Context, sk, reason string) (anyvalue.Value, bool, error) {
	_ = b.p.Del(ctx, sk) // best effort; a failed delete is retried on the next read
	b.hooks.SelfHeal(sk, reason)
	b.log.Debug("dropped persisted entry", Fields{"key": sk, "reason": reason})
	return anyvalue.Value{}, false, nil
}

func (b *backing) del(ctx context.Context, key string) error {
	return b.p.Del(ctx, b.storageKey(key))
}

// clear invalidates every persisted entry of the namespace at once.
func (b *backing) clear(ctx context.Context) error {
	g, err := b.gens.Bump(ctx, b.ns)
	if err != nil {
		b.hooks.GenError(b.ns, err)
		return err
	}
	b.hooks.NamespaceCleared(b.ns, g)
	b.log.Debug("namespace cleared", Fields{"ns": b.ns, "gen": g})
	return nil
}

// keys lists the persisted keys of the namespace, current or not. Only
// providers implementing provider.Walker can answer; others report ok=false.
func (b *backing) keys(ctx context.Context) ([]string, bool, error) {
	w, ok := b.p.(pr.Walker)
	if !ok {
		return nil, false, nil
	}
	var out []string
	prefix := util.EntryPrefix(b.ns)
	err := w.Walk(ctx, prefix, func(sk string, _ []byte) (bool, error) {
		out = append(out, strings.TrimPrefix(sk, prefix))
		return true, nil
	})
	if err != nil {
		return nil, true, err
	}
	return out, true, nil
}
