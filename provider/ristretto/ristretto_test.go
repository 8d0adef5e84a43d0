package ristretto_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	pluginplay "github.com/NWChemEx/PluginPlay-sub003"
	"github.com/NWChemEx/PluginPlay-sub003/genstore"
	"github.com/NWChemEx/PluginPlay-sub003/provider/ristretto"
)

func newProvider(t *testing.T) *ristretto.Provider {
	t.Helper()
	p, err := ristretto.New(ristretto.Config{NumCounters: 1e4, MaxCost: 1 << 20, BufferItems: 64})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestInvalidConfig(t *testing.T) {
	_, err := ristretto.New(ristretto.Config{})
	require.Error(t, err)
}

func TestGetSetDel(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)

	ok, err := p.Set(ctx, "k", []byte("v"), 1, 0)
	require.NoError(t, err)
	require.True(t, ok)

	b, ok, err := p.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), b)

	require.NoError(t, p.Del(ctx, "k"))
	_, ok, _ = p.Get(ctx, "k")
	require.False(t, ok)
}

func TestBacksStore(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)
	opts := pluginplay.StoreOptions{Namespace: "user:scf", Provider: p, GenStore: genstore.NewLocalGenStore()}

	a, err := pluginplay.NewStore(opts)
	require.NoError(t, err)
	key, err := a.InsertValue(ctx, "sto-3g")
	require.NoError(t, err)

	b, err := pluginplay.NewStore(opts)
	require.NoError(t, err)
	h, err := pluginplay.At[string](ctx, b, key)
	require.NoError(t, err)
	defer h.Release()
	require.Equal(t, "sto-3g", h.Get())
}

func TestClearWithLocalGenerations(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)
	gens := genstore.NewLocalGenStoreAt(7)
	opts := pluginplay.StoreOptions{Namespace: "module:scf", Provider: p, GenStore: gens}

	a, err := pluginplay.NewStore(opts)
	require.NoError(t, err)
	require.NoError(t, a.Insert(ctx, "k1", 1.0))
	require.NoError(t, a.Clear(ctx))

	g, err := gens.Snapshot(ctx, "module:scf")
	require.NoError(t, err)
	require.Equal(t, uint64(8), g)

	b, err := pluginplay.NewStore(opts)
	require.NoError(t, err)
	n, err := b.Count(ctx, "k1")
	require.NoError(t, err)
	require.Zero(t, n)
}
