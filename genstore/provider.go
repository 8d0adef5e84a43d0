package genstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/NWChemEx/PluginPlay-sub003/internal/util"
	"github.com/NWChemEx/PluginPlay-sub003/provider"
)

var ErrGenRejected = errors.New("genstore: provider rejected generation write")

// ProviderGenStore keeps generations in the same provider as the entries, as
// decimal counters under "gen:<namespace>:". A generation therefore lives
// exactly as long as the data it guards, e.g. inside a badger save location.
//
// Bump is read-modify-write and not atomic across processes. Use
// RedisGenStore when several processes clear the same namespaces.
type ProviderGenStore struct {
	p provider.Provider
}

var _ GenStore = (*ProviderGenStore)(nil)

func NewProviderGenStore(p provider.Provider) *ProviderGenStore {
	return &ProviderGenStore{p: p}
}

func (s *ProviderGenStore) key(namespace string) string {
	return util.StorageKey(util.KindGen, namespace, "")
}

func (s *ProviderGenStore) Snapshot(ctx context.Context, namespace string) (uint64, error) {
	b, ok, err := s.p.Get(ctx, s.key(namespace))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return parseGen(namespace, string(b))
}

func (s *ProviderGenStore) SnapshotMany(ctx context.Context, namespaces []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(namespaces))
	for _, ns := range namespaces {
		g, err := s.Snapshot(ctx, ns)
		if err != nil {
			return nil, err
		}
		out[ns] = g
	}
	return out, nil
}

func (s *ProviderGenStore) Bump(ctx context.Context, namespace string) (uint64, error) {
	g, err := s.Snapshot(ctx, namespace)
	if err != nil {
		return 0, err
	}
	g++
	ok, err := s.p.Set(ctx, s.key(namespace), []byte(strconv.FormatUint(g, 10)), 1, 0)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrGenRejected, namespace)
	}
	return g, nil
}

// Close is a no-op; the provider is owned by the caller.
func (s *ProviderGenStore) Close(context.Context) error { return nil }
