package genstore

import (
	"context"
	"sync"
	"time"
)

// LocalGenStore keeps generations in process memory. Every namespace starts
// at the store's epoch instead of 0, so entries an earlier process left in a
// provider that outlived it never match a fresh store.
//
// Generations are never pruned: forgetting a bumped namespace would make the
// entries it invalidated current again.
type LocalGenStore struct {
	mu    sync.RWMutex
	epoch uint64
	gens  map[string]uint64
}

var _ GenStore = (*LocalGenStore)(nil)

// NewLocalGenStore uses the current time as epoch.
func NewLocalGenStore() *LocalGenStore {
	return NewLocalGenStoreAt(uint64(time.Now().UnixNano()))
}

// NewLocalGenStoreAt starts every namespace at epoch.
func NewLocalGenStoreAt(epoch uint64) *LocalGenStore {
	return &LocalGenStore{epoch: epoch, gens: make(map[string]uint64)}
}

func (s *LocalGenStore) Epoch() uint64 { return s.epoch }

func (s *LocalGenStore) get(namespace string) uint64 {
	if g, ok := s.gens[namespace]; ok {
		return g
	}
	return s.epoch
}

func (s *LocalGenStore) Snapshot(_ context.Context, namespace string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(namespace), nil
}

// SnapshotMany reads all requested namespaces under one read lock.
func (s *LocalGenStore) SnapshotMany(_ context.Context, namespaces []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(namespaces))
	s.mu.RLock()
	for _, ns := range namespaces {
		out[ns] = s.get(ns)
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *LocalGenStore) Bump(_ context.Context, namespace string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.get(namespace) + 1
	s.gens[namespace] = g
	return g, nil
}

func (s *LocalGenStore) Close(context.Context) error { return nil }
