package genstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisGenStore shares per-namespace generations across processes and survives
// restarts. Clearing a module cache in one process invalidates it everywhere.
//
// Generation keys never expire; an expired counter would read as 0 again and
// revive the entries written before the first clear.
type RedisGenStore struct {
	rdb    redis.UniversalClient
	prefix string // deployment prefix, keeps several cache trees apart in one redis
}

var _ GenStore = (*RedisGenStore)(nil)

func NewRedisGenStore(client redis.UniversalClient, prefix string) *RedisGenStore {
	return &RedisGenStore{rdb: client, prefix: prefix}
}

func (s *RedisGenStore) key(namespace string) string {
	return "pluginplay:gen:" + s.prefix + ":" + namespace
}

// Snapshot returns the current generation. Missing keys are generation 0.
func (s *RedisGenStore) Snapshot(ctx context.Context, namespace string) (uint64, error) {
	res, err := s.rdb.Get(ctx, s.key(namespace)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return parseGen(namespace, res)
}

// SnapshotMany reads every namespace with one MGET. Missing keys map to 0.
func (s *RedisGenStore) SnapshotMany(ctx context.Context, namespaces []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(namespaces))
	if len(namespaces) == 0 {
		return out, nil
	}
	keys := make([]string, len(namespaces))
	for i, ns := range namespaces {
		keys[i] = s.key(ns)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		ns := namespaces[i]
		if v == nil {
			out[ns] = 0
			continue
		}
		g, err := parseGen(ns, fmt.Sprint(v))
		if err != nil {
			return nil, err
		}
		out[ns] = g
	}
	return out, nil
}

// Bump is a single INCR, atomic across processes.
func (s *RedisGenStore) Bump(ctx context.Context, namespace string) (uint64, error) {
	v, err := s.rdb.Incr(ctx, s.key(namespace)).Result()
	if err != nil {
		return 0, err
	}
	return uint64(v), nil
}

// Close is a no-op: the client is shared with the redis provider and owned by
// the caller.
func (s *RedisGenStore) Close(context.Context) error { return nil }

func parseGen(namespace, s string) (uint64, error) {
	g, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("genstore: generation of %s: %w", namespace, err)
	}
	return g, nil
}
