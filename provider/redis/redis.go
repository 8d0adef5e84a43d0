// Package redis stores cache entries in redis so several processes share
// them. Pair it with genstore.RedisGenStore on the same client.
package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/NWChemEx/PluginPlay-sub003/provider"
)

var (
	ErrNilClient = errors.New("redis provider: nil client")
	// ErrWalkUnsupported is returned by Walk on cluster clients, where SCAN
	// only reaches a single node.
	ErrWalkUnsupported = errors.New("redis provider: walk needs a single-node client")
)

type Redis struct {
	rdb         goredis.UniversalClient
	prefix      string
	scanCount   int64
	closeClient bool
}

var (
	_ pr.Provider = (*Redis)(nil)
	_ pr.Walker   = (*Redis)(nil)
)

type Config struct {
	Client goredis.UniversalClient
	// KeyPrefix is prepended to every key, e.g. "chem-prod/". Lets several
	// save locations share one database.
	KeyPrefix string
	// ScanCount is the COUNT hint for Walk; 0 => 256.
	ScanCount   int64
	CloseClient bool // set true only if this provider exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	n := cfg.ScanCount
	if n <= 0 {
		n = 256
	}
	return &Redis{rdb: cfg.Client, prefix: cfg.KeyPrefix, scanCount: n, closeClient: cfg.CloseClient}, nil
}

func (p *Redis) key(k string) string { return p.prefix + k }

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, p.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set never reports rejection; redis either stores the value or errors.
func (p *Redis) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	if err := p.rdb.Set(ctx, p.key(key), value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Redis) Del(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, p.key(key)).Err()
}

// Walk scans keys matching prefix. Keys deleted or expired during the scan
// are skipped; SCAN may report a key more than once.
func (p *Redis) Walk(ctx context.Context, prefix string, fn func(key string, value []byte) (bool, error)) error {
	if _, ok := p.rdb.(*goredis.ClusterClient); ok {
		return ErrWalkUnsupported
	}
	it := p.rdb.Scan(ctx, 0, escapeGlob(p.key(prefix))+"*", p.scanCount).Iterator()
	for it.Next(ctx) {
		k := strings.TrimPrefix(it.Val(), p.prefix)
		b, ok, err := p.Get(ctx, k)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		more, err := fn(k, b)
		if err != nil || !more {
			return err
		}
	}
	return it.Err()
}

// escapeGlob quotes the redis MATCH metacharacters in s.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close releases the underlying redis client only when this provider owns it.
// Safe to call multiple times.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
