// Package badger persists cache entries in an embedded BadgerDB directory.
// It backs ModuleManagerCache.ChangeSaveLocation: caches written by one run
// are found again by the next run that opens the same directory.
//
// A directory can be open in only one process at a time.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	bdb "github.com/dgraph-io/badger/v4"

	"github.com/NWChemEx/PluginPlay-sub003/provider"
)

var (
	ErrClosed = errors.New("badger provider: closed")
	// ErrLocked is returned by New when another process (or another
	// Provider in this one) has the directory open.
	ErrLocked = errors.New("badger provider: directory in use")
)

// Config holds configuration for a BadgerDB-backed provider.
type Config struct {
	// Path is the save location. Created if it does not exist.
	// Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. For tests.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Logger receives BadgerDB's own log output. Nil silences it.
	Logger *slog.Logger

	// GCInterval is how often to run value log GC. 0 disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	GCDiscardRatio float64
}

// DefaultConfig returns a persistent configuration at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

type Provider struct {
	db   *bdb.DB
	path string

	stopGC chan struct{}
	gcDone chan struct{}

	closeOnce sync.Once
	closeErr  error
}

var (
	_ provider.Provider = (*Provider)(nil)
	_ provider.Walker   = (*Provider)(nil)
)

// New opens (or creates) the database described by cfg.
func New(cfg Config) (*Provider, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger provider: path is required for a persistent database")
	}

	var opts bdb.Options
	if cfg.InMemory {
		opts = bdb.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create save location %s: %w", cfg.Path, err)
		}
		opts = bdb.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := bdb.Open(opts)
	if err != nil {
		if isLockErr(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrLocked, cfg.Path, err)
		}
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	p := &Provider{db: db, path: cfg.Path}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		ratio := cfg.GCDiscardRatio
		if ratio <= 0 || ratio >= 1 {
			ratio = 0.5
		}
		p.stopGC = make(chan struct{})
		p.gcDone = make(chan struct{})
		go p.runGC(cfg.GCInterval, ratio, cfg.Logger)
	}
	return p, nil
}

// Path is the directory the database lives in, empty for in-memory ones.
func (p *Provider) Path() string { return p.path }

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	var out []byte
	err := p.db.View(func(txn *bdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, bdb.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, p.wrap(err)
	}
	return out, true, nil
}

// Set ignores cost; badger is bounded by disk, not by an admission policy.
func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	err := p.db.Update(func(txn *bdb.Txn) error {
		e := bdb.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return false, p.wrap(err)
	}
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	err := p.db.Update(func(txn *bdb.Txn) error {
		return txn.Delete([]byte(key))
	})
	return p.wrap(err)
}

func (p *Provider) Walk(ctx context.Context, prefix string, fn func(key string, value []byte) (bool, error)) error {
	err := p.db.View(func(txn *bdb.Txn) error {
		it := txn.NewIterator(bdb.IteratorOptions{Prefix: []byte(prefix), PrefetchValues: true, PrefetchSize: 64})
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			more, err := fn(string(item.KeyCopy(nil)), v)
			if err != nil || !more {
				return err
			}
		}
		return nil
	})
	return p.wrap(err)
}

// Close stops the GC loop and closes the database. Safe to call repeatedly.
func (p *Provider) Close(context.Context) error {
	p.closeOnce.Do(func() {
		if p.stopGC != nil {
			close(p.stopGC)
			<-p.gcDone
		}
		p.closeErr = p.db.Close()
	})
	return p.closeErr
}

func (p *Provider) wrap(err error) error {
	if errors.Is(err, bdb.ErrDBClosed) {
		return ErrClosed
	}
	return err
}

func (p *Provider) runGC(interval time.Duration, ratio float64, logger *slog.Logger) {
	defer close(p.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite means nothing to collect
			err := p.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, bdb.ErrNoRewrite) && logger != nil {
				logger.Warn("badger value log GC error", slog.String("error", err.Error()))
			}
		}
	}
}

// isLockErr recognizes badger's directory lock failure, which it reports as
// a wrapped flock error with a fixed message.
func isLockErr(err error) bool {
	return strings.Contains(err.Error(), "Cannot acquire directory lock")
}
