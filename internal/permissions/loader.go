package permissions

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/freshapi/freshapi/pkg/logger"
	"github.com/freshapi/freshapi/pkg/metrics"
)

const (
	// DefaultBatchWait is how long a loader collects keys before dispatching.
	DefaultBatchWait = 2 * time.Millisecond
	// DefaultMaxBatch caps the number of keys fetched by one dispatch.
	DefaultMaxBatch = 100
)

// BatchFunc fetches values for a set of distinct keys. Keys missing from the
// returned map resolve to the zero value.
type BatchFunc[V any] func(ctx context.Context, keys []string) (map[string]V, error)

// Loader coalesces concurrent Load calls into grouped fetches and memoises
// the results for its lifetime. A Loader is intended to live for a single
// request.
type Loader[V any] struct {
	ctx      context.Context
	name     string
	fetch    BatchFunc[V]
	wait     time.Duration
	maxBatch int
	log      *zap.Logger

	mu      sync.Mutex
	cache   map[string]*pending[V]
	current *batch[V]
}

type pending[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// batch tracks every waiter that joined a window. A key can appear in
// entries more than once after Clear; each entry is released on dispatch.
type batch[V any] struct {
	keys       []string
	seen       map[string]struct{}
	entries    []batchEntry[V]
	timer      *time.Timer
	dispatched bool
}

type batchEntry[V any] struct {
	key   string
	entry *pending[V]
}

// NewLoader creates a loader whose fetches run under ctx. name labels the
// loader in metrics and logs.
func NewLoader[V any](ctx context.Context, name string, wait time.Duration, maxBatch int, fetch BatchFunc[V]) *Loader[V] {
	if ctx == nil {
		ctx = context.Background()
	}
	if wait <= 0 {
		wait = DefaultBatchWait
	}
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	return &Loader[V]{
		ctx:      ctx,
		name:     name,
		fetch:    fetch,
		wait:     wait,
		maxBatch: maxBatch,
		log:      logger.WithModule("permissions"),
		cache:    make(map[string]*pending[V]),
	}
}

// Load returns the value for key, joining the current batch on a cache miss.
func (l *Loader[V]) Load(ctx context.Context, key string) (V, error) {
	ctx = ensureContext(ctx)

	l.mu.Lock()
	entry, ok := l.cache[key]
	if ok {
		l.mu.Unlock()
		metrics.LoaderCacheLookups.WithLabelValues("hit").Inc()
	} else {
		entry = &pending[V]{done: make(chan struct{})}
		l.cache[key] = entry
		l.enqueueLocked(key, entry)
		l.mu.Unlock()
		metrics.LoaderCacheLookups.WithLabelValues("miss").Inc()
	}

	select {
	case <-entry.done:
		return entry.value, entry.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// LoadMany loads every key concurrently so all of them share one batch
// window. Duplicate keys are loaded once.
func (l *Loader[V]) LoadMany(ctx context.Context, keys []string) (map[string]V, error) {
	ctx = ensureContext(ctx)
	out := make(map[string]V, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		key := key
		g.Go(func() error {
			value, err := l.Load(gctx, key)
			if err != nil {
				return err
			}
			mu.Lock()
			out[key] = value
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Clear drops every memoised value. Waiters already queued or in flight are
// still released by their batch; their results are no longer cached.
func (l *Loader[V]) Clear() {
	l.mu.Lock()
	l.cache = make(map[string]*pending[V])
	l.mu.Unlock()
}

func (l *Loader[V]) enqueueLocked(key string, entry *pending[V]) {
	b := l.current
	if b == nil {
		b = &batch[V]{seen: make(map[string]struct{})}
		l.current = b
		b.timer = time.AfterFunc(l.wait, func() { l.dispatch(b) })
	}
	if _, ok := b.seen[key]; !ok {
		b.seen[key] = struct{}{}
		b.keys = append(b.keys, key)
	}
	b.entries = append(b.entries, batchEntry[V]{key: key, entry: entry})

	if len(b.keys) >= l.maxBatch {
		b.timer.Stop()
		l.current = nil
		go l.dispatch(b)
	}
}

func (l *Loader[V]) dispatch(b *batch[V]) {
	l.mu.Lock()
	if b.dispatched {
		l.mu.Unlock()
		return
	}
	b.dispatched = true
	if l.current == b {
		l.current = nil
	}
	l.mu.Unlock()

	metrics.LoaderBatchSize.WithLabelValues(l.name).Observe(float64(len(b.keys)))
	l.log.Debug("dispatching permission batch",
		zap.String("loader", l.name),
		zap.Int("keys", len(b.keys)),
	)

	values, err := l.safeFetch(b.keys)
	if err != nil {
		l.log.Warn("permission batch failed",
			zap.String("loader", l.name),
			zap.Int("keys", len(b.keys)),
			zap.Error(err),
		)
		l.mu.Lock()
		for _, be := range b.entries {
			if l.cache[be.key] == be.entry {
				delete(l.cache, be.key)
			}
		}
		l.mu.Unlock()
	}

	for _, be := range b.entries {
		if err != nil {
			be.entry.err = err
		} else {
			be.entry.value = values[be.key]
		}
		close(be.entry.done)
	}
}

func (l *Loader[V]) safeFetch(keys []string) (values map[string]V, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			values = nil
			err = errors.New("permission loader: batch function panicked")
		}
	}()
	return l.fetch(l.ctx, keys)
}
