package cache

import (
	"context"
	"fmt"
	"hotel/infras/otel"
	"path"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	otel    otel.Otel
	now     func() time.Time
}

// NewMemoryCache returns a process local Cache. Values are stored encoded, as in Redis,
// so readers never share memory with writers.
func NewMemoryCache(ot otel.Otel) Cache {
	return &memoryCache{
		entries: map[string]memoryEntry{},
		otel:    ot,
		now:     time.Now,
	}
}

func (cache *memoryCache) Save(ctx context.Context, key string, value any, duration int) (err error) {
	_, scope := cache.otel.NewScope(ctx, otelScopeName, otelScopeName+".Save")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	scope.SetAttribute(otelCacheKeyAttribute, key)

	raw, err := encode(value)
	if err != nil {
		return err
	}

	entry := memoryEntry{value: string(raw)}
	if duration > 0 {
		entry.expiresAt = cache.now().Add(time.Duration(duration) * time.Second)
	}

	cache.mu.Lock()
	cache.entries[key] = entry
	cache.mu.Unlock()

	return nil
}

func (cache *memoryCache) Get(ctx context.Context, key string, value any) error {
	_, scope := cache.otel.NewScope(ctx, otelScopeName, otelScopeName+".Get")
	defer scope.End()

	scope.SetAttribute(otelCacheKeyAttribute, key)

	cache.mu.RLock()
	entry, ok := cache.entries[key]
	cache.mu.RUnlock()

	if !ok || cache.expired(entry) {
		return fmt.Errorf("failed to get cache value: %w", Nil)
	}

	return decode(entry.value, value)
}

func (cache *memoryCache) Delete(ctx context.Context, key string) error {
	_, scope := cache.otel.NewScope(ctx, otelScopeName, otelScopeName+".Delete")
	defer scope.End()

	scope.SetAttribute(otelCacheKeyAttribute, key)

	cache.mu.Lock()
	delete(cache.entries, key)
	cache.mu.Unlock()

	return nil
}

func (cache *memoryCache) Clear(ctx context.Context, pattern string) error {
	_, scope := cache.otel.NewScope(ctx, otelScopeName, otelScopeName+".Clear")
	defer scope.End()

	scope.SetAttribute(otelCacheKeyAttribute, pattern)

	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid cache pattern %q: %w", pattern, err)
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()

	for key := range cache.entries {
		if matched, _ := path.Match(pattern, key); matched {
			delete(cache.entries, key)
		}
	}

	return nil
}

func (cache *memoryCache) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !cache.now().Before(entry.expiresAt)
}
