package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/forecast"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "stockcast:"
	datasetKey     = keyPrefix + "dataset"
	forecastPrefix = keyPrefix + "forecast:"
)

// StockCache holds the last fetched dataset and per-product forecasts.
// Entries expire after the configured TTL; every write to the data source
// must be followed by InvalidateAll.
type StockCache interface {
	GetDataset(ctx context.Context) (*domain.Dataset, bool, error)
	SetDataset(ctx context.Context, ds *domain.Dataset) error
	GetForecast(ctx context.Context, sku string, day time.Time) (*forecast.Result, bool, error)
	SetForecast(ctx context.Context, sku string, day time.Time, res *forecast.Result) error
	InvalidateAll(ctx context.Context) error
}

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// New builds the cache selected by cfg; a disabled cache is a no-op.
func New(cfg config.CacheConfig) (StockCache, error) {
	if !cfg.Enabled {
		return NewNoop(), nil
	}

	switch cfg.Backend {
	case BackendMemory:
		return NewMemory(cacheTTL(cfg)), nil
	case BackendRedis, "":
		client, err := newRedisClient(cfg)
		if err != nil {
			return nil, err
		}
		return &redisStockCache{client: client, ttl: cacheTTL(cfg)}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// forecastKey hashes the SKU so arbitrary sheet values are safe as key parts.
func forecastKey(sku string, day time.Time) string {
	hash := sha1.Sum([]byte(strings.TrimSpace(sku)))
	return fmt.Sprintf("%s%s:%s", forecastPrefix, hex.EncodeToString(hash[:]), day.Format("2006-01-02"))
}

type redisStockCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (c *redisStockCache) get(ctx context.Context, key string, dst interface{}) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return true, nil
}

func (c *redisStockCache) set(ctx context.Context, key string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisStockCache) GetDataset(ctx context.Context) (*domain.Dataset, bool, error) {
	var ds domain.Dataset
	ok, err := c.get(ctx, datasetKey, &ds)
	if !ok || err != nil {
		return nil, false, err
	}
	return &ds, true, nil
}

func (c *redisStockCache) SetDataset(ctx context.Context, ds *domain.Dataset) error {
	return c.set(ctx, datasetKey, ds)
}

func (c *redisStockCache) GetForecast(ctx context.Context, sku string, day time.Time) (*forecast.Result, bool, error) {
	var res forecast.Result
	ok, err := c.get(ctx, forecastKey(sku, day), &res)
	if !ok || err != nil {
		return nil, false, err
	}
	return &res, true, nil
}

func (c *redisStockCache) SetForecast(ctx context.Context, sku string, day time.Time, res *forecast.Result) error {
	return c.set(ctx, forecastKey(sku, day), res)
}

func (c *redisStockCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, keyPrefix, scanBatchSize)
}

type noopStockCache struct{}

func NewNoop() StockCache {
	return &noopStockCache{}
}

func (n *noopStockCache) GetDataset(ctx context.Context) (*domain.Dataset, bool, error) {
	return nil, false, nil
}

func (n *noopStockCache) SetDataset(ctx context.Context, ds *domain.Dataset) error {
	return nil
}

func (n *noopStockCache) GetForecast(ctx context.Context, sku string, day time.Time) (*forecast.Result, bool, error) {
	return nil, false, nil
}

func (n *noopStockCache) SetForecast(ctx context.Context, sku string, day time.Time, res *forecast.Result) error {
	return nil
}

func (n *noopStockCache) InvalidateAll(ctx context.Context) error {
	return nil
}

type memoryEntry struct {
	payload []byte
	expires time.Time
}

// memoryStockCache is a single-process cache for deployments without Redis.
// Values are stored encoded so every read hands out its own copy.
type memoryStockCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemory(ttl time.Duration) StockCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &memoryStockCache{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (m *memoryStockCache) get(key string, dst interface{}) (bool, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && !m.now().Before(e.expires) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(e.payload, dst); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return true, nil
}

func (m *memoryStockCache) set(key string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{payload: payload, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *memoryStockCache) GetDataset(ctx context.Context) (*domain.Dataset, bool, error) {
	var ds domain.Dataset
	ok, err := m.get(datasetKey, &ds)
	if !ok || err != nil {
		return nil, false, err
	}
	return &ds, true, nil
}

func (m *memoryStockCache) SetDataset(ctx context.Context, ds *domain.Dataset) error {
	return m.set(datasetKey, ds)
}

func (m *memoryStockCache) GetForecast(ctx context.Context, sku string, day time.Time) (*forecast.Result, bool, error) {
	var res forecast.Result
	ok, err := m.get(forecastKey(sku, day), &res)
	if !ok || err != nil {
		return nil, false, err
	}
	return &res, true, nil
}

func (m *memoryStockCache) SetForecast(ctx context.Context, sku string, day time.Time, res *forecast.Result) error {
	return m.set(forecastKey(sku, day), res)
}

func (m *memoryStockCache) InvalidateAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryEntry)
	return nil
}
