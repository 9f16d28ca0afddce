package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/forecast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DisabledIsNoop(t *testing.T) {
	c, err := New(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	require.NoError(t, c.SetDataset(context.Background(), &domain.Dataset{}))
	_, ok, err := c.GetDataset(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(config.CacheConfig{Enabled: true, Backend: "memcached"})
	assert.Error(t, err)
}

func TestMemoryCache_ExpiryAndInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute).(*memoryStockCache)
	now := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	ds := &domain.Dataset{Products: []domain.Product{{SKU: "A-1"}}}
	require.NoError(t, c.SetDataset(ctx, ds))
	day := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.SetForecast(ctx, "A-1", day, &forecast.Result{SKU: "A-1"}))

	got, ok, err := c.GetDataset(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A-1", got.Products[0].SKU)

	res, ok, _ := c.GetForecast(ctx, "A-1", day)
	require.True(t, ok)
	assert.Equal(t, "A-1", res.SKU)
	_, ok, _ = c.GetForecast(ctx, "A-1", day.AddDate(0, 0, 1))
	assert.False(t, ok, "a new day misses")

	now = now.Add(time.Minute)
	_, ok, _ = c.GetDataset(ctx)
	assert.False(t, ok, "expired")

	require.NoError(t, c.SetDataset(ctx, ds))
	require.NoError(t, c.InvalidateAll(ctx))
	_, ok, _ = c.GetDataset(ctx)
	assert.False(t, ok)
}

func TestForecastKey(t *testing.T) {
	day := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	k := forecastKey(" מק 1 ", day)

	assert.True(t, strings.HasPrefix(k, forecastPrefix))
	assert.True(t, strings.HasSuffix(k, ":2024-03-01"))
	assert.Equal(t, k, forecastKey("מק 1", day))
	assert.NotEqual(t, k, forecastKey("מק 2", day))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:pw@example:6379/3"})
	require.NoError(t, err)
	assert.Equal(t, "example:6379", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 3, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "ftp://nope"})
	assert.Error(t, err)

	opts, err = buildRedisOptions(config.CacheConfig{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)
}

func TestCacheTTL(t *testing.T) {
	assert.Equal(t, defaultCacheTTL, cacheTTL(config.CacheConfig{}))
	assert.Equal(t, 5*time.Second, cacheTTL(config.CacheConfig{TTLSeconds: 5}))
}

func TestMemoryCache_ReadsAreIndependentCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	ds := &domain.Dataset{Products: []domain.Product{{SKU: "A-1", WarehouseQuantity: 50}}}
	require.NoError(t, c.SetDataset(ctx, ds))
	ds.Products[0].WarehouseQuantity = 1

	first, ok, err := c.GetDataset(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 50, first.Products[0].WarehouseQuantity, "writes after Set do not leak in")
	first.Products[0].SKU = "mutated"
	first.Products = append(first.Products, domain.Product{SKU: "B-2"})

	second, _, _ := c.GetDataset(ctx)
	require.Len(t, second.Products, 1)
	assert.Equal(t, "A-1", second.Products[0].SKU)

	day := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	v := 30.0
	require.NoError(t, c.SetForecast(ctx, "A-1", day, &forecast.Result{SKU: "A-1", Points: []domain.ForecastPoint{{DeclineOnly: &v}}}))
	res, _, _ := c.GetForecast(ctx, "A-1", day)
	*res.Points[0].DeclineOnly = 0
	res.Points = nil

	again, ok, _ := c.GetForecast(ctx, "A-1", day)
	require.True(t, ok)
	require.Len(t, again.Points, 1)
	assert.Equal(t, 30.0, *again.Points[0].DeclineOnly)
}
