package service

import (
	"context"
	"runtime"
	"time"

	"github.com/andresuchdata/stockcast/internal/cache"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/forecast"
	"github.com/andresuchdata/stockcast/internal/orders"
	"github.com/andresuchdata/stockcast/internal/views"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ProductForecast pairs a product with its forecast.
type ProductForecast struct {
	Product domain.Product  `json:"product"`
	Result  forecast.Result `json:"result"`
}

// Summary flattens the forecast into a persisted/exported record.
func (f ProductForecast) Summary(runID string, computedAt time.Time) domain.ForecastSummary {
	s := domain.ForecastSummary{
		RunID:         runID,
		SKU:           f.Product.SKU,
		Name:          f.Product.Name,
		CurrentStock:  f.Product.WarehouseQuantity,
		StartQuantity: f.Result.StartQuantity,
		MinAmount:     f.Result.MinAmount,
		DeclineRate:   f.Result.DeclineRate,
		RealRate:      f.Result.RealRate,
		MinRate:       f.Result.MinRate,
		ComputedAt:    computedAt.UTC(),
	}
	if c := f.Result.Critical; c != nil {
		d, v := c.Date, c.Value
		s.CriticalDate = &d
		s.CriticalValue = &v
	}
	return s
}

type ForecastService struct {
	inventory *InventoryService
	cache     cache.StockCache
	now       func() time.Time
}

func NewForecastService(inventory *InventoryService, cacheImpl cache.StockCache) *ForecastService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoop()
	}
	return &ForecastService{inventory: inventory, cache: cacheImpl, now: time.Now}
}

func input(ds *domain.Dataset, p domain.Product, resolved orders.Resolution, thresholds map[string]int, today time.Time) forecast.Input {
	return forecast.Input{
		SKU:          p.SKU,
		CurrentStock: p.WarehouseQuantity,
		History:      ds.History,
		OpenOrders:   resolved.ForSKU(p.SKU),
		MinAmount:    views.MinAmountFor(thresholds, p.SKU),
		Today:        today,
	}
}

// ForSKU forecasts one product.
func (s *ForecastService) ForSKU(ctx context.Context, sku string) (*ProductForecast, error) {
	ds, p, err := s.inventory.Product(ctx, sku)
	if err != nil {
		return nil, err
	}
	today := domain.DateOf(s.now())

	if res, ok, err := s.cache.GetForecast(ctx, sku, today); err == nil && ok {
		return &ProductForecast{Product: p, Result: *res}, nil
	} else if err != nil {
		log.Warn().Err(err).Str("sku", sku).Msg("forecast: cache get failed")
	}

	res := forecast.Compute(input(ds, p, orders.Resolve(ds.Orders), views.Thresholds(ds.Minimums), today))

	if err := s.cache.SetForecast(ctx, sku, today, &res); err != nil {
		log.Warn().Err(err).Str("sku", sku).Msg("forecast: cache set failed")
	}
	return &ProductForecast{Product: p, Result: res}, nil
}

// All forecasts every product, in catalog order. Products are computed in
// parallel; the engine shares no state between calls.
func (s *ForecastService) All(ctx context.Context) ([]ProductForecast, error) {
	ds, err := s.inventory.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	today := domain.DateOf(s.now())
	resolved := orders.Resolve(ds.Orders)
	thresholds := views.Thresholds(ds.Minimums)

	out := make([]ProductForecast, len(ds.Products))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range ds.Products {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = ProductForecast{Product: p, Result: forecast.Compute(input(ds, p, resolved, thresholds, today))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
