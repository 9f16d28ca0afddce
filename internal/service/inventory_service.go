package service

import (
	"context"
	"errors"
	"time"

	"github.com/andresuchdata/stockcast/internal/cache"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/repository"
	"github.com/rs/zerolog/log"
)

var ErrProductNotFound = errors.New("product not found")

// InventoryService serves the dataset through the cache and owns writes to
// the history tab.
type InventoryService struct {
	repo  repository.StockRepository
	cache cache.StockCache
	now   func() time.Time
}

func NewInventoryService(repo repository.StockRepository, cacheImpl cache.StockCache) *InventoryService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoop()
	}
	return &InventoryService{repo: repo, cache: cacheImpl, now: time.Now}
}

// Dataset returns the cached dataset, fetching it on a miss.
func (s *InventoryService) Dataset(ctx context.Context) (*domain.Dataset, error) {
	if ds, ok, err := s.cache.GetDataset(ctx); err == nil && ok {
		return ds, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("inventory: cache get dataset failed")
	}

	ds, err := s.repo.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetDataset(ctx, ds); err != nil {
		log.Warn().Err(err).Msg("inventory: cache set dataset failed")
	}
	return ds, nil
}

// Invalidate drops every cached entry.
func (s *InventoryService) Invalidate(ctx context.Context) error {
	return s.cache.InvalidateAll(ctx)
}

// Product looks up one product of the current dataset.
func (s *InventoryService) Product(ctx context.Context, sku string) (*domain.Dataset, domain.Product, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, domain.Product{}, err
	}
	p, ok := ds.FindProduct(sku)
	if !ok {
		return nil, domain.Product{}, ErrProductNotFound
	}
	return ds, p, nil
}

// SnapshotHistory appends today's warehouse quantity of every product to the
// history tab. Products whose latest sample for today already has the same
// quantity are skipped.
func (s *InventoryService) SnapshotHistory(ctx context.Context) (int, error) {
	if err := s.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("inventory: cache invalidate failed")
	}
	ds, err := s.Dataset(ctx)
	if err != nil {
		return 0, err
	}

	today := domain.DateOf(s.now())
	latestToday := make(map[string]int)
	for _, h := range ds.History {
		if h.Date != nil && h.Date.Equal(today) {
			latestToday[h.SKU] = h.Quantity
		}
	}

	samples := make([]domain.StockSample, 0, len(ds.Products))
	for _, p := range ds.Products {
		if q, ok := latestToday[p.SKU]; ok && q == p.WarehouseQuantity {
			continue
		}
		day := today
		samples = append(samples, domain.StockSample{SKU: p.SKU, Date: &day, Quantity: p.WarehouseQuantity})
	}

	written, err := s.repo.AppendHistory(ctx, samples)
	if written > 0 {
		if ierr := s.Invalidate(ctx); ierr != nil {
			log.Warn().Err(ierr).Msg("inventory: cache invalidate failed")
		}
	}
	if err != nil {
		return written, err
	}

	log.Info().Int("count", written).Int("skipped", len(ds.Products)-written).Msg("inventory: history snapshot appended")
	return written, nil
}
