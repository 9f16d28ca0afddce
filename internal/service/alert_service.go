package service

import (
	"context"
	"sync"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/messaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AlertService publishes a stock.critical event for every product whose
// forecast crosses its minimum. A product is announced again only when its
// critical date moves or after it has stopped being critical.
type AlertService struct {
	forecasts *ForecastService
	publisher messaging.Publisher
	now       func() time.Time

	mu   sync.Mutex
	sent map[string]time.Time // sku -> last published critical date
}

func NewAlertService(forecasts *ForecastService, publisher messaging.Publisher) *AlertService {
	if publisher == nil {
		publisher = messaging.NewNoop()
	}
	return &AlertService{forecasts: forecasts, publisher: publisher, now: time.Now, sent: make(map[string]time.Time)}
}

// Scan forecasts every product and returns the events it emitted. Publish
// failures are logged and do not stop the scan; the product is retried on
// the next scan.
func (s *AlertService) Scan(ctx context.Context) ([]*messaging.StockCriticalEvent, error) {
	all, err := s.forecasts.All(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	critical := make(map[string]bool, len(s.sent))

	now := s.now()
	today := domain.DateOf(now)
	runID := uuid.NewString()

	var events []*messaging.StockCriticalEvent
	failed, skipped := 0, 0
	for _, f := range all {
		c := f.Result.Critical
		if c == nil || f.Result.MinAmount == nil {
			continue
		}
		sku := f.Product.SKU
		critical[sku] = true
		if last, ok := s.sent[sku]; ok && last.Equal(c.Date) {
			skipped++
			continue
		}

		event := messaging.NewStockCriticalEvent(runID, now)
		event.SKU = sku
		event.Name = f.Product.Name
		event.CriticalDate = c.Date
		event.ProjectedValue = c.Value
		event.MinAmount = *f.Result.MinAmount
		event.DaysUntil = int(c.Date.Sub(today).Hours() / 24)

		if err := s.publisher.PublishStockCritical(ctx, event); err != nil {
			failed++
			log.Warn().Err(err).Str("sku", event.SKU).Msg("alerts: publish failed")
			continue
		}
		s.sent[sku] = c.Date
		events = append(events, event)
	}

	for sku := range s.sent {
		if !critical[sku] {
			delete(s.sent, sku)
		}
	}

	log.Info().
		Str("run_id", runID).
		Int("products", len(all)).
		Int("critical", len(critical)).
		Int("published", len(events)).
		Int("unchanged", skipped).
		Int("failed", failed).
		Msg("alerts: scan complete")
	return events, nil
}

