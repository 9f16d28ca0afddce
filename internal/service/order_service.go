package service

import (
	"context"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/messaging"
	"github.com/andresuchdata/stockcast/internal/orders"
	"github.com/andresuchdata/stockcast/internal/repository"
	"github.com/rs/zerolog/log"
)

// OrderService owns writes to the orders tab.
type OrderService struct {
	repo      repository.StockRepository
	inventory *InventoryService
	publisher messaging.Publisher
	now       func() time.Time
}

func NewOrderService(repo repository.StockRepository, inventory *InventoryService, publisher messaging.Publisher) *OrderService {
	if publisher == nil {
		publisher = messaging.NewNoop()
	}
	return &OrderService{repo: repo, inventory: inventory, publisher: publisher, now: time.Now}
}

// SetReceived marks the order at rowIndex as received or not received and
// optionally replaces its comment. Cached views are dropped afterwards so the
// next read sees the change.
func (s *OrderService) SetReceived(ctx context.Context, rowIndex int, received bool, comments *string) (*domain.Order, error) {
	before, err := s.repo.UpdateOrderStatus(ctx, rowIndex, repository.OrderStatus{Received: received, Comments: comments})
	if err != nil {
		return nil, err
	}

	if err := s.inventory.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Int("row", rowIndex).Msg("orders: cache invalidate failed")
	}

	note := before.Comments
	if comments != nil {
		note = *comments
	}
	event := messaging.NewOrderStatusEvent(rowIndex, before.SKU, received, note, s.now())
	if err := s.publisher.PublishOrderStatus(ctx, event); err != nil {
		log.Warn().Err(err).Int("row", rowIndex).Msg("orders: publish status event failed")
	}

	log.Info().Int("row", rowIndex).Str("sku", before.SKU).Bool("received", received).Msg("orders: status updated")

	updated := *before
	updated.ReceivedMark = ""
	if received {
		updated.ReceivedMark = orders.ReceivedMark
	}
	updated.Comments = note
	return &updated, nil
}
