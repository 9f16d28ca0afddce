package messaging

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventStockCritical      = "stock.critical"
	EventOrderStatusChanged = "order.status_changed"
)

// StockCriticalEvent announces a predicted threshold crossing.
type StockCriticalEvent struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	RunID          string    `json:"run_id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	CriticalDate   time.Time `json:"critical_date"`
	ProjectedValue float64   `json:"projected_value"`
	MinAmount      int       `json:"min_amount"`
	DaysUntil      int       `json:"days_until"`
	Timestamp      time.Time `json:"timestamp"`
}

// OrderStatusEvent records a received/not-received change of an order row.
type OrderStatusEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	RowIndex  int       `json:"row_index"`
	SKU       string    `json:"sku"`
	Received  bool      `json:"received"`
	Comments  string    `json:"comments"`
	Timestamp time.Time `json:"timestamp"`
}

func NewStockCriticalEvent(runID string, now time.Time) *StockCriticalEvent {
	return &StockCriticalEvent{
		ID:        uuid.NewString(),
		Type:      EventStockCritical,
		RunID:     runID,
		Timestamp: now.UTC(),
	}
}

func NewOrderStatusEvent(rowIndex int, sku string, received bool, comments string, now time.Time) *OrderStatusEvent {
	return &OrderStatusEvent{
		ID:        uuid.NewString(),
		Type:      EventOrderStatusChanged,
		RowIndex:  rowIndex,
		SKU:       sku,
		Received:  received,
		Comments:  comments,
		Timestamp: now.UTC(),
	}
}
