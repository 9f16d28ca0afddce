package service

import (
	"context"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/orders"
	"github.com/andresuchdata/stockcast/internal/views"
)

// OpenOrdersView is the scheduled open orders plus the ones without an
// arrival date.
type OpenOrdersView struct {
	Scheduled        []orders.OpenOrder `json:"scheduled"`
	UnscheduledCount int                `json:"unscheduled_count"`
	Unscheduled      []domain.Order     `json:"unscheduled"`
}

// DashboardService builds the read-only views over the current dataset.
type DashboardService struct {
	inventory *InventoryService
}

func NewDashboardService(inventory *InventoryService) *DashboardService {
	return &DashboardService{inventory: inventory}
}

func (s *DashboardService) Overview(ctx context.Context) ([]views.OverviewRow, error) {
	ds, err := s.inventory.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return views.Overview(ds), nil
}

func (s *DashboardService) LowStock(ctx context.Context) ([]views.LowStockItem, error) {
	ds, err := s.inventory.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return views.LowStock(ds), nil
}

func (s *DashboardService) OnTheWay(ctx context.Context) ([]views.OnTheWayItem, error) {
	ds, err := s.inventory.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return views.OnTheWay(ds.Orders), nil
}

func (s *DashboardService) OpenOrders(ctx context.Context) (*OpenOrdersView, error) {
	ds, err := s.inventory.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	res := orders.Resolve(ds.Orders)
	return &OpenOrdersView{
		Scheduled:        res.Scheduled,
		UnscheduledCount: len(res.Unscheduled),
		Unscheduled:      res.Unscheduled,
	}, nil
}
