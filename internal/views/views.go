// Package views builds read-only projections over a normalized dataset.
package views

import (
	"sort"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/orders"
)

// LowStockThreshold is the warehouse quantity below which a product is listed
// as low stock.
const LowStockThreshold = 15

// Stock statuses reported in the overview.
const (
	StatusOK       = "ok"
	StatusLow      = "low"
	StatusBelowMin = "below_min"
)

type LowStockItem struct {
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	MinAmount *int   `json:"min_amount"`
	OnTheWay  int    `json:"on_the_way"`
}

type OnTheWayItem struct {
	SKU         string     `json:"sku"`
	Name        string     `json:"name"`
	Quantity    int        `json:"quantity"`
	Orders      int        `json:"orders"`
	NextArrival *time.Time `json:"next_arrival"`
}

type OverviewRow struct {
	SKU               string     `json:"sku"`
	Name              string     `json:"name"`
	Barcode           string     `json:"barcode"`
	WarehouseQuantity int        `json:"warehouse_quantity"`
	CountedQuantity   *int       `json:"counted_quantity"`
	CountedAt         *time.Time `json:"counted_at"`
	MinAmount         *int       `json:"min_amount"`
	OnTheWay          int        `json:"on_the_way"`
	Status            string     `json:"status"`
}

// Thresholds indexes minimum amounts by SKU. Later rows win; amounts <= 0
// are ignored.
func Thresholds(minimums []domain.MinimumThreshold) map[string]int {
	out := make(map[string]int, len(minimums))
	for _, m := range minimums {
		if m.SKU == "" || m.MinAmount <= 0 {
			continue
		}
		out[m.SKU] = m.MinAmount
	}
	return out
}

// MinAmountFor returns the SKU's threshold, or nil when it has none.
func MinAmountFor(thresholds map[string]int, sku string) *int {
	v, ok := thresholds[sku]
	if !ok {
		return nil
	}
	return &v
}

// OnTheWay totals the quantity of open orders per SKU, sorted by SKU. Orders
// without a SKU cannot be joined and are skipped.
func OnTheWay(all []domain.Order) []OnTheWayItem {
	resolved := orders.Resolve(all)
	next := make(map[string]time.Time)
	for _, o := range resolved.Scheduled {
		if _, ok := next[o.SKU]; !ok {
			next[o.SKU] = o.ArrivalDate
		}
	}

	bySKU := make(map[string]*OnTheWayItem)
	for _, o := range orders.Open(all) {
		if o.SKU == "" {
			continue
		}
		item, ok := bySKU[o.SKU]
		if !ok {
			item = &OnTheWayItem{SKU: o.SKU, Name: o.ProductName}
			if t, ok := next[o.SKU]; ok {
				item.NextArrival = &t
			}
			bySKU[o.SKU] = item
		}
		if item.Name == "" {
			item.Name = o.ProductName
		}
		item.Quantity += o.Quantity
		item.Orders++
	}

	out := make([]OnTheWayItem, 0, len(bySKU))
	for _, item := range bySKU {
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

func onTheWayTotals(all []domain.Order) map[string]int {
	totals := make(map[string]int)
	for _, item := range OnTheWay(all) {
		totals[item.SKU] = item.Quantity
	}
	return totals
}

// LowStock lists products whose warehouse quantity is below
// LowStockThreshold, lowest first.
func LowStock(ds *domain.Dataset) []LowStockItem {
	thresholds := Thresholds(ds.Minimums)
	incoming := onTheWayTotals(ds.Orders)

	out := make([]LowStockItem, 0)
	for _, p := range ds.Products {
		if p.WarehouseQuantity >= LowStockThreshold {
			continue
		}
		out = append(out, LowStockItem{
			SKU:       p.SKU,
			Name:      p.Name,
			Quantity:  p.WarehouseQuantity,
			MinAmount: MinAmountFor(thresholds, p.SKU),
			OnTheWay:  incoming[p.SKU],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity < out[j].Quantity
		}
		return out[i].SKU < out[j].SKU
	})
	return out
}

// Overview joins products with their latest count, threshold and open
// quantity, in catalog order.
func Overview(ds *domain.Dataset) []OverviewRow {
	thresholds := Thresholds(ds.Minimums)
	incoming := onTheWayTotals(ds.Orders)
	counts := latestCounts(ds.Inventory)

	out := make([]OverviewRow, 0, len(ds.Products))
	for _, p := range ds.Products {
		row := OverviewRow{
			SKU:               p.SKU,
			Name:              p.Name,
			Barcode:           p.Barcode,
			WarehouseQuantity: p.WarehouseQuantity,
			MinAmount:         MinAmountFor(thresholds, p.SKU),
			OnTheWay:          incoming[p.SKU],
		}
		if c, ok := counts[p.SKU]; ok {
			q := c.Quantity
			row.CountedQuantity = &q
			row.CountedAt = c.CountedAt
		}
		row.Status = status(row)
		out = append(out, row)
	}
	return out
}

func status(row OverviewRow) string {
	if row.MinAmount != nil && row.WarehouseQuantity <= *row.MinAmount {
		return StatusBelowMin
	}
	if row.WarehouseQuantity < LowStockThreshold {
		return StatusLow
	}
	return StatusOK
}

// latestCounts keeps the most recent count per SKU. Undated counts lose to
// dated ones; among equals the later row wins.
func latestCounts(inventory []domain.InventorySnapshot) map[string]domain.InventorySnapshot {
	out := make(map[string]domain.InventorySnapshot, len(inventory))
	for _, c := range inventory {
		if c.SKU == "" {
			continue
		}
		prev, ok := out[c.SKU]
		if ok && prev.CountedAt != nil && (c.CountedAt == nil || c.CountedAt.Before(*prev.CountedAt)) {
			continue
		}
		out[c.SKU] = c
	}
	return out
}
