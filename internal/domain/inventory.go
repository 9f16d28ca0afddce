// internal/domain/inventory.go
package domain

import "time"

// Product is a catalog row. WarehouseQuantity is the authoritative current stock.
type Product struct {
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	Barcode           string `json:"barcode"`
	WarehouseQuantity int    `json:"warehouse_quantity"`
	RowIndex          int    `json:"row_index"`
}

// InventorySnapshot is a counted stock level from the inventory tab.
type InventorySnapshot struct {
	SKU       string     `json:"sku"`
	Name      string     `json:"name"`
	Quantity  int        `json:"quantity"`
	CountedAt *time.Time `json:"counted_at"`
	RowIndex  int        `json:"row_index"`
}

// StockSample is one historical stock observation. A nil Date means the
// source value could not be parsed.
type StockSample struct {
	SKU      string     `json:"sku"`
	Date     *time.Time `json:"date"`
	Quantity int        `json:"quantity"`
	RowIndex int        `json:"row_index"`
}

// MinimumThreshold is the minimum stock level configured for a SKU.
type MinimumThreshold struct {
	SKU       string `json:"sku"`
	MinAmount int    `json:"min_amount"`
	RowIndex  int    `json:"row_index"`
}

// Order is a purchase order row. ReceivedMark holds the raw cell value; use
// orders.IsReceived to interpret it.
type Order struct {
	OrderDate    *time.Time `json:"order_date"`
	ExpectedDate *time.Time `json:"expected_date"`
	SKU          string     `json:"sku"`
	ProductName  string     `json:"product_name"`
	Quantity     int        `json:"quantity"`
	Supplier     string     `json:"supplier"`
	ReceivedMark string     `json:"received_mark"`
	Comments     string     `json:"comments"`
	RowIndex     int        `json:"row_index"`
}

// Dataset is everything read from the data source in one fetch cycle.
type Dataset struct {
	Products  []Product           `json:"products"`
	Inventory []InventorySnapshot `json:"inventory"`
	History   []StockSample       `json:"history"`
	Minimums  []MinimumThreshold  `json:"minimums"`
	Orders    []Order             `json:"orders"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// FindProduct returns the product with the given SKU.
func (d *Dataset) FindProduct(sku string) (Product, bool) {
	for _, p := range d.Products {
		if p.SKU == sku {
			return p, true
		}
	}
	return Product{}, false
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
