package normalize

import (
	"strings"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/rs/zerolog/log"
)

// Kind identifies which entity a tab holds.
type Kind string

const (
	KindProduct   Kind = "product"
	KindInventory Kind = "inventory"
	KindHistory   Kind = "history"
	KindMinimum   Kind = "minimum"
	KindOrder     Kind = "order"
)

// Logical field names.
const (
	FieldSKU               = "sku"
	FieldName              = "name"
	FieldBarcode           = "barcode"
	FieldWarehouseQuantity = "warehouse_quantity"
	FieldQuantity          = "quantity"
	FieldCountedAt         = "counted_at"
	FieldDate              = "date"
	FieldMinAmount         = "min_amount"
	FieldOrderDate         = "order_date"
	FieldExpectedDate      = "expected_date"
	FieldSupplier          = "supplier"
	FieldReceived          = "received"
	FieldComments          = "comments"
)

var skuRule = ColumnRule{Field: FieldSKU, Exact: []string{`מק"ט`, "מק״ט", "SKU", "sku"}, Markers: []string{"מק", "sku"}, Default: `מק"ט`}
var nameRule = ColumnRule{Field: FieldName, Exact: []string{"שם מוצר", "Product Name", "Name"}, Markers: []string{"שם", "name"}, Default: "שם מוצר"}

// DefaultRules returns the built-in column rules for every kind.
func DefaultRules() map[Kind][]ColumnRule {
	return map[Kind][]ColumnRule{
		KindProduct: {
			skuRule,
			nameRule,
			{Field: FieldBarcode, Exact: []string{"ברקוד", "Barcode"}, Markers: []string{"ברקוד", "barcode"}, Default: "ברקוד"},
			{Field: FieldWarehouseQuantity, Exact: []string{"כמות במחסן", "Warehouse Quantity"}, Markers: []string{"מחסן", "warehouse"}, Default: "כמות במחסן"},
		},
		KindInventory: {
			skuRule,
			nameRule,
			{Field: FieldQuantity, Exact: []string{"כמות", "Quantity"}, Markers: []string{"כמות", "qty", "quantity"}, Default: "כמות"},
			{Field: FieldCountedAt, Exact: []string{"תאריך ספירה", "Counted At"}, Markers: []string{"ספירה", "counted"}, Default: "תאריך ספירה"},
		},
		KindHistory: {
			skuRule,
			{Field: FieldDate, Exact: []string{"תאריך", "Date"}, Markers: []string{"תאריך", "date"}, Default: "תאריך"},
			{Field: FieldQuantity, Exact: []string{"כמות", "Quantity"}, Markers: []string{"כמות", "qty", "quantity"}, Default: "כמות"},
		},
		KindMinimum: {
			skuRule,
			{Field: FieldMinAmount, Exact: []string{"כמות מינימום", "Min Amount"}, Markers: []string{"מינימום", "min"}, Default: "כמות מינימום"},
		},
		KindOrder: {
			skuRule,
			nameRule,
			{Field: FieldOrderDate, Exact: []string{"תאריך הזמנה", "Order Date"}, Markers: []string{"הזמנה", "order date"}, Default: "תאריך הזמנה"},
			{Field: FieldExpectedDate, Exact: []string{"תאריך צפוי", "Expected Date"}, Markers: []string{"צפוי", "הגעה", "expected"}, Default: "תאריך צפוי"},
			{Field: FieldQuantity, Exact: []string{"כמות", "Quantity"}, Markers: []string{"כמות", "qty", "quantity"}, Default: "כמות"},
			{Field: FieldSupplier, Exact: []string{"ספק", "Supplier"}, Markers: []string{"ספק", "supplier"}, Default: "ספק"},
			{Field: FieldReceived, Exact: []string{"התקבל", "Received"}, Markers: []string{"התקבל", "received"}, Default: "התקבל"},
			{Field: FieldComments, Exact: []string{"הערות", "Comments"}, Markers: []string{"הער", "comment", "note"}, Default: "הערות"},
		},
	}
}

// keyFields are the fields whose presence keeps a row; any one suffices.
var keyFields = map[Kind][]string{
	KindProduct:   {FieldSKU},
	KindInventory: {FieldSKU, FieldName},
	KindHistory:   {FieldSKU},
	KindMinimum:   {FieldSKU},
	KindOrder:     {FieldSKU, FieldName},
}

// Normalizer turns raw tabs into typed records. It holds no per-call state
// and is safe for concurrent use.
type Normalizer struct {
	rules map[Kind][]ColumnRule
}

// New builds a Normalizer from the default rules, replacing the rules of any
// kind present in overrides.
func New(overrides map[Kind][]ColumnRule) *Normalizer {
	rules := DefaultRules()
	for kind, r := range overrides {
		if len(r) > 0 {
			rules[kind] = r
		}
	}
	return &Normalizer{rules: rules}
}

// Columns resolves the field labels of a kind against a header.
func (n *Normalizer) Columns(kind Kind, header []string) ColumnMap {
	return ResolveColumns(header, n.rules[kind])
}

// rows resolves columns, logs degraded fields and yields only rows that pass
// the key presence check.
func (n *Normalizer) rows(kind Kind, table *domain.Table) (ColumnMap, []domain.Row) {
	if table == nil {
		return nil, nil
	}
	cols := n.Columns(kind, table.Header)
	if degraded := cols.Degraded(); len(degraded) > 0 {
		log.Debug().
			Str("kind", string(kind)).
			Str("tab", table.Name).
			Strs("fields", degraded).
			Msg("normalize: columns not found, using default labels")
	}

	kept := make([]domain.Row, 0, len(table.Rows))
	for _, row := range table.Rows {
		if hasKey(row, cols, keyFields[kind]) {
			kept = append(kept, row)
		}
	}
	return cols, kept
}

func hasKey(row domain.Row, cols ColumnMap, fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(row.Get(cols.Label(f))) != "" {
			return true
		}
	}
	return false
}

func value(row domain.Row, cols ColumnMap, field string) string {
	return strings.TrimSpace(row.Get(cols.Label(field)))
}

// Products decodes the catalog tab.
func (n *Normalizer) Products(table *domain.Table) []domain.Product {
	cols, rows := n.rows(KindProduct, table)
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Product{
			SKU:               value(row, cols, FieldSKU),
			Name:              value(row, cols, FieldName),
			Barcode:           value(row, cols, FieldBarcode),
			WarehouseQuantity: ParseQuantity(value(row, cols, FieldWarehouseQuantity)),
			RowIndex:          row.Index,
		})
	}
	return out
}

// Inventory decodes the counted-stock tab.
func (n *Normalizer) Inventory(table *domain.Table) []domain.InventorySnapshot {
	cols, rows := n.rows(KindInventory, table)
	out := make([]domain.InventorySnapshot, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.InventorySnapshot{
			SKU:       value(row, cols, FieldSKU),
			Name:      value(row, cols, FieldName),
			Quantity:  ParseQuantity(value(row, cols, FieldQuantity)),
			CountedAt: ParseDate(value(row, cols, FieldCountedAt)),
			RowIndex:  row.Index,
		})
	}
	return out
}

// History decodes the stock history tab. Samples with unparseable dates are
// kept with a nil Date; the forecast engine discards them.
func (n *Normalizer) History(table *domain.Table) []domain.StockSample {
	cols, rows := n.rows(KindHistory, table)
	out := make([]domain.StockSample, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.StockSample{
			SKU:      value(row, cols, FieldSKU),
			Date:     ParseDate(value(row, cols, FieldDate)),
			Quantity: ParseQuantity(value(row, cols, FieldQuantity)),
			RowIndex: row.Index,
		})
	}
	return out
}

// Minimums decodes the minimum-threshold tab.
func (n *Normalizer) Minimums(table *domain.Table) []domain.MinimumThreshold {
	cols, rows := n.rows(KindMinimum, table)
	out := make([]domain.MinimumThreshold, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.MinimumThreshold{
			SKU:       value(row, cols, FieldSKU),
			MinAmount: ParseQuantity(value(row, cols, FieldMinAmount)),
			RowIndex:  row.Index,
		})
	}
	return out
}

// Orders decodes the orders tab.
func (n *Normalizer) Orders(table *domain.Table) []domain.Order {
	cols, rows := n.rows(KindOrder, table)
	out := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Order{
			OrderDate:    ParseDate(value(row, cols, FieldOrderDate)),
			ExpectedDate: ParseDate(value(row, cols, FieldExpectedDate)),
			SKU:          value(row, cols, FieldSKU),
			ProductName:  value(row, cols, FieldName),
			Quantity:     ParseQuantity(value(row, cols, FieldQuantity)),
			Supplier:     value(row, cols, FieldSupplier),
			ReceivedMark: value(row, cols, FieldReceived),
			Comments:     value(row, cols, FieldComments),
			RowIndex:     row.Index,
		})
	}
	return out
}

// Record builds a raw row for kind from field values, using the labels
// resolved against header. Fields without a rule are ignored.
func (n *Normalizer) Record(kind Kind, header []string, fields map[string]string) map[string]string {
	cols := n.Columns(kind, header)
	out := make(map[string]string, len(fields))
	for field, v := range fields {
		if label := cols.Label(field); label != "" {
			out[label] = v
		}
	}
	return out
}
