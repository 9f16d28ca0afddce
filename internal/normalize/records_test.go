package normalize

import (
	"testing"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(index int, values map[string]string) domain.Row {
	return domain.Row{Index: index, Values: values}
}

func TestResolveColumns_ExactThenMarkerThenDefault(t *testing.T) {
	rules := []ColumnRule{
		{Field: "sku", Exact: []string{"SKU"}, Markers: []string{"code"}, Default: "SKU"},
		{Field: "qty", Exact: []string{"Quantity"}, Markers: []string{"qty", "amount"}, Default: "Quantity"},
		{Field: "min", Exact: []string{"Min"}, Markers: []string{"minimum"}, Default: "Min"},
	}
	header := []string{"Item Code", "Stock QTY (units)", "Other Amount", "SKU"}

	cols := ResolveColumns(header, rules)

	assert.Equal(t, ColumnMatch{Label: "SKU", Via: MatchExact}, cols["sku"])
	assert.Equal(t, ColumnMatch{Label: "Stock QTY (units)", Via: MatchMarker}, cols["qty"])
	assert.Equal(t, ColumnMatch{Label: "Min", Via: MatchDefault}, cols["min"])
	assert.Equal(t, []string{"min"}, cols.Degraded())
}

func TestResolveColumns_FirstMarkerColumnWins(t *testing.T) {
	rules := []ColumnRule{{Field: "date", Markers: []string{"date"}, Default: "Date"}}
	cols := ResolveColumns([]string{"Name", "Order date", "Expected date"}, rules)
	assert.Equal(t, "Order date", cols.Label("date"))
}

func TestFoldLabel_DiacriticAndSpacingVariants(t *testing.T) {
	// Niqqud on the first letter and doubled inner space.
	assert.Equal(t, FoldLabel("כמות מינימום"), FoldLabel(" כַּמות   מינימום "))
	assert.Equal(t, FoldLabel(`מק"ט`), FoldLabel("מק״ט"))
	assert.Equal(t, "creme brulee", FoldLabel("Crème  Brûlée"))
}

func TestNormalizer_ProductsDropsRowsWithoutSKU(t *testing.T) {
	n := New(nil)
	table := &domain.Table{
		Name:   "Products",
		Header: []string{`מק"ט`, "שם מוצר", "ברקוד", "כמות במחסן"},
		Rows: []domain.Row{
			row(2, map[string]string{`מק"ט`: "A-1", "שם מוצר": "Widget", "ברקוד": "729000", "כמות במחסן": "1,200"}),
			row(3, map[string]string{`מק"ט`: "  ", "שם מוצר": "Orphan", "כמות במחסן": "4"}),
			row(4, map[string]string{`מק"ט`: "B-2", "שם מוצר": "Gadget", "כמות במחסן": "oops"}),
		},
	}

	products := n.Products(table)

	require.Len(t, products, 2)
	assert.Equal(t, domain.Product{SKU: "A-1", Name: "Widget", Barcode: "729000", WarehouseQuantity: 1200, RowIndex: 2}, products[0])
	assert.Equal(t, "B-2", products[1].SKU)
	assert.Equal(t, 0, products[1].WarehouseQuantity)
}

func TestNormalizer_HistoryKeepsUnparseableDatesAsNil(t *testing.T) {
	n := New(nil)
	table := &domain.Table{
		Header: []string{"מק״ט", "תאריך", "כמות"},
		Rows: []domain.Row{
			row(2, map[string]string{"מק״ט": "A-1", "תאריך": "01/01/2024", "כמות": "100"}),
			row(3, map[string]string{"מק״ט": "A-1", "תאריך": "yesterday", "כמות": "-4"}),
		},
	}

	history := n.History(table)

	require.Len(t, history, 2)
	require.NotNil(t, history[0].Date)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *history[0].Date)
	assert.Nil(t, history[1].Date)
	assert.Equal(t, 0, history[1].Quantity)
}

func TestNormalizer_OrdersKeepRowsWithNameOnly(t *testing.T) {
	n := New(nil)
	table := &domain.Table{
		Header: []string{"Order Date", "Expected Date", "SKU", "Product Name", "Quantity", "Received", "Comments"},
		Rows: []domain.Row{
			row(2, map[string]string{"Order Date": "01/02/2024", "SKU": "A-1", "Quantity": "30", "Received": "כן"}),
			row(3, map[string]string{"Product Name": "Loose item", "Quantity": "5"}),
			row(4, map[string]string{"Quantity": "9"}),
		},
	}

	orders := n.Orders(table)

	require.Len(t, orders, 2)
	assert.Equal(t, "כן", orders[0].ReceivedMark)
	assert.Nil(t, orders[0].ExpectedDate)
	require.NotNil(t, orders[0].OrderDate)
	assert.Equal(t, time.February, orders[0].OrderDate.Month())
	assert.Equal(t, "Loose item", orders[1].ProductName)
	assert.Equal(t, 3, orders[1].RowIndex)
}

func TestNormalizer_MissingMinimumColumnDegrades(t *testing.T) {
	n := New(nil)
	table := &domain.Table{
		Header: []string{"SKU", "Notes"},
		Rows:   []domain.Row{row(2, map[string]string{"SKU": "A-1", "Notes": "x"})},
	}

	minimums := n.Minimums(table)

	require.Len(t, minimums, 1)
	assert.Equal(t, 0, minimums[0].MinAmount)
}

func TestNormalizer_OverridesReplaceKindRules(t *testing.T) {
	n := New(map[Kind][]ColumnRule{
		KindMinimum: {
			{Field: FieldSKU, Exact: []string{"Item"}, Default: "Item"},
			{Field: FieldMinAmount, Exact: []string{"Floor"}, Default: "Floor"},
		},
	})
	table := &domain.Table{
		Header: []string{"Item", "Floor"},
		Rows:   []domain.Row{row(2, map[string]string{"Item": "A-1", "Floor": "40"})},
	}

	minimums := n.Minimums(table)

	require.Len(t, minimums, 1)
	assert.Equal(t, 40, minimums[0].MinAmount)
}

func TestNormalizer_RecordMapsFieldsToResolvedLabels(t *testing.T) {
	n := New(nil)
	header := []string{"מק״ט", "תאריך", "כמות"}

	rec := n.Record(KindHistory, header, map[string]string{
		FieldSKU:      "A-1",
		FieldDate:     "05/01/2024",
		FieldQuantity: "12",
		"unknown":     "ignored",
	})

	assert.Equal(t, map[string]string{"מק״ט": "A-1", "תאריך": "05/01/2024", "כמות": "12"}, rec)
}

func TestNormalizer_NilTable(t *testing.T) {
	n := New(nil)
	assert.Empty(t, n.Products(nil))
	assert.Empty(t, n.Orders(nil))
}
