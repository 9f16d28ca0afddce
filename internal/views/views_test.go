package views

import (
	"testing"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func fixture() *domain.Dataset {
	return &domain.Dataset{
		Products: []domain.Product{
			{SKU: "A", Name: "Alpha", WarehouseQuantity: 14},
			{SKU: "B", Name: "Beta", WarehouseQuantity: 15},
			{SKU: "C", Name: "Gamma", WarehouseQuantity: 3},
			{SKU: "D", Name: "Delta", WarehouseQuantity: 50},
		},
		Inventory: []domain.InventorySnapshot{
			{SKU: "A", Quantity: 12, CountedAt: at(2024, time.February, 1)},
			{SKU: "A", Quantity: 20, CountedAt: at(2024, time.January, 1)},
			{SKU: "D", Quantity: 49},
		},
		Minimums: []domain.MinimumThreshold{
			{SKU: "A", MinAmount: 10},
			{SKU: "D", MinAmount: 30},
			{SKU: "D", MinAmount: 60},
			{SKU: "C", MinAmount: 0},
		},
		Orders: []domain.Order{
			{SKU: "A", ProductName: "Alpha", Quantity: 10, ExpectedDate: at(2024, time.March, 1)},
			{SKU: "A", Quantity: 5, OrderDate: at(2024, time.January, 1)},
			{SKU: "A", Quantity: 99, ReceivedMark: "v"},
			{SKU: "C", Quantity: 4},
			{ProductName: "No sku", Quantity: 8},
		},
	}
}

func TestThresholds_LastWinsAndIgnoresNonPositive(t *testing.T) {
	idx := Thresholds(fixture().Minimums)

	assert.Equal(t, map[string]int{"A": 10, "D": 60}, idx)
	assert.Nil(t, MinAmountFor(idx, "C"))
	require.NotNil(t, MinAmountFor(idx, "D"))
	assert.Equal(t, 60, *MinAmountFor(idx, "D"))
}

func TestOnTheWay_SumsOpenOrdersPerSKU(t *testing.T) {
	items := OnTheWay(fixture().Orders)

	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].SKU)
	assert.Equal(t, "Alpha", items[0].Name)
	assert.Equal(t, 15, items[0].Quantity)
	assert.Equal(t, 2, items[0].Orders)
	require.NotNil(t, items[0].NextArrival)
	assert.Equal(t, *at(2024, time.March, 1), *items[0].NextArrival)

	assert.Equal(t, "C", items[1].SKU)
	assert.Equal(t, 4, items[1].Quantity)
	assert.Nil(t, items[1].NextArrival, "unscheduled orders still count")
}

func TestLowStock_StrictlyBelowThreshold(t *testing.T) {
	items := LowStock(fixture())

	require.Len(t, items, 2)
	assert.Equal(t, "C", items[0].SKU)
	assert.Nil(t, items[0].MinAmount)
	assert.Equal(t, 4, items[0].OnTheWay)
	assert.Equal(t, "A", items[1].SKU)
	assert.Equal(t, 15, items[1].OnTheWay)
}

func TestOverview_JoinsEverything(t *testing.T) {
	rows := Overview(fixture())

	require.Len(t, rows, 4)
	a := rows[0]
	require.NotNil(t, a.CountedQuantity)
	assert.Equal(t, 12, *a.CountedQuantity)
	assert.Equal(t, StatusLow, a.Status)
	assert.Equal(t, 15, a.OnTheWay)

	assert.Equal(t, StatusOK, rows[1].Status)
	assert.Nil(t, rows[1].CountedQuantity)
	assert.Equal(t, StatusLow, rows[2].Status)

	d := rows[3]
	assert.Equal(t, StatusBelowMin, d.Status)
	require.NotNil(t, d.CountedQuantity)
	assert.Equal(t, 49, *d.CountedQuantity)
	assert.Nil(t, d.CountedAt)
}

func TestViews_EmptyDataset(t *testing.T) {
	ds := &domain.Dataset{}
	assert.Empty(t, LowStock(ds))
	assert.Empty(t, Overview(ds))
	assert.Empty(t, OnTheWay(nil))
}
