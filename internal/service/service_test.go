package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/stockcast/internal/cache"
	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/datasource"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/messaging"
	"github.com/andresuchdata/stockcast/internal/normalize"
	"github.com/andresuchdata/stockcast/internal/repository"
	"github.com/andresuchdata/stockcast/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return today }

var tabs = config.TabNames{
	Products:  "Products",
	Inventory: "Inventory",
	Orders:    "Orders",
	History:   "History",
	Minimums:  "Minimums",
}

func workbook() *datasource.Memory {
	return datasource.NewMemory(map[string][][]string{
		"Products": {
			{`מק"ט`, "שם מוצר", "ברקוד", "כמות במחסן"},
			{"A-1", "Widget", "111", "50"},
			{"B-2", "Gadget", "222", "7"},
		},
		"History": {
			{`מק"ט`, "תאריך", "כמות"},
			{"A-1", "01/02/2024", "60"},
			{"A-1", "15/02/2024", "55"},
		},
		"Orders": {
			{"תאריך הזמנה", "תאריך צפוי", `מק"ט`, "שם מוצר", "כמות", "ספק", "התקבל", "הערות"},
			{"01/02/2024", "20/03/2024", "B-2", "Gadget", "30", "Acme", "", "first batch"},
			{"05/01/2024", "20/01/2024", "A-1", "Widget", "5", "Acme", "כן", ""},
		},
		"Minimums": {
			{`מק"ט`, "כמות מינימום"},
			{"A-1", "40"},
		},
	})
}

type harness struct {
	source    *datasource.Memory
	repo      repository.StockRepository
	inventory *InventoryService
	forecasts *ForecastService
	publisher *recordingPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{source: workbook(), publisher: &recordingPublisher{}}
	h.repo = repository.NewStockRepository(h.source, normalize.New(nil), tabs)
	c := cache.NewMemory(time.Minute)
	h.inventory = NewInventoryService(h.repo, c)
	h.inventory.now = fixedNow
	h.forecasts = NewForecastService(h.inventory, c)
	h.forecasts.now = fixedNow
	return h
}

type recordingPublisher struct {
	mu       sync.Mutex
	critical []*messaging.StockCriticalEvent
	status   []*messaging.OrderStatusEvent
	err      error
}

func (p *recordingPublisher) PublishStockCritical(_ context.Context, e *messaging.StockCriticalEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.critical = append(p.critical, e)
	return nil
}

func (p *recordingPublisher) PublishOrderStatus(_ context.Context, e *messaging.OrderStatusEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.status = append(p.status, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fakeSnapshots struct {
	runs map[string][]domain.ForecastSummary
}

func (f *fakeSnapshots) SaveRun(_ context.Context, runID string, _ time.Time, summaries []domain.ForecastSummary) error {
	if f.runs == nil {
		f.runs = make(map[string][]domain.ForecastSummary)
	}
	f.runs[runID] = summaries
	return nil
}

func (f *fakeSnapshots) ListBySKU(_ context.Context, sku string, _ int) ([]domain.ForecastSummary, error) {
	var out []domain.ForecastSummary
	for _, run := range f.runs {
		for _, s := range run {
			if s.SKU == sku {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

type fakeStore struct {
	objects map[string][]byte
}

func (f *fakeStore) ListObjects(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for k, v := range f.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (f *fakeStore) UploadObject(_ context.Context, key string, data []byte, _ string) error {
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[key] = data
	return nil
}

func TestForecastService_ForSKU(t *testing.T) {
	h := newHarness(t)

	f, err := h.forecasts.ForSKU(context.Background(), "A-1")

	require.NoError(t, err)
	assert.Equal(t, "Widget", f.Product.Name)
	require.NotNil(t, f.Result.Critical)
	assert.Equal(t, 9, f.Result.Critical.Index)
	assert.Equal(t, time.Date(2024, time.April, 19, 0, 0, 0, 0, time.UTC), f.Result.Critical.Date)
	assert.Equal(t, 39.0, f.Result.Critical.Value)
	assert.Equal(t, 50, f.Result.StartQuantity)

	again, err := h.forecasts.ForSKU(context.Background(), "A-1")
	require.NoError(t, err)
	assert.Equal(t, f.Result.Critical, again.Result.Critical)
}

func TestForecastService_ForSKU_UnknownProduct(t *testing.T) {
	h := newHarness(t)

	_, err := h.forecasts.ForSKU(context.Background(), "nope")

	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestForecastService_All_KeepsCatalogOrder(t *testing.T) {
	h := newHarness(t)

	all, err := h.forecasts.All(context.Background())

	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A-1", all[0].Product.SKU)
	assert.Equal(t, "B-2", all[1].Product.SKU)
	assert.Nil(t, all[1].Result.Critical)

	var arrivals float64
	for _, p := range all[1].Result.Points {
		if p.WithArrivals != nil && *p.WithArrivals > arrivals {
			arrivals = *p.WithArrivals
		}
	}
	assert.Greater(t, arrivals, 7.0, "B-2 open order shows up on the arrivals series")
}

func TestAlertService_Scan(t *testing.T) {
	h := newHarness(t)
	alerts := NewAlertService(h.forecasts, h.publisher)
	alerts.now = fixedNow

	events, err := alerts.Scan(context.Background())

	require.NoError(t, err)
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, messaging.EventStockCritical, e.Type)
	assert.Equal(t, "A-1", e.SKU)
	assert.Equal(t, 40, e.MinAmount)
	assert.Equal(t, 49, e.DaysUntil)
	assert.Equal(t, 39.0, e.ProjectedValue)
	assert.NotEmpty(t, e.RunID)
	assert.Len(t, h.publisher.critical, 1)
}

func TestAlertService_Scan_PublishFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.publisher.err = errors.New("broker down")
	alerts := NewAlertService(h.forecasts, h.publisher)
	alerts.now = fixedNow

	events, err := alerts.Scan(context.Background())

	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAlertService_Scan_AnnouncesEachCriticalDateOnce(t *testing.T) {
	h := newHarness(t)
	alerts := NewAlertService(h.forecasts, h.publisher)
	alerts.now = fixedNow
	ctx := context.Background()

	events, err := alerts.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)

	events, err = alerts.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, events, "unchanged critical date is not re-published")
	assert.Len(t, h.publisher.critical, 1)

	alerts.sent["A-1"] = criticalDateOf(t, h).AddDate(0, 0, 7)
	events, err = alerts.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1, "a moved critical date is announced again")
	assert.Len(t, h.publisher.critical, 2)

	alerts.sent["GONE"] = fixedNow()
	_, err = alerts.Scan(ctx)
	require.NoError(t, err)
	assert.NotContains(t, alerts.sent, "GONE", "products no longer critical are forgotten")
}

func TestAlertService_Scan_RetriesAfterPublishFailure(t *testing.T) {
	h := newHarness(t)
	h.publisher.err = errors.New("broker down")
	alerts := NewAlertService(h.forecasts, h.publisher)
	alerts.now = fixedNow
	ctx := context.Background()

	events, err := alerts.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)

	h.publisher.err = nil
	events, err = alerts.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "A-1", events[0].SKU)
}

func criticalDateOf(t *testing.T, h *harness) time.Time {
	t.Helper()
	f, err := h.forecasts.ForSKU(context.Background(), "A-1")
	require.NoError(t, err)
	require.NotNil(t, f.Result.Critical)
	return f.Result.Critical.Date
}

func TestOrderService_SetReceived(t *testing.T) {
	h := newHarness(t)
	dashboard := NewDashboardService(h.inventory)
	orderSvc := NewOrderService(h.repo, h.inventory, h.publisher)
	orderSvc.now = fixedNow
	ctx := context.Background()

	open, err := dashboard.OpenOrders(ctx)
	require.NoError(t, err)
	require.Len(t, open.Scheduled, 1)

	updated, err := orderSvc.SetReceived(ctx, 2, true, nil)

	require.NoError(t, err)
	assert.Equal(t, "B-2", updated.SKU)
	assert.Equal(t, "כן", updated.ReceivedMark)
	assert.Equal(t, "first batch", updated.Comments)
	assert.Equal(t, "כן", h.source.Grid("Orders")[1][6])

	require.Len(t, h.publisher.status, 1)
	assert.True(t, h.publisher.status[0].Received)
	assert.Equal(t, 2, h.publisher.status[0].RowIndex)

	open, err = dashboard.OpenOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, open.Scheduled, "cache was invalidated after the write")
}

func TestOrderService_SetReceived_UnknownRow(t *testing.T) {
	h := newHarness(t)
	orderSvc := NewOrderService(h.repo, h.inventory, h.publisher)

	_, err := orderSvc.SetReceived(context.Background(), 99, true, nil)

	assert.ErrorIs(t, err, datasource.ErrRowOutOfRange)
	assert.Empty(t, h.publisher.status)
}

func TestInventoryService_SnapshotHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	n, err := h.inventory.SnapshotHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	grid := h.source.Grid("History")
	require.Len(t, grid, 5)
	assert.Equal(t, []string{"A-1", "01/03/2024", "50"}, grid[3])

	n, err = h.inventory.SnapshotHistory(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "same quantities already recorded today")
}

func TestDashboardService_Views(t *testing.T) {
	h := newHarness(t)
	dashboard := NewDashboardService(h.inventory)
	ctx := context.Background()

	low, err := dashboard.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "B-2", low[0].SKU)

	way, err := dashboard.OnTheWay(ctx)
	require.NoError(t, err)
	require.Len(t, way, 1)
	assert.Equal(t, 30, way[0].Quantity)

	rows, err := dashboard.Overview(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestSnapshotService_RecordAndExport(t *testing.T) {
	h := newHarness(t)
	repo := &fakeSnapshots{}
	store := &fakeStore{}
	snaps := NewSnapshotService(h.forecasts, repo, store, "exports")
	snaps.now = fixedNow
	ctx := context.Background()

	run, err := snaps.Record(ctx)
	require.NoError(t, err)
	assert.Len(t, run.Summaries, 2)
	assert.Equal(t, 1, run.Critical())
	assert.Contains(t, repo.runs, run.ID)

	history, err := snaps.History(ctx, "A-1", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].CriticalDate)

	key, err := snaps.Export(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, "exports/forecast-20240301-"+run.ID+".csv", key)
	assert.Contains(t, string(store.objects[key]), "A-1,Widget,50,50,40,-6.67")

	listed, err := snaps.Exports(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestSnapshotService_Disabled(t *testing.T) {
	h := newHarness(t)
	snaps := NewSnapshotService(h.forecasts, nil, nil, "")
	ctx := context.Background()

	_, err := snaps.Record(ctx)
	assert.ErrorIs(t, err, ErrSnapshotsDisabled)
	_, err = snaps.History(ctx, "A-1", 5)
	assert.ErrorIs(t, err, ErrSnapshotsDisabled)
	_, err = snaps.Export(ctx, &Run{})
	assert.ErrorIs(t, err, ErrExportDisabled)
}

func TestEncodeCSV(t *testing.T) {
	critical := time.Date(2024, time.April, 19, 0, 0, 0, 0, time.UTC)
	value := 39.0
	minAmount := 40
	data, err := EncodeCSV([]domain.ForecastSummary{{
		RunID:         "r1",
		SKU:           "A-1",
		Name:          "Widget, large",
		CurrentStock:  50,
		StartQuantity: 50,
		MinAmount:     &minAmount,
		DeclineRate:   -1,
		CriticalDate:  &critical,
		CriticalValue: &value,
		ComputedAt:    today,
	}})

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "run_id,sku,name"))
	assert.Equal(t, `r1,A-1,"Widget, large",50,50,40,-30.00,0.00,0.00,2024-04-19,39,2024-03-01T10:00:00Z`, lines[1])
}
