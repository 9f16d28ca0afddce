// internal/repository/stock_repository.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/datasource"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/normalize"
	"github.com/andresuchdata/stockcast/internal/orders"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// OrderStatus is a received flag plus an optional comment. A nil Comments
// leaves the comment cell untouched.
type OrderStatus struct {
	Received bool
	Comments *string
}

type StockRepository interface {
	// Fetch reads and normalizes every tab.
	Fetch(ctx context.Context) (*domain.Dataset, error)
	// UpdateOrderStatus writes the received mark and comment of one order row
	// and returns the order as it was before the update.
	UpdateOrderStatus(ctx context.Context, rowIndex int, status OrderStatus) (*domain.Order, error)
	// AppendHistory writes samples to the history tab and returns how many
	// rows were written.
	AppendHistory(ctx context.Context, samples []domain.StockSample) (int, error)
}

type stockRepository struct {
	source     datasource.RowProvider
	normalizer *normalize.Normalizer
	tabs       config.TabNames
	now        func() time.Time
}

func NewStockRepository(source datasource.RowProvider, normalizer *normalize.Normalizer, tabs config.TabNames) StockRepository {
	return &stockRepository{source: source, normalizer: normalizer, tabs: tabs, now: time.Now}
}

// readTab reads a tab; optional tabs that do not exist read as empty.
func (r *stockRepository) readTab(ctx context.Context, tab string, optional bool) (*domain.Table, error) {
	table, err := r.source.ReadTable(ctx, tab)
	if err != nil {
		if optional && errors.Is(err, datasource.ErrTabNotFound) {
			log.Warn().Str("tab", tab).Msg("optional tab not found, treating as empty")
			return nil, nil
		}
		return nil, fmt.Errorf("read tab %s: %w", tab, err)
	}
	return table, nil
}

func (r *stockRepository) Fetch(ctx context.Context) (*domain.Dataset, error) {
	ds := &domain.Dataset{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t, err := r.readTab(gctx, r.tabs.Products, false)
		if err != nil {
			return err
		}
		ds.Products = r.normalizer.Products(t)
		return nil
	})
	g.Go(func() error {
		t, err := r.readTab(gctx, r.tabs.Inventory, true)
		if err != nil {
			return err
		}
		ds.Inventory = r.normalizer.Inventory(t)
		return nil
	})
	g.Go(func() error {
		t, err := r.readTab(gctx, r.tabs.History, false)
		if err != nil {
			return err
		}
		ds.History = r.normalizer.History(t)
		return nil
	})
	g.Go(func() error {
		t, err := r.readTab(gctx, r.tabs.Minimums, true)
		if err != nil {
			return err
		}
		ds.Minimums = r.normalizer.Minimums(t)
		return nil
	})
	g.Go(func() error {
		t, err := r.readTab(gctx, r.tabs.Orders, false)
		if err != nil {
			return err
		}
		ds.Orders = r.normalizer.Orders(t)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	ds.FetchedAt = r.now().UTC()

	log.Debug().
		Int("products", len(ds.Products)).
		Int("history", len(ds.History)).
		Int("orders", len(ds.Orders)).
		Msg("dataset fetched")
	return ds, nil
}

func (r *stockRepository) UpdateOrderStatus(ctx context.Context, rowIndex int, status OrderStatus) (*domain.Order, error) {
	table, err := r.readTab(ctx, r.tabs.Orders, false)
	if err != nil {
		return nil, err
	}

	var current *domain.Order
	for _, row := range table.Rows {
		if row.Index != rowIndex {
			continue
		}
		decoded := r.normalizer.Orders(&domain.Table{Name: table.Name, Header: table.Header, Rows: []domain.Row{row}})
		if len(decoded) > 0 {
			current = &decoded[0]
		}
		break
	}
	if current == nil {
		return nil, fmt.Errorf("%w: %s row %d", datasource.ErrRowOutOfRange, r.tabs.Orders, rowIndex)
	}

	mark := ""
	if status.Received {
		mark = orders.ReceivedMark
	}
	fields := map[string]string{normalize.FieldReceived: mark}
	if status.Comments != nil {
		fields[normalize.FieldComments] = *status.Comments
	}

	values := r.normalizer.Record(normalize.KindOrder, table.Header, fields)
	if err := r.source.UpdateRow(ctx, r.tabs.Orders, rowIndex, values); err != nil {
		return nil, fmt.Errorf("update order row %d: %w", rowIndex, err)
	}
	return current, nil
}

func (r *stockRepository) AppendHistory(ctx context.Context, samples []domain.StockSample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	table, err := r.readTab(ctx, r.tabs.History, false)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, s := range samples {
		if s.Date == nil {
			continue
		}
		values := r.normalizer.Record(normalize.KindHistory, table.Header, map[string]string{
			normalize.FieldSKU:      s.SKU,
			normalize.FieldDate:     normalize.FormatDate(*s.Date),
			normalize.FieldQuantity: strconv.Itoa(s.Quantity),
		})
		if _, err := r.source.AppendRow(ctx, r.tabs.History, values); err != nil {
			return written, fmt.Errorf("append history for %s: %w", s.SKU, err)
		}
		written++
	}
	return written, nil
}
