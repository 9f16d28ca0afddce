package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrSnapshotsDisabled = errors.New("snapshot storage is not configured")
	ErrExportDisabled    = errors.New("export storage is not configured")
)

// Run is one forecast pass over the catalog.
type Run struct {
	ID         string                   `json:"id"`
	ComputedAt time.Time                `json:"computed_at"`
	Summaries  []domain.ForecastSummary `json:"summaries"`
}

// Critical counts the summaries with a predicted crossing.
func (r Run) Critical() int {
	n := 0
	for _, s := range r.Summaries {
		if s.CriticalDate != nil {
			n++
		}
	}
	return n
}

// SnapshotService records forecast runs in Postgres and exports them as CSV
// to object storage. Either backend may be nil.
type SnapshotService struct {
	forecasts *ForecastService
	repo      postgres.SnapshotRepository
	store     storage.ObjectStorage
	prefix    string
	now       func() time.Time
}

func NewSnapshotService(forecasts *ForecastService, repo postgres.SnapshotRepository, store storage.ObjectStorage, prefix string) *SnapshotService {
	return &SnapshotService{forecasts: forecasts, repo: repo, store: store, prefix: prefix, now: time.Now}
}

// Compute runs the forecast over every product without persisting anything.
func (s *SnapshotService) Compute(ctx context.Context) (*Run, error) {
	all, err := s.forecasts.All(ctx)
	if err != nil {
		return nil, err
	}
	run := &Run{ID: uuid.NewString(), ComputedAt: s.now().UTC()}
	run.Summaries = make([]domain.ForecastSummary, 0, len(all))
	for _, f := range all {
		run.Summaries = append(run.Summaries, f.Summary(run.ID, run.ComputedAt))
	}
	return run, nil
}

// Record computes a run and stores it.
func (s *SnapshotService) Record(ctx context.Context) (*Run, error) {
	if s.repo == nil {
		return nil, ErrSnapshotsDisabled
	}
	run, err := s.Compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveRun(ctx, run.ID, run.ComputedAt, run.Summaries); err != nil {
		return nil, fmt.Errorf("save forecast run: %w", err)
	}
	log.Info().Str("run_id", run.ID).Int("products", len(run.Summaries)).Int("critical", run.Critical()).Msg("snapshots: run recorded")
	return run, nil
}

// History lists the stored summaries of one product, newest first.
func (s *SnapshotService) History(ctx context.Context, sku string, limit int) ([]domain.ForecastSummary, error) {
	if s.repo == nil {
		return nil, ErrSnapshotsDisabled
	}
	return s.repo.ListBySKU(ctx, sku, limit)
}

// ExportKey names the object a run is exported to.
func (s *SnapshotService) ExportKey(run *Run) string {
	name := fmt.Sprintf("forecast-%s-%s.csv", run.ComputedAt.Format("20060102"), run.ID)
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Export uploads a run as CSV and returns the object key.
func (s *SnapshotService) Export(ctx context.Context, run *Run) (string, error) {
	if s.store == nil {
		return "", ErrExportDisabled
	}
	data, err := EncodeCSV(run.Summaries)
	if err != nil {
		return "", err
	}
	key := s.ExportKey(run)
	if err := s.store.UploadObject(ctx, key, data, "text/csv"); err != nil {
		return "", fmt.Errorf("upload export %s: %w", key, err)
	}
	log.Info().Str("key", key).Int("rows", len(run.Summaries)).Msg("snapshots: run exported")
	return key, nil
}

// Exports lists previously exported runs.
func (s *SnapshotService) Exports(ctx context.Context) ([]storage.ObjectInfo, error) {
	if s.store == nil {
		return nil, ErrExportDisabled
	}
	return s.store.ListObjects(ctx, s.prefix)
}

var csvHeader = []string{
	"run_id", "sku", "name", "current_stock", "start_quantity", "min_amount",
	"decline_rate_per_month", "real_rate_per_month", "min_rate_per_month",
	"critical_date", "critical_value", "computed_at",
}

// EncodeCSV renders summaries one row per product. Rates are per month.
func EncodeCSV(summaries []domain.ForecastSummary) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, s := range summaries {
		minAmount, criticalDate, criticalValue := "", "", ""
		if s.MinAmount != nil {
			minAmount = strconv.Itoa(*s.MinAmount)
		}
		if s.CriticalDate != nil {
			criticalDate = s.CriticalDate.Format("2006-01-02")
		}
		if s.CriticalValue != nil {
			criticalValue = strconv.FormatFloat(*s.CriticalValue, 'f', -1, 64)
		}
		record := []string{
			s.RunID,
			s.SKU,
			s.Name,
			strconv.Itoa(s.CurrentStock),
			strconv.Itoa(s.StartQuantity),
			minAmount,
			perMonth(s.DeclineRate),
			perMonth(s.RealRate),
			perMonth(s.MinRate),
			criticalDate,
			criticalValue,
			s.ComputedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

func perMonth(daily float64) string {
	return strconv.FormatFloat(daily*30, 'f', 2, 64)
}
