package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// SnapshotRepository persists forecast summaries per run.
type SnapshotRepository interface {
	SaveRun(ctx context.Context, runID string, computedAt time.Time, summaries []domain.ForecastSummary) error
	ListBySKU(ctx context.Context, sku string, limit int) ([]domain.ForecastSummary, error)
}

type snapshotRow struct {
	RunID         string          `db:"run_id"`
	SKU           string          `db:"sku"`
	Name          string          `db:"name"`
	CurrentStock  int             `db:"current_stock"`
	StartQuantity int             `db:"start_quantity"`
	MinAmount     sql.NullInt64   `db:"min_amount"`
	DeclineRate   float64         `db:"decline_rate"`
	RealRate      float64         `db:"real_rate"`
	MinRate       float64         `db:"min_rate"`
	CriticalDate  sql.NullTime    `db:"critical_date"`
	CriticalValue sql.NullFloat64 `db:"critical_value"`
	ComputedAt    time.Time       `db:"computed_at"`
}

func (r snapshotRow) summary() domain.ForecastSummary {
	s := domain.ForecastSummary{
		RunID:         r.RunID,
		SKU:           r.SKU,
		Name:          r.Name,
		CurrentStock:  r.CurrentStock,
		StartQuantity: r.StartQuantity,
		DeclineRate:   r.DeclineRate,
		RealRate:      r.RealRate,
		MinRate:       r.MinRate,
		ComputedAt:    r.ComputedAt.UTC(),
	}
	if r.MinAmount.Valid {
		v := int(r.MinAmount.Int64)
		s.MinAmount = &v
	}
	if r.CriticalDate.Valid {
		d := domain.DateOf(r.CriticalDate.Time)
		s.CriticalDate = &d
	}
	if r.CriticalValue.Valid {
		v := r.CriticalValue.Float64
		s.CriticalValue = &v
	}
	return s
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

type snapshotRepository struct {
	db *DB
}

func NewSnapshotRepository(db *DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) SaveRun(ctx context.Context, runID string, computedAt time.Time, summaries []domain.ForecastSummary) error {
	critical := 0
	for _, s := range summaries {
		if s.CriticalDate != nil {
			critical++
		}
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO forecast_runs (id, computed_at, products, critical) VALUES ($1, $2, $3, $4)`,
			runID, computedAt, len(summaries), critical)
		if err != nil {
			return fmt.Errorf("failed to insert forecast run: %w", err)
		}

		query := `
			INSERT INTO forecast_snapshots (
				run_id, sku, name, current_stock, start_quantity, min_amount,
				decline_rate, real_rate, min_rate, critical_date, critical_value, computed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (run_id, sku) DO NOTHING
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, s := range summaries {
			_, err := stmt.ExecContext(ctx,
				runID,
				s.SKU,
				s.Name,
				s.CurrentStock,
				s.StartQuantity,
				nullInt(s.MinAmount),
				s.DeclineRate,
				s.RealRate,
				s.MinRate,
				nullTime(s.CriticalDate),
				nullFloat(s.CriticalValue),
				computedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert snapshot for %s: %w", s.SKU, err)
			}
		}

		return nil
	})
}

func (r *snapshotRepository) ListBySKU(ctx context.Context, sku string, limit int) ([]domain.ForecastSummary, error) {
	if limit <= 0 {
		limit = 30
	}

	query := `
		SELECT run_id, sku, name, current_stock, start_quantity, min_amount,
		       decline_rate, real_rate, min_rate, critical_date, critical_value, computed_at
		FROM forecast_snapshots
		WHERE sku = $1
		ORDER BY computed_at DESC
		LIMIT $2
	`

	var rows []snapshotRow
	if err := r.db.SelectContext(ctx, &rows, query, sku, limit); err != nil {
		return nil, fmt.Errorf("error listing snapshots for %s: %w", sku, err)
	}

	out := make([]domain.ForecastSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.summary())
	}
	return out, nil
}
