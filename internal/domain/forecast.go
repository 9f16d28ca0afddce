package domain

import "time"

// ForecastPoint is one dated point of a product's stock chart. Nil fields are
// serialized as null so a chart can tell "no series here" from zero.
type ForecastPoint struct {
	Date         time.Time `json:"date"`
	Label        string    `json:"label"`
	Actual       *float64  `json:"actual"`
	DeclineOnly  *float64  `json:"decline_only"`
	WithArrivals *float64  `json:"with_arrivals"`
	MinThreshold *float64  `json:"min_threshold"`
}

// IsProjected reports whether the point carries no observed value.
func (p ForecastPoint) IsProjected() bool {
	return p.Actual == nil
}

// CriticalPoint is the predicted threshold crossing.
type CriticalPoint struct {
	Index int       `json:"index"`
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ForecastSummary is the per-product outcome kept for alerts, exports and
// snapshot history.
type ForecastSummary struct {
	RunID         string     `json:"run_id"`
	SKU           string     `json:"sku"`
	Name          string     `json:"name"`
	CurrentStock  int        `json:"current_stock"`
	StartQuantity int        `json:"start_quantity"`
	MinAmount     *int       `json:"min_amount"`
	DeclineRate   float64    `json:"decline_rate"`
	RealRate      float64    `json:"real_rate"`
	MinRate       float64    `json:"min_rate"`
	CriticalDate  *time.Time `json:"critical_date"`
	CriticalValue *float64   `json:"critical_value"`
	ComputedAt    time.Time  `json:"computed_at"`
}
