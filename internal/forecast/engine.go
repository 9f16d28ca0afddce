// Package forecast projects a product's stock level forward from its
// history, its open orders and its minimum threshold. Compute is pure and
// safe to call concurrently.
package forecast

import (
	"math"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/normalize"
	"github.com/andresuchdata/stockcast/internal/orders"
)

const (
	// HorizonDays is the span over which the minimum amount is assumed to be consumed.
	HorizonDays = 180
	// Steps is the number of projected points.
	Steps = 26
	// StepDays is the spacing between projected points.
	StepDays = 7
)

// Input is everything the engine needs for one product. OpenOrders must
// already be resolved and filtered to SKU.
type Input struct {
	SKU          string
	CurrentStock int
	History      []domain.StockSample
	OpenOrders   []orders.OpenOrder
	MinAmount    *int
	Today        time.Time
}

// Result is the chart series plus the rates behind it. DeclineRate is the
// rate used for projection; RealRate and MinRate are informational.
type Result struct {
	SKU           string                 `json:"sku"`
	Points        []domain.ForecastPoint `json:"points"`
	DeclineRate   float64                `json:"decline_rate"`
	RealRate      float64                `json:"real_rate"`
	MinRate       float64                `json:"min_rate"`
	MinAmount     *int                   `json:"min_amount"`
	StartDate     *time.Time             `json:"start_date"`
	StartQuantity int                    `json:"start_quantity"`
	Critical      *domain.CriticalPoint  `json:"critical"`
}

// Empty reports whether there was nothing to forecast.
func (r Result) Empty() bool {
	return len(r.Points) == 0
}

// MinRate is the daily decline that consumes minAmount over HorizonDays.
func MinRate(minAmount int) float64 {
	return -float64(minAmount) / HorizonDays
}

// Compute builds the forecast for one product.
func Compute(in Input) Result {
	today := domain.DateOf(in.Today)
	minAmount := in.MinAmount
	if minAmount != nil && *minAmount <= 0 {
		minAmount = nil
	}

	samples := Dedup(Samples(in.History, in.SKU))
	res := Result{
		SKU:       in.SKU,
		Points:    make([]domain.ForecastPoint, 0, len(samples)+Steps+1),
		RealRate:  Slope(samples),
		MinAmount: minAmount,
	}
	res.DeclineRate = res.RealRate
	if minAmount != nil {
		res.MinRate = MinRate(*minAmount)
		res.DeclineRate = res.MinRate
	}

	if len(samples) == 0 && in.CurrentStock == 0 {
		res.DeclineRate, res.RealRate, res.MinRate = 0, 0, 0
		return res
	}

	for _, s := range samples {
		res.Points = append(res.Points, domain.ForecastPoint{
			Date:   s.Date,
			Label:  normalize.DayMonthLabel(s.Date),
			Actual: value(float64(s.Quantity)),
		})
	}
	if n := len(res.Points); n > 0 {
		res.Points[n-1].DeclineOnly = value(float64(in.CurrentStock))
	}

	start := today
	if n := len(samples); n > 0 && samples[n-1].Date.After(today) {
		start = samples[n-1].Date
	}
	if n := len(samples); n == 0 || samples[n-1].Date.Before(today) {
		res.Points = append(res.Points, domain.ForecastPoint{Date: today, Label: normalize.DayMonthLabel(today)})
	}

	hasOrders := len(in.OpenOrders) > 0
	startQty := in.CurrentStock
	for _, o := range in.OpenOrders {
		if !o.ArrivalDate.After(start) {
			startQty += o.Quantity
		}
	}
	res.StartDate = &start
	res.StartQuantity = startQty

	anchor := &res.Points[len(res.Points)-1]
	anchor.DeclineOnly = value(float64(startQty))
	if hasOrders {
		anchor.WithArrivals = value(float64(startQty))
	}

	res.Points = append(res.Points, project(start, float64(startQty), res.DeclineRate, in.OpenOrders)...)

	if minAmount != nil {
		threshold := float64(*minAmount)
		for i := range res.Points {
			res.Points[i].MinThreshold = value(threshold)
		}
		res.Critical = criticalPoint(res.Points, threshold, hasOrders)
	}
	return res
}

// project advances both series Steps times from start. Arrivals due in
// (previous boundary, boundary] land on the boundary's point. The running
// values may go negative; only the emitted points are floored at 0.
func project(start time.Time, startQty, rate float64, open []orders.OpenOrder) []domain.ForecastPoint {
	hasOrders := len(open) > 0
	decline, withArrivals := startQty, startQty
	points := make([]domain.ForecastPoint, 0, Steps)

	prev := start
	for k := 1; k <= Steps; k++ {
		boundary := start.AddDate(0, 0, k*StepDays)
		decline += rate * StepDays
		withArrivals += rate * StepDays
		for _, o := range open {
			if o.ArrivalDate.After(prev) && !o.ArrivalDate.After(boundary) {
				withArrivals += float64(o.Quantity)
			}
		}

		p := domain.ForecastPoint{
			Date:        boundary,
			Label:       normalize.DayMonthLabel(boundary),
			DeclineOnly: output(decline),
		}
		if hasOrders {
			p.WithArrivals = output(withArrivals)
		}
		points = append(points, p)
		prev = boundary
	}
	return points
}

// criticalPoint finds the final descent to or below threshold among the
// projected points. With pending arrivals a dip that an arrival lifts back
// above threshold is not critical.
func criticalPoint(points []domain.ForecastPoint, threshold float64, hasOrders bool) *domain.CriticalPoint {
	var idx []int
	var vals []float64
	for i, p := range points {
		if !p.IsProjected() {
			continue
		}
		v := p.DeclineOnly
		if hasOrders && p.WithArrivals != nil {
			v = p.WithArrivals
		}
		if v == nil {
			continue
		}
		idx = append(idx, i)
		vals = append(vals, *v)
	}

	from := 0
	if hasOrders {
		lastAbove := -1
		for j, v := range vals {
			if v > threshold {
				lastAbove = j
			}
		}
		from = lastAbove + 1
	}

	for j := from; j < len(vals); j++ {
		if vals[j] <= threshold {
			i := idx[j]
			return &domain.CriticalPoint{Index: i, Date: points[i].Date, Value: vals[j]}
		}
	}
	return nil
}

func value(v float64) *float64 {
	return &v
}

func output(v float64) *float64 {
	return value(math.Max(0, math.Round(v)))
}
