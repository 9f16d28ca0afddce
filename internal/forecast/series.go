package forecast

import (
	"sort"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/normalize"
)

// Sample is a dated history observation.
type Sample struct {
	Date     time.Time
	Quantity int
}

// Samples keeps the dated history of one SKU, ascending by date. Samples
// with a nil date are dropped; equal dates keep their source order.
func Samples(history []domain.StockSample, sku string) []Sample {
	out := make([]Sample, 0)
	for _, s := range history {
		if s.SKU != sku || s.Date == nil {
			continue
		}
		out = append(out, Sample{Date: domain.DateOf(*s.Date), Quantity: s.Quantity})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Dedup collapses consecutive samples sharing the day/month label and the
// quantity into the first of the run.
func Dedup(samples []Sample) []Sample {
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if n := len(out); n > 0 {
			prev := out[n-1]
			if prev.Quantity == s.Quantity && normalize.DayMonthLabel(prev.Date) == normalize.DayMonthLabel(s.Date) {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

// Slope is the least-squares slope of quantity over days elapsed since the
// first sample, in units per day. It is 0 for fewer than two samples or when
// every sample falls on the same day.
func Slope(samples []Sample) float64 {
	if len(samples) < 2 {
		return 0
	}
	first := samples[0].Date
	var sumX, sumY, sumXY, sumXX float64
	for _, s := range samples {
		x := s.Date.Sub(first).Hours() / 24
		y := float64(s.Quantity)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	n := float64(len(samples))
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
