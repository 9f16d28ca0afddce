// Package orders decides which purchase orders are still open and when each
// one is expected to arrive.
package orders

import (
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// FallbackLeadMonths is added to the order date when no expected date is set.
const FallbackLeadMonths = 3

// ReceivedValues are the cell values that mark an order as received,
// compared case-insensitively after trimming.
var ReceivedValues = []string{"כן", "v", "✓", "true", "yes"}

// ReceivedMark is written when an order is marked received.
const ReceivedMark = "כן"

// IsReceived reports whether a received cell value means "received".
func IsReceived(mark string) bool {
	m := strings.ToLower(strings.TrimSpace(mark))
	if m == "" {
		return false
	}
	for _, v := range ReceivedValues {
		if m == strings.ToLower(v) {
			return true
		}
	}
	return false
}

// OpenOrder is an open order with a resolved arrival date.
type OpenOrder struct {
	domain.Order
	ArrivalDate time.Time `json:"arrival_date"`
	// Estimated is true when ArrivalDate came from the order date + lead time.
	Estimated bool `json:"estimated"`
}

// Resolution splits open orders into those with a resolvable arrival date
// (ascending by that date) and those without one.
type Resolution struct {
	Scheduled   []OpenOrder    `json:"scheduled"`
	Unscheduled []domain.Order `json:"unscheduled"`
}

// Open returns the orders that are not marked received, in input order.
func Open(all []domain.Order) []domain.Order {
	out := make([]domain.Order, 0, len(all))
	for _, o := range all {
		if !IsReceived(o.ReceivedMark) {
			out = append(out, o)
		}
	}
	return out
}

// ArrivalDate resolves an order's expected arrival: the explicit expected
// date, else order date + FallbackLeadMonths. Month overflow rolls over
// (Nov 30 + 3 months = Mar 2 in a non-leap year), matching time.AddDate.
func ArrivalDate(o domain.Order) (time.Time, bool, bool) {
	if o.ExpectedDate != nil {
		return domain.DateOf(*o.ExpectedDate), false, true
	}
	if o.OrderDate != nil {
		return domain.DateOf(*o.OrderDate).AddDate(0, FallbackLeadMonths, 0), true, true
	}
	return time.Time{}, false, false
}

// Resolve filters out received orders and resolves arrival dates. Scheduled
// orders are sorted ascending by arrival date; ties keep input order.
func Resolve(all []domain.Order) Resolution {
	res := Resolution{
		Scheduled:   make([]OpenOrder, 0),
		Unscheduled: make([]domain.Order, 0),
	}
	for _, o := range Open(all) {
		arrival, estimated, ok := ArrivalDate(o)
		if !ok {
			res.Unscheduled = append(res.Unscheduled, o)
			continue
		}
		res.Scheduled = append(res.Scheduled, OpenOrder{Order: o, ArrivalDate: arrival, Estimated: estimated})
	}

	sort.SliceStable(res.Scheduled, func(i, j int) bool {
		return res.Scheduled[i].ArrivalDate.Before(res.Scheduled[j].ArrivalDate)
	})
	return res
}

// ForSKU returns the scheduled orders of one SKU, keeping their order.
func (r Resolution) ForSKU(sku string) []OpenOrder {
	var out []OpenOrder
	for _, o := range r.Scheduled {
		if o.SKU == sku {
			out = append(out, o)
		}
	}
	return out
}

// Overdue returns scheduled orders due on or before the given date.
func (r Resolution) Overdue(asOf time.Time) []OpenOrder {
	cutoff := domain.DateOf(asOf)
	var out []OpenOrder
	for _, o := range r.Scheduled {
		if !o.ArrivalDate.After(cutoff) {
			out = append(out, o)
		}
	}
	return out
}
