package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/forecast"
	"github.com/andresuchdata/stockcast/internal/service"
	"github.com/gin-gonic/gin"
)

type ForecastHandler struct {
	forecasts *service.ForecastService
	snapshots *service.SnapshotService
}

func NewForecastHandler(forecasts *service.ForecastService, snapshots *service.SnapshotService) *ForecastHandler {
	return &ForecastHandler{forecasts: forecasts, snapshots: snapshots}
}

type monthlyRates struct {
	DeclineRatePerMonth float64 `json:"decline_rate_per_month"`
	RealRatePerMonth    float64 `json:"real_rate_per_month"`
	MinRatePerMonth     float64 `json:"min_rate_per_month"`
}

func ratesOf(decline, realRate, minRate float64) monthlyRates {
	return monthlyRates{
		DeclineRatePerMonth: perMonth(decline),
		RealRatePerMonth:    perMonth(realRate),
		MinRatePerMonth:     perMonth(minRate),
	}
}

type forecastResponse struct {
	Product domain.Product `json:"product"`
	forecast.Result
	monthlyRates
}

type summaryResponse struct {
	domain.ForecastSummary
	monthlyRates
}

func summaryOf(s domain.ForecastSummary) summaryResponse {
	return summaryResponse{ForecastSummary: s, monthlyRates: ratesOf(s.DeclineRate, s.RealRate, s.MinRate)}
}

// GetAll returns one summary per product. Pass critical_only=true to keep
// only products with a predicted crossing.
func (h *ForecastHandler) GetAll(c *gin.Context) {
	all, err := h.forecasts.All(c.Request.Context())
	if err != nil {
		respondError(c, "failed to compute forecasts", err)
		return
	}
	criticalOnly, _ := strconv.ParseBool(c.DefaultQuery("critical_only", "false"))
	now := time.Now()

	items := make([]summaryResponse, 0, len(all))
	for _, f := range all {
		if criticalOnly && f.Result.Critical == nil {
			continue
		}
		items = append(items, summaryOf(f.Summary("", now)))
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (h *ForecastHandler) GetBySKU(c *gin.Context) {
	sku := strings.TrimSpace(c.Param("sku"))
	f, err := h.forecasts.ForSKU(c.Request.Context(), sku)
	if err != nil {
		respondError(c, "failed to compute forecast", err)
		return
	}
	r := f.Result
	c.JSON(http.StatusOK, forecastResponse{
		Product:      f.Product,
		Result:       r,
		monthlyRates: ratesOf(r.DeclineRate, r.RealRate, r.MinRate),
	})
}

func (h *ForecastHandler) GetSnapshots(c *gin.Context) {
	if h.snapshots == nil {
		respondError(c, "failed to fetch snapshots", service.ErrSnapshotsDisabled)
		return
	}
	sku := strings.TrimSpace(c.Param("sku"))
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "30"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit", "details": c.Query("limit")})
		return
	}

	history, err := h.snapshots.History(c.Request.Context(), sku, limit)
	if err != nil {
		respondError(c, "failed to fetch snapshots", err)
		return
	}
	items := make([]summaryResponse, 0, len(history))
	for _, s := range history {
		items = append(items, summaryOf(s))
	}
	c.JSON(http.StatusOK, gin.H{"sku": sku, "items": items, "count": len(items)})
}
