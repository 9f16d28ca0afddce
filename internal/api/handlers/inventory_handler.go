package handlers

import (
	"net/http"

	"github.com/andresuchdata/stockcast/internal/service"
	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	inventory *service.InventoryService
	dashboard *service.DashboardService
}

func NewInventoryHandler(inventory *service.InventoryService, dashboard *service.DashboardService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory, dashboard: dashboard}
}

func (h *InventoryHandler) GetOverview(c *gin.Context) {
	rows, err := h.dashboard.Overview(c.Request.Context())
	if err != nil {
		respondError(c, "failed to fetch overview", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows, "count": len(rows)})
}

func (h *InventoryHandler) GetLowStock(c *gin.Context) {
	items, err := h.dashboard.LowStock(c.Request.Context())
	if err != nil {
		respondError(c, "failed to fetch low stock", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// InvalidateCache drops the cached dataset and forecasts.
func (h *InventoryHandler) InvalidateCache(c *gin.Context) {
	if err := h.inventory.Invalidate(c.Request.Context()); err != nil {
		respondError(c, "failed to invalidate cache", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "invalidated"})
}
