package handlers

import (
	"net/http"
	"strconv"

	"github.com/andresuchdata/stockcast/internal/datasource"
	"github.com/andresuchdata/stockcast/internal/service"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orders    *service.OrderService
	dashboard *service.DashboardService
}

func NewOrderHandler(orders *service.OrderService, dashboard *service.DashboardService) *OrderHandler {
	return &OrderHandler{orders: orders, dashboard: dashboard}
}

func (h *OrderHandler) GetOpen(c *gin.Context) {
	view, err := h.dashboard.OpenOrders(c.Request.Context())
	if err != nil {
		respondError(c, "failed to fetch open orders", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *OrderHandler) GetOnTheWay(c *gin.Context) {
	items, err := h.dashboard.OnTheWay(c.Request.Context())
	if err != nil {
		respondError(c, "failed to fetch orders on the way", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

type receivedRequest struct {
	Received *bool   `json:"received" binding:"required"`
	Comments *string `json:"comments"`
}

// SetReceived handles PATCH /orders/:row/received. The row is the 1-based
// sheet row of the order.
func (h *OrderHandler) SetReceived(c *gin.Context) {
	row, err := strconv.Atoi(c.Param("row"))
	if err != nil || row <= datasource.HeaderRow {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid row", "details": c.Param("row")})
		return
	}

	var req receivedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	order, err := h.orders.SetReceived(c.Request.Context(), row, *req.Received, req.Comments)
	if err != nil {
		respondError(c, "failed to update order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}
