// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/stockcast/internal/api/handlers"
	"github.com/andresuchdata/stockcast/internal/api/middleware"
	"github.com/andresuchdata/stockcast/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Inventory *service.InventoryService
	Dashboard *service.DashboardService
	Forecasts *service.ForecastService
	Orders    *service.OrderService
	Snapshots *service.SnapshotService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.Inventory != nil && services.Dashboard != nil {
			inventoryHandler := handlers.NewInventoryHandler(services.Inventory, services.Dashboard)
			inventoryGroup := apiGroup.Group("/inventory")
			{
				inventoryGroup.GET("/overview", inventoryHandler.GetOverview)
				inventoryGroup.GET("/low_stock", inventoryHandler.GetLowStock)
			}
			apiGroup.POST("/cache/invalidate", inventoryHandler.InvalidateCache)
		}

		if services.Orders != nil && services.Dashboard != nil {
			orderHandler := handlers.NewOrderHandler(services.Orders, services.Dashboard)
			orderGroup := apiGroup.Group("/orders")
			{
				orderGroup.GET("/open", orderHandler.GetOpen)
				orderGroup.GET("/on_the_way", orderHandler.GetOnTheWay)
				orderGroup.PATCH("/:row/received", orderHandler.SetReceived)
			}
		}

		if services.Forecasts != nil {
			forecastHandler := handlers.NewForecastHandler(services.Forecasts, services.Snapshots)
			forecastGroup := apiGroup.Group("/forecast")
			{
				forecastGroup.GET("", forecastHandler.GetAll)
				forecastGroup.GET("/:sku", forecastHandler.GetBySKU)
				forecastGroup.GET("/:sku/snapshots", forecastHandler.GetSnapshots)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
