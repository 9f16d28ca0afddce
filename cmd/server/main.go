// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/stockcast/internal/api"
	"github.com/andresuchdata/stockcast/internal/app"
	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/service"
	"github.com/andresuchdata/stockcast/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	if application.DB != nil {
		if err := application.DB.Migrate(ctx); err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to migrate database")
		}
	}

	router := api.NewRouter(application.APIServices(), cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	if interval := cfg.Alerts.ScanInterval; interval > 0 {
		go runAlertScans(ctx, application.Alerts, interval)
	}

	<-ctx.Done()
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
		os.Exit(1)
	}

	logger.Log.Info().Msg("Server exiting")
}

// runAlertScans scans for critical products every interval until ctx ends.
func runAlertScans(ctx context.Context, alerts *service.AlertService, interval time.Duration) {
	logger.Log.Info().Dur("interval", interval).Msg("Alert scanner started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := alerts.Scan(ctx); err != nil {
				logger.Log.Error().Err(err).Msg("Alert scan failed")
			}
		}
	}
}
