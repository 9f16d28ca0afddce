package handlers

import (
	"errors"
	"net/http"

	"github.com/andresuchdata/stockcast/internal/datasource"
	"github.com/andresuchdata/stockcast/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// daysPerMonth converts per-day rates into the monthly display figure.
const daysPerMonth = 30

func perMonth(daily float64) float64 {
	return daily * daysPerMonth
}

// respondError maps known errors to 4xx and everything else to 500.
func respondError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		status = http.StatusNotFound
	case errors.Is(err, datasource.ErrRowOutOfRange):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrSnapshotsDisabled), errors.Is(err, service.ErrExportDisabled):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
	}
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}
