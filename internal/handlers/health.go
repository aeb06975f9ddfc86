// Package handlers implements the HTTP surface of the search service:
// health probes plus the /search and /facets endpoints.
package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	NumItems  int       `json:"num_items"`
}

// HealthHandler reports process liveness plus the loaded index size. It
// never touches the facet/SKU store: that dependency degrades gracefully
// per-request rather than gating liveness.
//
// @Summary Health check
// @Description Get basic health status of the service and the loaded index size
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func HealthHandler(version string, numItems int) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Version:   version,
			NumItems:  numItems,
		})
	}
}

// RootHandler reports basic service information.
//
// @Summary Root endpoint
// @Description Get basic service information
// @Tags general
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func RootHandler(version string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "catalogue-search",
			"version": version,
			"status":  "running",
		})
	}
}
