package api

import (
	"lab-booking/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HandleHealthCheck reports the state of the app and its dependencies.
// GET /api/v1/health
func (h *Handler) HandleHealthCheck(c echo.Context) error {
	health := h.healthService.CheckHealth(c.Request().Context())

	httpStatus := http.StatusOK
	if health.Status == service.StatusUnavailable {
		httpStatus = http.StatusServiceUnavailable
	}
	return c.JSON(httpStatus, health)
}
