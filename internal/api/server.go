package api

import (
	"lab-booking/internal/observability"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// NewServer wires middleware, the page renderer and every route onto a new
// echo instance.
func NewServer(h *Handler, renderer echo.Renderer, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer

	e.Use(middleware.Recover())
	e.Use(observability.RequestLogger(logger))
	e.Use(observability.RequestMetrics())

	RegisterRoutes(e, h)
	return e
}
