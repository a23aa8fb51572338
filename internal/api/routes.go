package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	csrfKey    = "csrf"
	csrfField  = "_csrf"
	csrfCookie = "lab_csrf"
)

// pageCSRF issues a token cookie on every page and requires the matching
// hidden form field on page POSTs.
func (h *Handler) pageCSRF() echo.MiddlewareFunc {
	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "form:" + csrfField,
		ContextKey:     csrfKey,
		CookieName:     csrfCookie,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   h.secureCookie,
		CookieSameSite: http.SameSiteLaxMode,
	})
}

// RegisterRoutes registers the JSON API, the pages and /metrics.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.Use(h.LoadStudent)

	// consumed by the dashboard populate step
	e.GET("/api/labs", h.HandleLabsFeed)

	g := e.Group("/api/v1")
	g.GET("/labs", h.HandleListLabs)
	g.GET("/labs/:labID", h.HandleGetLabDetails)
	g.GET("/search", h.HandleSearch)
	g.GET("/health", h.HandleHealthCheck)
	g.GET("/events", h.HandleEvents)

	g.POST("/register", h.HandleRegister)
	g.POST("/login", h.HandleLogin)
	g.POST("/logout", h.HandleLogout)

	g.GET("/profile", h.HandleProfile, h.RequireStudent)
	g.GET("/bookings", h.HandleListBookings, h.RequireStudent)
	g.POST("/computers/:computerID/book", h.HandleBookComputer, h.RequireStudent)
	g.POST("/bookings/:bookingID/cancel", h.HandleCancelBooking, h.RequireStudent)

	csrf := h.pageCSRF()
	e.GET("/", h.PageHome, csrf)
	e.GET("/register", h.PageRegister, csrf)
	e.POST("/register", h.PageRegisterSubmit, csrf)
	e.GET("/login", h.PageLogin, csrf)
	e.POST("/login", h.PageLoginSubmit, csrf)
	e.POST("/logout", h.PageLogout, csrf)
	e.GET("/dashboard", h.PageDashboard, csrf)
	e.GET("/labs/:labID", h.PageLabDetails, csrf)
	e.GET("/profile", h.PageProfile, csrf)
	e.POST("/computers/:computerID/book", h.PageBookComputer, csrf)
	e.POST("/bookings/:bookingID/cancel", h.PageCancelBooking, csrf)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
