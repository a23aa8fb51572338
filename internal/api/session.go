package api

import (
	"errors"
	"lab-booking/internal/domain"
	"lab-booking/internal/service"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const (
	studentKey  = "student"
	flashCookie = "lab_flash"
)

// LoadStudent resolves the session cookie, if any, and stores the student
// on the context. Requests without a valid session pass through anonymous.
func (h *Handler) LoadStudent(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(h.cookieName)
		if err == nil && cookie.Value != "" {
			student, err := h.accounts.Authenticate(c.Request().Context(), cookie.Value)
			switch {
			case err == nil:
				c.Set(studentKey, student)
			case errors.Is(err, service.ErrUnauthenticated):
				h.clearSession(c)
			default:
				log.Warn().Err(err).Msg("session lookup failed")
			}
		}
		return next(c)
	}
}

// RequireStudent rejects anonymous API requests with 401.
func (h *Handler) RequireStudent(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if currentStudent(c) == nil {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: service.ErrUnauthenticated.Error()})
		}
		return next(c)
	}
}

func currentStudent(c echo.Context) *domain.Student {
	s, _ := c.Get(studentKey).(*domain.Student)
	return s
}

func (h *Handler) setSession(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSession(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) endSession(c echo.Context) error {
	defer h.clearSession(c)
	cookie, err := c.Cookie(h.cookieName)
	if err != nil {
		return nil
	}
	return h.accounts.Logout(c.Request().Context(), cookie.Value)
}

// setFlash stores a one-shot message shown on the next rendered page.
func setFlash(c echo.Context, kind, msg string) {
	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(kind + "|" + msg),
		Path:     "/",
		HttpOnly: true,
	})
}

func popFlash(c echo.Context) (kind, msg string, ok bool) {
	cookie, err := c.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return "", "", false
	}
	c.SetCookie(&http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return "", "", false
	}
	kind, msg, ok = strings.Cut(raw, "|")
	return kind, msg, ok
}
