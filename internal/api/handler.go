package api

import (
	"errors"
	"lab-booking/internal/dashboard"
	"lab-booking/internal/domain"
	"lab-booking/internal/events"
	"lab-booking/internal/form"
	"lab-booking/internal/service"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	accounts      *service.AccountService
	labService    *service.LabService
	bookings      *service.BookingService
	healthService *service.HealthService
	hub           *events.Hub

	cookieName   string
	secureCookie bool
}

type Options struct {
	Accounts     *service.AccountService
	Labs         *service.LabService
	Bookings     *service.BookingService
	Health       *service.HealthService
	Hub          *events.Hub
	CookieName   string
	SecureCookie bool
}

func NewHandler(opts Options) *Handler {
	return &Handler{
		accounts:      opts.Accounts,
		labService:    opts.Labs,
		bookings:      opts.Bookings,
		healthService: opts.Health,
		hub:           opts.Hub,
		cookieName:    opts.CookieName,
		secureCookie:  opts.SecureCookie,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type LoginResponse struct {
	Student *domain.Student `json:"student"`
}

// HandleLabsFeed serves the list consumed by the dashboard populate step.
// GET /api/labs
func (h *Handler) HandleLabsFeed(c echo.Context) error {
	labs, err := h.labService.ListLabs(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dashboard.LabsResponse{Labs: labs})
}

func (h *Handler) HandleListLabs(c echo.Context) error {
	labs, err := h.labService.ListLabs(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, labs)
}

func (h *Handler) HandleGetLabDetails(c echo.Context) error {
	labID, ok := idParam(c, "labID")
	if !ok {
		return badRequest(c, "invalid labID")
	}
	lab, err := h.labService.GetLabDetails(c.Request().Context(), labID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, lab)
}

func (h *Handler) HandleSearch(c echo.Context) error {
	result, err := h.labService.Search(c.Request().Context(), c.QueryParam("query"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) HandleRegister(c echo.Context) error {
	var req form.RegistrationForm
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	student, err := h.accounts.Register(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, student)
}

func (h *Handler) HandleLogin(c echo.Context) error {
	var req form.LoginForm
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	ctx := c.Request().Context()
	session, err := h.accounts.Login(ctx, req)
	if err != nil {
		return h.fail(c, err)
	}
	student, err := h.accounts.Profile(ctx, session.StudentID)
	if err != nil {
		return h.fail(c, err)
	}
	h.setSession(c, session.Token)
	return c.JSON(http.StatusOK, LoginResponse{Student: student})
}

func (h *Handler) HandleLogout(c echo.Context) error {
	if err := h.endSession(c); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) HandleProfile(c echo.Context) error {
	return c.JSON(http.StatusOK, currentStudent(c))
}

func (h *Handler) HandleListBookings(c echo.Context) error {
	bookings, err := h.bookings.ListForStudent(c.Request().Context(), currentStudent(c).ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, bookings)
}

func (h *Handler) HandleBookComputer(c echo.Context) error {
	computerID, ok := idParam(c, "computerID")
	if !ok {
		return badRequest(c, "invalid computerID")
	}
	booking, err := h.bookings.Book(c.Request().Context(), currentStudent(c).ID, computerID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, booking)
}

func (h *Handler) HandleCancelBooking(c echo.Context) error {
	bookingID, ok := idParam(c, "bookingID")
	if !ok {
		return badRequest(c, "invalid bookingID")
	}
	if err := h.bookings.Cancel(c.Request().Context(), currentStudent(c).ID, bookingID); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// fail writes the JSON error body for err with the status from StatusFor.
func (h *Handler) fail(c echo.Context, err error) error {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		msg = http.StatusText(status)
	}
	return c.JSON(status, ErrorResponse{Error: msg})
}

// StatusFor maps service and form errors onto HTTP statuses.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, form.ErrMissingFields),
		errors.Is(err, form.ErrPasswordMismatch),
		errors.Is(err, form.ErrInvalidEmail),
		errors.Is(err, form.ErrFieldTooLong):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, service.ErrLabNotFound),
		errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyExists),
		errors.Is(err, service.ErrActiveBooking),
		errors.Is(err, service.ErrComputerUnavailable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func idParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
