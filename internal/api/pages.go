package api

import (
	"errors"
	"lab-booking/internal/form"
	"lab-booking/internal/service"
	"lab-booking/internal/web"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	flashSuccess = "success"
	flashWarning = "warning"
	flashDanger  = "danger"
)

func (h *Handler) page(c echo.Context, status int, name, title string, data web.PageData) error {
	data.Title = title
	data.Student = currentStudent(c)
	data.CSRF, _ = c.Get(csrfKey).(string)
	if data.Flash == nil {
		if kind, msg, ok := popFlash(c); ok {
			data.Flash = &web.Flash{Kind: kind, Message: msg}
		}
	}
	return c.Render(status, name, data)
}

func (h *Handler) redirect(c echo.Context, to, kind, msg string) error {
	if msg != "" {
		setFlash(c, kind, msg)
	}
	return c.Redirect(http.StatusSeeOther, to)
}

func (h *Handler) PageHome(c echo.Context) error {
	return h.page(c, http.StatusOK, web.PageHome, "Home", web.PageData{})
}

func (h *Handler) PageRegister(c echo.Context) error {
	return h.page(c, http.StatusOK, web.PageRegister, "Sign up", web.PageData{})
}

// PageRegisterSubmit runs the registration guard before anything is stored.
// A blocked submission re-renders the form with the alert and a 422.
func (h *Handler) PageRegisterSubmit(c echo.Context) error {
	var f form.RegistrationForm
	if err := c.Bind(&f); err != nil {
		return h.page(c, http.StatusBadRequest, web.PageRegister, "Sign up", web.PageData{
			Flash: &web.Flash{Kind: flashDanger, Message: "invalid form"},
		})
	}

	_, err := h.accounts.Register(c.Request().Context(), f)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if StatusFor(err) == http.StatusInternalServerError {
			status = http.StatusInternalServerError
		}
		msg := err.Error()
		if errors.Is(err, service.ErrAlreadyExists) {
			msg = "Username or email already registered"
		} else if status == http.StatusInternalServerError {
			msg = http.StatusText(status)
		}
		// never echo passwords back into the page
		f.Password, f.ConfirmPassword = "", ""
		return h.page(c, status, web.PageRegister, "Sign up", web.PageData{
			Flash: &web.Flash{Kind: flashDanger, Message: msg},
			Form:  f,
		})
	}
	return h.redirect(c, "/login", flashSuccess, "Registration successful, please login")
}

func (h *Handler) PageLogin(c echo.Context) error {
	return h.page(c, http.StatusOK, web.PageLogin, "Log in", web.PageData{})
}

func (h *Handler) PageLoginSubmit(c echo.Context) error {
	var f form.LoginForm
	if err := c.Bind(&f); err != nil {
		return h.page(c, http.StatusBadRequest, web.PageLogin, "Log in", web.PageData{
			Flash: &web.Flash{Kind: flashDanger, Message: "invalid form"},
		})
	}
	session, err := h.accounts.Login(c.Request().Context(), f)
	if err != nil {
		status := StatusFor(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			msg = http.StatusText(status)
		} else {
			status = http.StatusUnprocessableEntity
		}
		f.Password = ""
		return h.page(c, status, web.PageLogin, "Log in", web.PageData{
			Flash: &web.Flash{Kind: flashDanger, Message: msg},
			Login: f,
		})
	}
	h.setSession(c, session.Token)
	return h.redirect(c, "/dashboard", flashSuccess, "Login successful")
}

func (h *Handler) PageLogout(c echo.Context) error {
	if err := h.endSession(c); err != nil {
		return err
	}
	return h.redirect(c, "/login", flashSuccess, "You have been logged out")
}

func (h *Handler) PageDashboard(c echo.Context) error {
	data := web.PageData{}
	if s := currentStudent(c); s != nil {
		bookings, err := h.bookings.ListForStudent(c.Request().Context(), s.ID)
		if err != nil {
			return err
		}
		data.Bookings = bookings
	}
	return h.page(c, http.StatusOK, web.PageDashboard, "Dashboard", data)
}

func (h *Handler) PageLabDetails(c echo.Context) error {
	labID, ok := idParam(c, "labID")
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	lab, err := h.labService.GetLabDetails(c.Request().Context(), labID)
	if errors.Is(err, service.ErrLabNotFound) {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if err != nil {
		return err
	}
	return h.page(c, http.StatusOK, web.PageLab, lab.Name, web.PageData{Lab: lab})
}

func (h *Handler) PageProfile(c echo.Context) error {
	if currentStudent(c) == nil {
		return h.redirect(c, "/login", flashWarning, "You must be logged in to view this page")
	}
	return h.page(c, http.StatusOK, web.PageProfile, "Profile", web.PageData{})
}

func (h *Handler) PageBookComputer(c echo.Context) error {
	s := currentStudent(c)
	if s == nil {
		return h.redirect(c, "/login", flashWarning, "You must be logged in to book a computer")
	}
	computerID, ok := idParam(c, "computerID")
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if _, err := h.bookings.Book(c.Request().Context(), s.ID, computerID); err != nil {
		if StatusFor(err) == http.StatusInternalServerError {
			return err
		}
		kind := flashDanger
		if errors.Is(err, service.ErrActiveBooking) {
			kind = flashWarning
		}
		return h.redirect(c, "/dashboard", kind, err.Error())
	}
	return h.redirect(c, "/dashboard", flashSuccess, "Computer booked successfully")
}

func (h *Handler) PageCancelBooking(c echo.Context) error {
	s := currentStudent(c)
	if s == nil {
		return h.redirect(c, "/login", flashWarning, "You must be logged in to cancel a booking")
	}
	bookingID, ok := idParam(c, "bookingID")
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if err := h.bookings.Cancel(c.Request().Context(), s.ID, bookingID); err != nil {
		if StatusFor(err) == http.StatusInternalServerError {
			return err
		}
		return h.redirect(c, "/dashboard", flashDanger, err.Error())
	}
	return h.redirect(c, "/dashboard", flashSuccess, "Booking cancelled successfully")
}
