// Package web renders the server-side pages. Element ids in the templates
// (registerForm, username, email, password, confirmPassword, dashboard,
// labsList) are a contract shared with clients.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"lab-booking/internal/dashboard"
	"lab-booking/internal/domain"
	"lab-booking/internal/form"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	PageHome      = "home.html"
	PageRegister  = "register.html"
	PageLogin     = "login.html"
	PageDashboard = "dashboard.html"
	PageLab       = "lab.html"
	PageProfile   = "profile.html"
)

type Flash struct {
	Kind    string
	Message string
}

type PageData struct {
	Title    string
	CSRF     string
	Flash    *Flash
	Student  *domain.Student
	Form     form.RegistrationForm
	Login    form.LoginForm
	Lab      *domain.Lab
	Bookings []*domain.Booking
}

// Pages implements echo.Renderer.
type Pages struct {
	pages     map[string]*template.Template
	populator *dashboard.Populator
}

func NewPages(labs dashboard.Fetcher, logger zerolog.Logger) (*Pages, error) {
	layout, err := template.ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	p := &Pages{
		pages:     make(map[string]*template.Template),
		populator: dashboard.NewPopulator(labs, logger),
	}
	for _, name := range []string{PageHome, PageRegister, PageLogin, PageDashboard, PageLab, PageProfile} {
		t, err := template.Must(layout.Clone()).ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		p.pages[name] = t
	}
	return p, nil
}

func (p *Pages) Render(w io.Writer, name string, data any, c echo.Context) error {
	ctx := context.Background()
	if c != nil {
		ctx = c.Request().Context()
	}
	return p.RenderPage(ctx, w, name, data)
}

// RenderPage executes the named page. The dashboard page additionally has
// its labs list filled in before it is written.
func (p *Pages) RenderPage(ctx context.Context, w io.Writer, name string, data any) error {
	t, ok := p.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	if name != PageDashboard {
		return t.ExecuteTemplate(w, name, data)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	doc, err := dashboard.Parse(buf.String())
	if err != nil {
		return fmt.Errorf("failed to parse dashboard: %w", err)
	}
	p.populator.Populate(ctx, doc)
	out, err := dashboard.Render(doc)
	if err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
