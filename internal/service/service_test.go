package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"lab-booking/internal/domain"
	"lab-booking/internal/form"
	"lab-booking/internal/repository"
	"lab-booking/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.BookingEvent
}

func (p *recordingPublisher) Publish(ev domain.BookingEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

type fixture struct {
	repo     service.Repository
	accounts *service.AccountService
	labs     *service.LabService
	bookings *service.BookingService
	events   *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := repository.NewSQLiteRepository(filepath.Join(t.TempDir(), "lab.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	pub := &recordingPublisher{}
	f := &fixture{
		repo:     repo,
		accounts: service.NewAccountService(repo, bcrypt.MinCost),
		labs:     service.NewLabService(repo),
		bookings: service.NewBookingService(repo, repo, pub),
		events:   pub,
	}
	require.NoError(t, f.labs.SeedLabs(context.Background(), domain.DefaultLabSeeds()))
	return f
}

func (f *fixture) register(t *testing.T, name string) *domain.Student {
	t.Helper()
	s, err := f.accounts.Register(context.Background(), form.RegistrationForm{
		Username:        name,
		Email:           name + "@example.com",
		Password:        "pw-" + name,
		ConfirmPassword: "pw-" + name,
	})
	require.NoError(t, err)
	return s
}

func TestRegisterRunsFormGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.accounts.Register(ctx, form.RegistrationForm{Username: "ada"})
	assert.ErrorIs(t, err, form.ErrMissingFields)

	_, err = f.accounts.Register(ctx, form.RegistrationForm{
		Username: "ada", Email: "ada@example.com", Password: "a", ConfirmPassword: "b",
	})
	assert.ErrorIs(t, err, form.ErrPasswordMismatch)
}

func TestRegisterRejectsOverlongFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.accounts.Register(ctx, form.RegistrationForm{
		Username: strings.Repeat("u", 500), Email: "long@example.com", Password: "pw", ConfirmPassword: "pw",
	})
	assert.ErrorIs(t, err, form.ErrFieldTooLong)
	_, err = f.accounts.Login(ctx, form.LoginForm{Email: "long@example.com", Password: "pw"})
	assert.ErrorIs(t, err, service.ErrStudentNotFound, "nothing stored")

	pw := strings.Repeat("p", 80)
	_, err = f.accounts.Register(ctx, form.RegistrationForm{
		Username: "ada", Email: "ada@example.com", Password: pw, ConfirmPassword: pw,
	})
	assert.ErrorIs(t, err, form.ErrFieldTooLong)
	assert.NotContains(t, err.Error(), "hash")
}

func TestRegisterHashesAndRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	s := f.register(t, "ada")
	assert.NotEqual(t, "pw-ada", s.PasswordHash)

	_, err := f.accounts.Register(context.Background(), form.RegistrationForm{
		Username: "ada", Email: "ADA@example.com ", Password: "x", ConfirmPassword: "x",
	})
	assert.ErrorIs(t, err, service.ErrAlreadyExists)
}

func TestLoginAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.register(t, "ada")

	_, err := f.accounts.Login(ctx, form.LoginForm{Email: "nobody@example.com", Password: "x"})
	assert.ErrorIs(t, err, service.ErrStudentNotFound)

	_, err = f.accounts.Login(ctx, form.LoginForm{Email: "ada@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	session, err := f.accounts.Login(ctx, form.LoginForm{Email: "Ada@Example.com", Password: "pw-ada"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	who, err := f.accounts.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, ada.ID, who.ID)

	require.NoError(t, f.accounts.Logout(ctx, session.Token))
	_, err = f.accounts.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, service.ErrUnauthenticated)

	_, err = f.accounts.Authenticate(ctx, "")
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
}

func TestListLabsInSeedOrder(t *testing.T) {
	f := newFixture(t)
	labs, err := f.labs.ListLabs(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(labs))
	for _, l := range labs {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"Lab 120", "Lab L44", "Lab 170", "Lab 210", "Lab 128"}, names)
	assert.Equal(t, 20, labs[0].AvailableComputers)
}

func TestSeedLabsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.labs.SeedLabs(ctx, domain.DefaultLabSeeds()))

	labs, err := f.labs.ListLabs(ctx)
	require.NoError(t, err)
	assert.Len(t, labs, 5)
	assert.Equal(t, 20, labs[0].TotalComputers)

	assert.Error(t, f.labs.SeedLabs(ctx, []domain.LabSeed{{Name: " "}}))
	assert.ErrorContains(t,
		f.labs.SeedLabs(ctx, []domain.LabSeed{{Name: strings.Repeat("L", domain.MaxLabNameLen+1), Computers: 1}}),
		"exceeds 100 characters")
	labs, err = f.labs.ListLabs(ctx)
	require.NoError(t, err)
	assert.Len(t, labs, 5)
}

func TestGetLabDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.labs.GetLabDetails(ctx, 999)
	assert.ErrorIs(t, err, service.ErrLabNotFound)

	lab, err := f.labs.GetLabDetails(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Lab 170", lab.Name)
	assert.Len(t, lab.Computers, 10)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.labs.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all.Labs, 5)
	assert.Len(t, all.Computers, 65)

	byName, err := f.labs.Search(ctx, "l44")
	require.NoError(t, err)
	require.Len(t, byName.Labs, 1)
	assert.Len(t, byName.Computers, 15)

	byID, err := f.labs.Search(ctx, "21")
	require.NoError(t, err)
	require.Len(t, byID.Computers, 1)
	assert.Equal(t, int64(21), byID.Computers[0].ID)
	require.Len(t, byID.Labs, 1)
	assert.Equal(t, "Lab 210", byID.Labs[0].Name)

	none, err := f.labs.Search(ctx, "nothing")
	require.NoError(t, err)
	assert.Empty(t, none.Labs)
	assert.Empty(t, none.Computers)
}

func TestBookAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.register(t, "ada")
	bob := f.register(t, "bob")

	booking, err := f.bookings.Book(ctx, ada.ID, 1)
	require.NoError(t, err)

	_, err = f.bookings.Book(ctx, ada.ID, 2)
	assert.ErrorIs(t, err, service.ErrActiveBooking)

	_, err = f.bookings.Book(ctx, bob.ID, 1)
	assert.ErrorIs(t, err, service.ErrComputerUnavailable)

	_, err = f.bookings.Book(ctx, bob.ID, 100000)
	assert.ErrorIs(t, err, service.ErrComputerUnavailable)

	assert.ErrorIs(t, f.bookings.Cancel(ctx, bob.ID, booking.ID), service.ErrNotAuthorized)
	require.NoError(t, f.bookings.Cancel(ctx, ada.ID, booking.ID))
	assert.ErrorIs(t, f.bookings.Cancel(ctx, ada.ID, booking.ID), service.ErrNotAuthorized)

	mine, err := f.bookings.ListForStudent(ctx, ada.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)

	_, err = f.bookings.Book(ctx, bob.ID, 1)
	require.NoError(t, err)

	require.Len(t, f.events.events, 3)
	assert.Equal(t, domain.EventBooked, f.events.events[0].Type)
	assert.Equal(t, int64(1), f.events.events[0].LabID)
	assert.Equal(t, domain.EventCancelled, f.events.events[1].Type)
}

func TestConcurrentBookingsOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	students := make([]*domain.Student, 5)
	for i := range students {
		students[i] = f.register(t, "s"+string(rune('a'+i)))
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, s := range students {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := f.bookings.Book(ctx, id, 5)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if !errors.Is(err, service.ErrComputerUnavailable) {
				t.Errorf("unexpected error: %v", err)
			}
		}(s.ID)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	health := service.NewHealthService(f.repo, t.TempDir()).CheckHealth(context.Background())
	assert.Equal(t, service.StatusOK, health.Status)
	assert.Equal(t, "ok", health.Checks["database"])

	require.NoError(t, f.repo.Close())
	health = service.NewHealthService(f.repo, t.TempDir()).CheckHealth(context.Background())
	assert.Equal(t, service.StatusUnavailable, health.Status)
}
