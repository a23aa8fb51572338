package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"lab-booking/internal/form"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T, labsBody string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	registrations := &atomic.Int32{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/labs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(labsBody))
	})
	mux.HandleFunc("/api/v1/register", func(w http.ResponseWriter, r *http.Request) {
		registrations.Add(1)
		var f form.RegistrationForm
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			t.Errorf("decode register body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if f.Username == "taken" {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"already exists"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":3,"username":"` + f.Username + `","email":"` + f.Email + `"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, registrations
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestLabsCommand(t *testing.T) {
	srv, _ := fakeAPI(t, `{"labs":[{"name":"A"},{"name":"B"}]}`)

	out, _, err := execute(t, "labs", "--server", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "- A\n- B\n", out)
}

func TestLabsCommandFailsOnMalformedBody(t *testing.T) {
	srv, _ := fakeAPI(t, `nope`)

	_, _, err := execute(t, "labs", "--server", srv.URL)
	assert.ErrorContains(t, err, "Error fetching labs")
}

func TestDashboardCommand(t *testing.T) {
	srv, _ := fakeAPI(t, `{"labs":[{"name":"A"},{"name":"B"}]}`)

	out, _, err := execute(t, "dashboard", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, `<ul id="labsList"><li>A</li><li>B</li></ul>`)
}

func TestDashboardCommandLogsFetchFailure(t *testing.T) {
	srv, _ := fakeAPI(t, `{"other":1}`)

	out, errOut, err := execute(t, "dashboard", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, `<ul id="labsList"></ul>`)
	assert.Contains(t, errOut, "Error fetching labs")
}

func TestRegisterCommandGuardBlocksSubmission(t *testing.T) {
	srv, registrations := fakeAPI(t, `{"labs":[]}`)

	_, _, err := execute(t, "register", "--server", srv.URL,
		"--username", "ada", "--email", "ada@example.com", "--password", "pw")
	assert.ErrorIs(t, err, form.ErrMissingFields)

	_, _, err = execute(t, "register", "--server", srv.URL,
		"--username", "ada", "--email", "ada@example.com", "--password", "pw", "--confirm-password", "px")
	assert.ErrorIs(t, err, form.ErrPasswordMismatch)

	assert.Zero(t, registrations.Load())
}

func TestRegisterCommandSubmits(t *testing.T) {
	srv, registrations := fakeAPI(t, `{"labs":[]}`)

	out, _, err := execute(t, "register", "--server", srv.URL,
		"--username", "ada", "--email", "ada@example.com", "--password", "pw", "--confirm-password", "pw")
	require.NoError(t, err)
	assert.Equal(t, "registered ada (id 3)\n", out)
	assert.Equal(t, int32(1), registrations.Load())

	_, _, err = execute(t, "register", "--server", srv.URL,
		"--username", "taken", "--email", "t@example.com", "--password", "pw", "--confirm-password", "pw")
	assert.ErrorContains(t, err, "already exists")
}
