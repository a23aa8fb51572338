package dashboard

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"lab-booking/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labsServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != LabsPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func populateFrom(t *testing.T, srv *httptest.Server, doc string) ([]string, int, string) {
	t.Helper()
	client := NewClient(srv.URL, 2*time.Second)
	defer client.Close()

	var logs bytes.Buffer
	p := NewPopulator(client, zerolog.New(&logs))

	node, err := Parse(doc)
	require.NoError(t, err)
	n := p.Populate(context.Background(), node)
	return ListItems(node, LabsListID), n, logs.String()
}

func TestPopulateAppendsItemsInOrder(t *testing.T) {
	srv, hits := labsServer(t, http.StatusOK, `{"labs":[{"name":"A"},{"name":"B"}]}`)

	items, n, logs := populateFrom(t, srv, Skeleton)

	assert.Equal(t, []string{"A", "B"}, items)
	assert.Equal(t, 2, n)
	assert.Equal(t, int32(1), hits.Load())
	assert.Empty(t, logs)
}

func TestPopulateWithoutDashboardDoesNotFetch(t *testing.T) {
	srv, hits := labsServer(t, http.StatusOK, `{"labs":[{"name":"A"}]}`)

	items, n, _ := populateFrom(t, srv, `<html><body><ul id="labsList"></ul></body></html>`)

	assert.Empty(t, items)
	assert.Zero(t, n)
	assert.Zero(t, hits.Load())
}

func TestPopulateLogsFailures(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"server error":   {http.StatusInternalServerError, `{"error":"boom"}`},
		"not json":       {http.StatusOK, `<html>oops</html>`},
		"missing labs":   {http.StatusOK, `{"items":[]}`},
		"null labs":      {http.StatusOK, `{"labs":null}`},
		"wrong shape":    {http.StatusOK, `{"labs":"A,B"}`},
		"truncated body": {http.StatusOK, `{"labs":[{"name":"A"}`},
		"null entry":     {http.StatusOK, `{"labs":[{"name":"A"},null]}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv, _ := labsServer(t, tc.status, tc.body)

			items, n, logs := populateFrom(t, srv, Skeleton)

			assert.Empty(t, items)
			assert.Zero(t, n)
			assert.Contains(t, logs, "Error fetching labs")
			assert.Contains(t, logs, `"level":"error"`)
		})
	}
}

func TestPopulateLogsUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, time.Second)
	defer client.Close()
	var logs bytes.Buffer
	node, err := Parse(Skeleton)
	require.NoError(t, err)

	n := NewPopulator(client, zerolog.New(&logs)).Populate(context.Background(), node)

	assert.Zero(t, n)
	assert.Contains(t, logs.String(), "Error fetching labs")
}

func TestPopulateMissingListIsLogged(t *testing.T) {
	fetcher := FetcherFunc(func(context.Context) ([]domain.LabSummary, error) {
		return []domain.LabSummary{{Name: "A"}}, nil
	})
	var logs bytes.Buffer
	node, err := Parse(`<div id="dashboard"></div>`)
	require.NoError(t, err)

	n := NewPopulator(fetcher, zerolog.New(&logs)).Populate(context.Background(), node)

	assert.Zero(t, n)
	assert.Contains(t, logs.String(), LabsListID)
}

func TestPopulateEscapesNames(t *testing.T) {
	fetcher := FetcherFunc(func(context.Context) ([]domain.LabSummary, error) {
		return []domain.LabSummary{{Name: "<b>Lab</b> & co"}}, nil
	})
	node, err := Parse(Skeleton)
	require.NoError(t, err)
	NewPopulator(fetcher, zerolog.Nop()).Populate(context.Background(), node)

	out, err := Render(node)
	require.NoError(t, err)
	assert.Contains(t, out, "<li>&lt;b&gt;Lab&lt;/b&gt; &amp; co</li>")
}

func TestPopulateFetcherError(t *testing.T) {
	fetcher := FetcherFunc(func(context.Context) ([]domain.LabSummary, error) {
		return nil, errors.New("network down")
	})
	var logs bytes.Buffer
	node, err := Parse(Skeleton)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		NewPopulator(fetcher, zerolog.New(&logs)).Populate(context.Background(), node)
	})
	assert.Contains(t, logs.String(), "network down")
}

func TestDecodeLabs(t *testing.T) {
	labs, err := DecodeLabs([]byte(`{"labs":[]}`))
	require.NoError(t, err)
	assert.Empty(t, labs)

	_, err = DecodeLabs([]byte(`{}`))
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = DecodeLabs([]byte(`{"labs":[{"name":"A"},null]}`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.ErrorContains(t, err, "labs[1] is null")
}

func TestRenderList(t *testing.T) {
	assert.Equal(t, "- A\n- B\n", RenderList([]domain.LabSummary{{Name: "A"}, {Name: "B"}}))
	assert.Empty(t, RenderList(nil))
}
