package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lab-booking/internal/domain"

	"resty.dev/v3"
)

const LabsPath = "/api/labs"

var ErrMalformedResponse = errors.New("malformed labs response")

// LabsResponse is the body served at LabsPath.
type LabsResponse struct {
	Labs []domain.LabSummary `json:"labs"`
}

// Fetcher yields the labs to show on the dashboard.
type Fetcher interface {
	FetchLabs(ctx context.Context) ([]domain.LabSummary, error)
}

// FetcherFunc adapts a function into a Fetcher.
type FetcherFunc func(ctx context.Context) ([]domain.LabSummary, error)

func (f FetcherFunc) FetchLabs(ctx context.Context) ([]domain.LabSummary, error) {
	return f(ctx)
}

// Client fetches labs from a running lab-api. It issues exactly one request
// per call and never retries.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

func (c *Client) Close() error {
	return c.http.Close()
}

func (c *Client) FetchLabs(ctx context.Context) ([]domain.LabSummary, error) {
	res, err := c.http.R().SetContext(ctx).Get(LabsPath)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", LabsPath, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("GET %s: unexpected status %d", LabsPath, res.StatusCode())
	}
	return DecodeLabs(res.Bytes())
}

// DecodeLabs parses a LabsResponse body. A body without a "labs" array, or
// with a null entry in it, is malformed.
func DecodeLabs(body []byte) ([]domain.LabSummary, error) {
	var raw struct {
		Labs *[]*domain.LabSummary `json:"labs"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw.Labs == nil {
		return nil, fmt.Errorf("%w: missing labs array", ErrMalformedResponse)
	}
	labs := make([]domain.LabSummary, 0, len(*raw.Labs))
	for i, lab := range *raw.Labs {
		if lab == nil {
			return nil, fmt.Errorf("%w: labs[%d] is null", ErrMalformedResponse, i)
		}
		labs = append(labs, *lab)
	}
	return labs, nil
}
