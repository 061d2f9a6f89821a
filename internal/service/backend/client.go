package backend

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"MarketOverlay/internal/domain/models"
	drepo "MarketOverlay/internal/domain/repository"
	xhttp "MarketOverlay/pkg/http"
)

// Client talks to the analytics backend over HTTP/JSON.
type Client struct {
	baseURL string
	http    *xhttp.Client
}

var (
	_ drepo.MarketData   = (*Client)(nil)
	_ drepo.ForwardTests = (*Client)(nil)
)

// New creates a backend client. baseURL must not carry a trailing slash.
func New(baseURL string, timeout time.Duration, opts ...xhttp.ClientOption) *Client {
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(timeout)}, opts...)
	return &Client{
		baseURL: baseURL,
		http:    xhttp.NewClient(opts...),
	}
}

func (c *Client) FetchOHLCV(ctx context.Context, symbol string, limit int) (*models.OHLCVResponse, error) {
	var out models.OHLCVResponse
	if err := c.get(ctx, "OHLCV", "/api/v1/ohlcv", symbolQuery(symbol, limit), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FetchTrend(ctx context.Context, symbol string, limit int) (*models.TrendResponse, error) {
	var out models.TrendResponse
	if err := c.get(ctx, "Trend", "/api/v1/trend", symbolQuery(symbol, limit), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FetchVolume(ctx context.Context, symbol string, limit int) (*models.VolumeResponse, error) {
	var out models.VolumeResponse
	if err := c.get(ctx, "Volume", "/api/v1/volume", symbolQuery(symbol, limit), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FetchSignal(ctx context.Context, symbol string, limit int) (*models.SignalResponse, error) {
	var out models.SignalResponse
	if err := c.get(ctx, "Signal", "/api/v1/signals", symbolQuery(symbol, limit), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StartForwardTest(ctx context.Context, symbol string) (*models.ForwardTestRun, error) {
	var out models.ForwardTestRun
	err := c.do(ctx, "Start forward test", &xhttp.RequestOptions{
		Method:      xhttp.MethodPost,
		URL:         c.baseURL + "/api/v1/forward-test/start",
		QueryParams: map[string][]string{"symbol": {symbol}},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ForwardTestStatus(ctx context.Context, runID int64) (*models.ForwardTestStatus, error) {
	var out models.ForwardTestStatus
	if err := c.get(ctx, "Forward test status", "/api/v1/forward-test/status", runQuery(runID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ForwardTestTrades(ctx context.Context, runID int64) ([]models.ForwardTestTrade, error) {
	var out models.ForwardTestTradesResponse
	if err := c.get(ctx, "Forward test trades", "/api/v1/forward-test/trades", runQuery(runID), &out); err != nil {
		return nil, err
	}
	return out.Trades, nil
}

func (c *Client) get(ctx context.Context, name, path string, q map[string][]string, dest interface{}) error {
	return c.do(ctx, name, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + path,
		QueryParams: q,
	}, dest)
}

// do renders failures as "<name> failed: <status> <body>" for non-2xx
// responses and "<name> failed: <cause>" otherwise.
func (c *Client) do(ctx context.Context, name string, opts *xhttp.RequestOptions, dest interface{}) error {
	if err := c.http.SendAndParse(ctx, opts, dest); err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

func symbolQuery(symbol string, limit int) map[string][]string {
	return map[string][]string{
		"symbol": {symbol},
		"limit":  {strconv.Itoa(limit)},
	}
}

func runQuery(runID int64) map[string][]string {
	return map[string][]string{"test_run_id": {strconv.FormatInt(runID, 10)}}
}
