package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	xhttp "MarketOverlay/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, 2*time.Second)
}

func TestFetchOHLCV(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/ohlcv", r.URL.Path)
		assert.Equal(t, "BTC/USDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "500", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"exchange":"coinbase","symbol":"BTC/USDT","normalized_symbol":"BTC-USD",
			"timeframes":{"5m":[{"t":300000,"iso":"","o":1,"h":2,"l":0.5,"c":1.5,"v":10},
			{"t":600000,"iso":"","o":1.5,"h":2,"l":1,"c":1.8,"v":12}],"15m":[]}}`))
	})

	res, err := c.FetchOHLCV(context.Background(), "BTC/USDT", 500)
	require.NoError(t, err)
	assert.Equal(t, "BTC-USD", res.NormalizedSymbol)

	candles := res.Candles("5m")
	require.Len(t, candles, 2)
	assert.Equal(t, int64(300), candles[0].Time)
	assert.Equal(t, int64(600), candles[1].Time)
	assert.Equal(t, 1.8, candles[1].Close)
	require.NotNil(t, candles[1].Volume)
	assert.Equal(t, 12.0, *candles[1].Volume)
	assert.Empty(t, res.Candles("15m"))
}

func TestNon2xxIsNamed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := c.FetchTrend(context.Background(), "ETH/USDT", 500)
	require.Error(t, err)
	assert.Equal(t, "Trend failed: 503 upstream down", err.Error())
	assert.True(t, xhttp.IsStatus(err, http.StatusServiceUnavailable))
}

func TestForwardTestEndpoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/forward-test/start":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "SOL/USDT", r.URL.Query().Get("symbol"))
			_, _ = w.Write([]byte(`{"id":7,"symbol":"SOL/USDT","start_time":"2024-01-01T00:00:00Z","end_time":null,"is_active":true,"summary":null}`))
		case "/api/v1/forward-test/trades":
			assert.Equal(t, "7", r.URL.Query().Get("test_run_id"))
			_, _ = w.Write([]byte(`{"trades":[{"id":1,"direction":"long","entry_price":10,"stop_loss":9,"take_profit":12,"exit_price":null,"candle_time":"2024-01-01T00:05:00+00:00"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	run, err := c.StartForwardTest(context.Background(), "SOL/USDT")
	require.NoError(t, err)
	assert.Equal(t, int64(7), run.ID)
	assert.True(t, run.IsActive)
	assert.Nil(t, run.EndTime)

	trades, err := c.ForwardTestTrades(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "long", trades[0].Direction)
	assert.Nil(t, trades[0].ExitPrice)

	_, err = c.ForwardTestStatus(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Forward test status failed: 404")
}

func TestContextCancelAborts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchSignal(ctx, "BTC/USDT", 600)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
