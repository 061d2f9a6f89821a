package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"MarketOverlay/internal/domain/models"
	"MarketOverlay/internal/repository"
	"MarketOverlay/internal/usecase"
	"MarketOverlay/pkg/cache"
	xlogger "MarketOverlay/pkg/logger"
	"MarketOverlay/pkg/metrics"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMarket struct{}

func (stubMarket) FetchOHLCV(context.Context, string, int) (*models.OHLCVResponse, error) {
	return &models.OHLCVResponse{NormalizedSymbol: "BTC/USDT", Timeframes: map[string][]models.RawCandle{
		"5m": {{T: 300_000, O: 1, H: 2, L: 0.5, C: 1.5}, {T: 600_000, O: 1.5, H: 2, L: 1, C: 1.8}},
	}}, nil
}

func (stubMarket) FetchTrend(context.Context, string, int) (*models.TrendResponse, error) {
	return &models.TrendResponse{}, nil
}

func (stubMarket) FetchVolume(context.Context, string, int) (*models.VolumeResponse, error) {
	return &models.VolumeResponse{}, nil
}

func (stubMarket) FetchSignal(context.Context, string, int) (*models.SignalResponse, error) {
	return &models.SignalResponse{Action: models.ActionBuy, FusionGrade: "B"}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *usecase.ChartHub) {
	t.Helper()
	log := xlogger.Nop()
	store := usecase.NewSettingsStore(repository.NewCacheKV(cache.NewMemoryCache()), metrics.Nop{}, log)
	cfg := usecase.ChartConfig{
		Poller:       usecase.PollerConfig{Interval: time.Hour, Timeout: time.Second, Limits: usecase.FetchLimits{OHLCV: 10, Trend: 10, Volume: 10, Signal: 10}},
		DefaultWidth: 800,
	}
	hub := usecase.NewChartHub(stubMarket{}, store, nil, nil, cfg, metrics.Nop{}, log)

	e := echo.New()
	NewChartWSHandler(log, hub).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		hub.DisposeAll()
		srv.Close()
	})
	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chart?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads frames until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, match func(models.OverlayFrame) bool) models.OverlayFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var f models.OverlayFrame
		require.NoError(t, conn.ReadJSON(&f))
		if match(f) {
			return f
		}
	}
}

func TestChartWSStreamsOverlay(t *testing.T) {
	srv, hub := newTestServer(t)
	conn := dial(t, srv, "symbol=BTC/USDT&tf=5m&width=640")

	resize := readUntil(t, conn, func(f models.OverlayFrame) bool { return f.Kind == models.FrameResize })
	assert.Equal(t, 640, resize.Width)

	markers := readUntil(t, conn, func(f models.OverlayFrame) bool { return f.Kind == models.FrameMarkers })
	require.Len(t, markers.Markers, 1)
	assert.Equal(t, "buy (B)", markers.Markers[0].Text)
	assert.Equal(t, int64(600), markers.Markers[0].Time)
	assert.Equal(t, "5m", markers.Timeframe)
	assert.NotEmpty(t, markers.InstanceID)

	require.Len(t, hub.List(), 1)

	require.NoError(t, conn.WriteJSON(models.ResizeMessage{Type: "resize", Width: 1024}))
	resize = readUntil(t, conn, func(f models.OverlayFrame) bool { return f.Kind == models.FrameResize })
	assert.Equal(t, 1024, resize.Width)
}

func TestChartWSCloseUnmounts(t *testing.T) {
	srv, hub := newTestServer(t)
	conn := dial(t, srv, "symbol=BTC/USDT&tf=15m")

	readUntil(t, conn, func(f models.OverlayFrame) bool { return f.Kind == models.FrameResize })
	require.Len(t, hub.List(), 1)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return len(hub.List()) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestChartWSReleaseClosesConnection(t *testing.T) {
	srv, hub := newTestServer(t)
	conn := dial(t, srv, "symbol=BTC/USDT&tf=5m")
	readUntil(t, conn, func(f models.OverlayFrame) bool { return f.Kind == models.FrameResize })

	hub.DisposeAll()

	readUntil(t, conn, func(f models.OverlayFrame) bool { return f.Kind == models.FrameRelease })
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestChartWSRejectsBadTimeframe(t *testing.T) {
	srv, hub := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ws/chart?symbol=BTC/USDT&tf=1h")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, hub.List())
}

func TestSurfaceCoalescesPendingFrames(t *testing.T) {
	s := newSurface("BTC/USDT", "5m")
	s.bind("chart-7", func() string { return "BTC-USDT" })

	s.SetCandles([]models.Candle{{Time: 1}})
	s.SetMarkers(nil)
	s.SetCandles([]models.Candle{{Time: 1}, {Time: 2}})
	s.SetLine(2, models.IndicatorSeries{Period: 200})

	frames, released := s.drain()
	assert.False(t, released)
	require.Len(t, frames, 3)
	assert.Equal(t, models.FrameCandles, frames[0].Kind)
	assert.Len(t, frames[0].Candles, 2)
	assert.Equal(t, models.FrameMarkers, frames[1].Kind)
	assert.Equal(t, 2, frames[2].LineIndex)
	assert.Equal(t, "chart-7", frames[2].InstanceID)
	assert.Equal(t, "BTC-USDT", frames[2].Symbol)

	frames, _ = s.drain()
	assert.Empty(t, frames)

	s.Release()
	s.SetCandles(nil)
	frames, released = s.drain()
	assert.True(t, released)
	require.Len(t, frames, 1)
	assert.Equal(t, models.FrameRelease, frames[0].Kind)
}
