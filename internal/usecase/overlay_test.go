package usecase

import (
	"context"
	"testing"

	"MarketOverlay/internal/domain/models"
	applogger "MarketOverlay/pkg/logger"
	"MarketOverlay/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlayOneShot(t *testing.T) {
	data := marketWithCandles()
	data.ohlcv.NormalizedSymbol = "BTC-USD"
	api := &fakeForward{trades: []models.ForwardTestTrade{{Direction: "short", CandleTime: "450"}}}
	store := newTestStore(newMemKV())
	svc := NewOverlayService(data, store, newTestForward(t, api, true), testLimits, metrics.Nop{}, applogger.Nop())

	ov, err := svc.Overlay(context.Background(), "BTC/USDT", "5m")
	require.NoError(t, err)

	assert.Equal(t, "BTC-USD", ov.Symbol)
	assert.Len(t, ov.Candles, 3)
	assert.Len(t, ov.Lines, 3)
	require.Len(t, ov.Markers, 4)
	assert.Equal(t, "FT short", ov.Markers[1].Text)
	assert.Equal(t, int64(450), ov.Markers[1].Time)
	assert.Equal(t, models.DefaultChartSettings(), ov.Settings)
}

func TestOverlayHonoursSettings(t *testing.T) {
	data := marketWithCandles()
	store := newTestStore(newMemKV())
	store.Update(context.Background(), models.ChartSettingsPatch{
		Ignition: boolp(false), Bos: boolp(false), Signals: boolp(false), Emas: boolp(false),
	})
	svc := NewOverlayService(data, store, nil, testLimits, metrics.Nop{}, applogger.Nop())

	ov, err := svc.Overlay(context.Background(), "BTC/USDT", "5m")
	require.NoError(t, err)
	assert.Empty(t, ov.Markers)
	for _, l := range ov.Lines {
		assert.Empty(t, l.Points)
	}
}

func TestOverlayAbortsWithCaller(t *testing.T) {
	data := marketWithCandles()
	data.gate = make(chan struct{})
	svc := NewOverlayService(data, newTestStore(newMemKV()), nil, testLimits, metrics.Nop{}, applogger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Overlay(ctx, "BTC/USDT", "5m")
	assert.ErrorIs(t, err, context.Canceled)
}
