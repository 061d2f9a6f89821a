package usecase

import (
	"context"
	"testing"
	"time"

	"MarketOverlay/internal/domain/models"
	applogger "MarketOverlay/pkg/logger"
	"MarketOverlay/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLimits = FetchLimits{OHLCV: 500, Trend: 500, Volume: 500, Signal: 600}

func newTestInstance(t *testing.T, data *fakeMarket, fwd *ForwardTestService) (*ChartInstance, *recordingSurface, *SettingsStore) {
	t.Helper()
	store := newTestStore(newMemKV())
	surf := newRecordingSurface()
	cfg := ChartConfig{Poller: PollerConfig{Interval: time.Hour, Timeout: 2 * time.Second, Limits: testLimits}}
	inst := newChartInstance("chart-test", "BTC/USDT", "5m", 0, surf, data, store, fwd, cfg, metrics.Nop{}, applogger.Nop())
	require.True(t, inst.activate(context.Background()))
	t.Cleanup(inst.Dispose)
	return inst, surf, store
}

func marketWithCandles() *fakeMarket {
	return &fakeMarket{
		ohlcv: &models.OHLCVResponse{Timeframes: map[string][]models.RawCandle{
			"5m":  candlesMs(300, 600, 900),
			"15m": candlesMs(900),
		}},
		trend: &models.TrendResponse{
			Summary: models.TrendSummary{LastTs5m: 600_000},
			Signals: []models.TrendSignal{{Type: models.TrendBosUp, Timeframe: "5m"}},
		},
		volume: &models.VolumeResponse{Signals: []models.VolumeSignal{
			{Type: models.VolumeIgnition, Timeframe: "5m", Ts: 300_000, Dir: "up"},
		}},
		signal: &models.SignalResponse{Action: models.ActionBuy, FusionGrade: "A+"},
	}
}

func TestFetchAllSignalFailureDegrades(t *testing.T) {
	data := marketWithCandles()
	data.signalErr = errBoom

	res, err := FetchAll(context.Background(), data, "BTC/USDT", testLimits, metrics.Nop{}, applogger.Nop())
	require.NoError(t, err)
	assert.Nil(t, res.Signal)
	assert.NotNil(t, res.OHLCV)
	assert.NotNil(t, res.Trend)
	assert.NotNil(t, res.Volume)
}

func TestFetchAllCandleFailureFailsCycle(t *testing.T) {
	data := marketWithCandles()
	data.ohlcvErr = errBoom

	_, err := FetchAll(context.Background(), data, "BTC/USDT", testLimits, metrics.Nop{}, applogger.Nop())
	assert.ErrorIs(t, err, errBoom)
}

func TestCycleAppliesSnapshot(t *testing.T) {
	inst, surf, _ := newTestInstance(t, marketWithCandles(), nil)

	inst.poller.RunCycle()

	snap := inst.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, "BTC/USDT", snap.Symbol)
	require.Len(t, snap.Candles, 3)
	assert.Equal(t, int64(900), snap.Candles[2].Time)

	require.Len(t, surf.candles, 1)
	assert.Len(t, surf.lines, 3)
	markers := surf.lastMarkers()
	require.Len(t, markers, 3)
	assert.Equal(t, "ignition", markers[0].Text)
	assert.Equal(t, "bos_up", markers[1].Text)
	assert.Equal(t, "buy (A+)", markers[2].Text)
	assert.Equal(t, int64(1), inst.Info().Cycles)
}

func TestCycleSignalFailureStillApplies(t *testing.T) {
	data := marketWithCandles()
	data.signalErr = errBoom
	inst, surf, _ := newTestInstance(t, data, nil)

	inst.poller.RunCycle()

	snap := inst.Snapshot()
	require.NotNil(t, snap)
	assert.Nil(t, snap.Signal)
	assert.Len(t, surf.candles, 1)
	assert.Len(t, surf.lastMarkers(), 2)
}

func TestCycleFailureIsSwallowed(t *testing.T) {
	data := marketWithCandles()
	data.ohlcvErr = errBoom
	inst, surf, _ := newTestInstance(t, data, nil)

	inst.poller.RunCycle()

	assert.Nil(t, inst.Snapshot())
	assert.Zero(t, surf.callCount())

	// next tick retries
	data.mu.Lock()
	data.ohlcvErr = nil
	data.mu.Unlock()
	inst.poller.RunCycle()
	assert.NotNil(t, inst.Snapshot())
}

func TestRebindUsesCanonicalSymbolNextCycle(t *testing.T) {
	data := marketWithCandles()
	data.ohlcv.NormalizedSymbol = "BTC-USD"
	inst, surf, _ := newTestInstance(t, data, nil)

	inst.poller.RunCycle()
	assert.Equal(t, "BTC/USDT", inst.Snapshot().Symbol)
	assert.Equal(t, "BTC-USD", inst.Symbol())

	inst.poller.RunCycle()
	assert.Equal(t, []string{"BTC/USDT", "BTC-USD"}, data.fetchedSymbols())
	assert.Equal(t, "BTC-USD", inst.Snapshot().Symbol)

	// same instance, never torn down
	assert.Equal(t, StateActive, inst.State())
	assert.Zero(t, surf.released)
	assert.Len(t, surf.candles, 2)
}

func TestRebindIgnoresEmptyAndUnchanged(t *testing.T) {
	inst, _, _ := newTestInstance(t, marketWithCandles(), nil)
	assert.False(t, inst.poller.Rebind(""))
	assert.False(t, inst.poller.Rebind("BTC/USDT"))
	assert.True(t, inst.poller.Rebind("BTC-USD"))
	assert.False(t, inst.poller.Rebind("BTC-USD"))

	inst.Dispose()
	assert.False(t, inst.poller.Rebind("ETH-USD"))
	assert.Equal(t, "BTC-USD", inst.Symbol())
}

func TestCycleResolvingAfterDisposeIsDiscarded(t *testing.T) {
	data := marketWithCandles()
	data.gate = make(chan struct{})
	data.entered = make(chan struct{}, 1)
	inst, surf, _ := newTestInstance(t, data, nil)

	done := make(chan struct{})
	go func() {
		inst.poller.RunCycle()
		close(done)
	}()
	<-data.entered

	inst.Dispose()
	close(data.gate)
	<-done

	assert.Nil(t, inst.Snapshot())
	assert.Zero(t, surf.callCount())
	assert.Equal(t, 1, surf.released)
}

func TestOverlappingCycleIsSkipped(t *testing.T) {
	data := marketWithCandles()
	data.gate = make(chan struct{})
	data.entered = make(chan struct{}, 1)
	inst, _, _ := newTestInstance(t, data, nil)

	done := make(chan struct{})
	go func() {
		inst.poller.RunCycle()
		close(done)
	}()
	<-data.entered

	inst.poller.RunCycle()
	assert.Len(t, data.fetchedSymbols(), 1)

	close(data.gate)
	<-done
	assert.NotNil(t, inst.Snapshot())
}
