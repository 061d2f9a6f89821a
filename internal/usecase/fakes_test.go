package usecase

import (
	"context"
	"errors"
	"sync"

	"MarketOverlay/internal/domain/models"
	drepo "MarketOverlay/internal/domain/repository"
)

type memKV struct {
	mu     sync.Mutex
	data   map[string]string
	setErr error
	sets   int
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", drepo.ErrNotFound
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memKV) Close() error { return nil }

func (m *memKV) value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// fakeMarket serves canned responses. When gate is set, FetchOHLCV signals
// entered and then waits for gate to be closed.
type fakeMarket struct {
	mu        sync.Mutex
	symbols   []string
	ohlcv     *models.OHLCVResponse
	trend     *models.TrendResponse
	volume    *models.VolumeResponse
	signal    *models.SignalResponse
	ohlcvErr  error
	signalErr error

	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeMarket) FetchOHLCV(ctx context.Context, symbol string, _ int) (*models.OHLCVResponse, error) {
	f.mu.Lock()
	f.symbols = append(f.symbols, symbol)
	gate, entered := f.gate, f.entered
	f.mu.Unlock()
	if gate != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ohlcvErr != nil {
		return nil, f.ohlcvErr
	}
	return f.ohlcv, nil
}

func (f *fakeMarket) FetchTrend(context.Context, string, int) (*models.TrendResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trend == nil {
		return &models.TrendResponse{}, nil
	}
	return f.trend, nil
}

func (f *fakeMarket) FetchVolume(context.Context, string, int) (*models.VolumeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.volume == nil {
		return &models.VolumeResponse{}, nil
	}
	return f.volume, nil
}

func (f *fakeMarket) FetchSignal(context.Context, string, int) (*models.SignalResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signalErr != nil {
		return nil, f.signalErr
	}
	return f.signal, nil
}

func (f *fakeMarket) fetchedSymbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.symbols...)
}

type fakeForward struct {
	mu         sync.Mutex
	nextID     int64
	active     bool
	trades     []models.ForwardTestTrade
	tradesErr  error
	tradeCalls int
	block      chan struct{}
}

func (f *fakeForward) StartForwardTest(_ context.Context, symbol string) (*models.ForwardTestRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.active = true
	return &models.ForwardTestRun{ID: f.nextID, Symbol: symbol, IsActive: true}, nil
}

func (f *fakeForward) ForwardTestStatus(_ context.Context, runID int64) (*models.ForwardTestStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.ForwardTestStatus{Run: models.ForwardTestRun{ID: runID, IsActive: f.active}}, nil
}

func (f *fakeForward) ForwardTestTrades(ctx context.Context, _ int64) ([]models.ForwardTestTrade, error) {
	f.mu.Lock()
	f.tradeCalls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tradesErr != nil {
		return nil, f.tradesErr
	}
	return f.trades, nil
}

type recordingSurface struct {
	mu       sync.Mutex
	candles  [][]models.Candle
	lines    map[int]models.IndicatorSeries
	markers  [][]models.Marker
	widths   []int
	released int
	calls    int
}

func newRecordingSurface() *recordingSurface {
	return &recordingSurface{lines: map[int]models.IndicatorSeries{}}
}

func (s *recordingSurface) SetCandles(c []models.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.candles = append(s.candles, c)
}

func (s *recordingSurface) SetLine(i int, l models.IndicatorSeries) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lines[i] = l
}

func (s *recordingSurface) SetMarkers(m []models.Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.markers = append(s.markers, m)
}

func (s *recordingSurface) Resize(w int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.widths = append(s.widths, w)
}

func (s *recordingSurface) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released++
}

func (s *recordingSurface) lastMarkers() []models.Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.markers) == 0 {
		return nil
	}
	return s.markers[len(s.markers)-1]
}

func (s *recordingSurface) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var errBoom = errors.New("boom")

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }
func boolp(v bool) *bool     { return &v }

// candlesMs builds backend candles at the given unix-second times.
func candlesMs(times ...int64) []models.RawCandle {
	out := make([]models.RawCandle, len(times))
	for i, t := range times {
		out[i] = models.RawCandle{T: t * 1000, O: 1, H: 2, L: 0.5, C: float64(100 + i), V: 1}
	}
	return out
}
