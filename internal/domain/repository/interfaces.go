package repository

import (
	"context"
	"errors"
	"time"

	"MarketOverlay/internal/domain/models"
)

// ErrNotFound is returned by KVStore.Get for absent keys.
var ErrNotFound = errors.New("key not found")

// MarketData is the backend analytics service as consumed by the poll cycle.
type MarketData interface {
	FetchOHLCV(ctx context.Context, symbol string, limit int) (*models.OHLCVResponse, error)
	FetchTrend(ctx context.Context, symbol string, limit int) (*models.TrendResponse, error)
	FetchVolume(ctx context.Context, symbol string, limit int) (*models.VolumeResponse, error)
	FetchSignal(ctx context.Context, symbol string, limit int) (*models.SignalResponse, error)
}

// ForwardTests is the externally tracked forward-test service.
type ForwardTests interface {
	StartForwardTest(ctx context.Context, symbol string) (*models.ForwardTestRun, error)
	ForwardTestStatus(ctx context.Context, runID int64) (*models.ForwardTestStatus, error)
	ForwardTestTrades(ctx context.Context, runID int64) ([]models.ForwardTestTrade, error)
}

// KVStore holds small persisted local state under well-known keys.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Surface is the rendering capability a chart instance pushes to.
// SetMarkers replaces the whole marker collection.
type Surface interface {
	SetCandles(candles []models.Candle)
	SetLine(index int, series models.IndicatorSeries)
	SetMarkers(markers []models.Marker)
	Resize(width int)
	Release()
}

// FrameSink receives overlay frames for export.
type FrameSink interface {
	Publish(ctx context.Context, frames []*models.OverlayFrame) error
	Close() error
}

type Metrics interface {
	RecordCycle(result string)
	RecordFetchError(source string)
	RecordRebind()
	RecordMarkers(timeframe string, n int)
	RecordForwardTest(outcome string)
	RecordSettingsUpdate(persisted bool)
	SetActiveInstances(n int)
	RecordLatency(op string, d time.Duration)
	RecordExport(sink string, ok bool, n int)
}
