package usecase

import (
	"context"
	"fmt"
	"time"

	"MarketOverlay/internal/domain/models"
	drepo "MarketOverlay/internal/domain/repository"
	"MarketOverlay/internal/services/indicators"
	applogger "MarketOverlay/pkg/logger"
)

// OverlayService computes a chart overlay once, on request. Unlike the poll
// loop, its fetches are bound to the caller's context and abort with it.
type OverlayService struct {
	data    drepo.MarketData
	store   *SettingsStore
	forward *ForwardTestService
	limits  FetchLimits
	metrics drepo.Metrics
	log     *applogger.Logger
}

func NewOverlayService(data drepo.MarketData, store *SettingsStore, forward *ForwardTestService, limits FetchLimits, metrics drepo.Metrics, log *applogger.Logger) *OverlayService {
	return &OverlayService{
		data:    data,
		store:   store,
		forward: forward,
		limits:  limits,
		metrics: metrics,
		log:     log,
	}
}

func (s *OverlayService) Overlay(ctx context.Context, symbol, tf string) (*models.ChartOverlay, error) {
	start := time.Now()
	defer func() { s.metrics.RecordLatency("overlay", time.Since(start)) }()

	res, err := FetchAll(ctx, s.data, symbol, s.limits, s.metrics, s.log)
	if err != nil {
		return nil, fmt.Errorf("fetch overlay data: %w", err)
	}
	if res.OHLCV.NormalizedSymbol != "" {
		symbol = res.OHLCV.NormalizedSymbol
	}
	snap := res.Snapshot(symbol, tf, time.Now().UTC())
	settings := s.store.Read(ctx)

	lines := indicators.Overlays(snap.Candles)
	if !settings.Emas {
		for i := range lines {
			lines[i].Points = []models.IndicatorPoint{}
		}
	}

	markers := Fuse(snap, settings, tf)
	if s.forward != nil {
		if ft := s.forward.Markers(ctx); len(ft) > 0 {
			markers = models.MergeMarkers(markers, ft)
		}
	}

	return &models.ChartOverlay{
		Symbol:    snap.Symbol,
		Timeframe: tf,
		Candles:   snap.Candles,
		Lines:     lines,
		Markers:   markers,
		Settings:  settings,
		Signal:    snap.Signal,
		FetchedAt: snap.FetchedAt,
	}, nil
}
