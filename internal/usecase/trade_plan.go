package usecase

import (
	"context"
	"fmt"

	"MarketOverlay/internal/domain/models"
	drepo "MarketOverlay/internal/domain/repository"

	"golang.org/x/sync/errgroup"
)

const (
	tradePlanSignalLimit = 600
	tradePlanOHLCVLimit  = 200
	rrEpsilon            = 1e-8
)

// BuildTradePlan derives a fixed-percentage plan from the signal and the last
// 5m close: buy targets +2% with a 1% stop, sell the mirror image. It returns
// nil for hold or when there is no candle.
func BuildTradePlan(sig models.SignalResponse, candles5m []models.Candle, validCandles int) *models.TradePlan {
	if sig.Action == models.ActionHold || len(candles5m) == 0 {
		return nil
	}
	entry := candles5m[len(candles5m)-1].Close

	side := models.SideNone
	tp, sl := entry, entry
	switch sig.Action {
	case models.ActionBuy:
		side = models.SideLong
		tp = entry * 1.02
		sl = entry * 0.99
	case models.ActionSell:
		side = models.SideShort
		tp = entry * 0.98
		sl = entry * 1.01
	}

	rr := 0.0
	switch side {
	case models.SideLong:
		rr = (tp - entry) / nonZero(entry-sl)
	case models.SideShort:
		rr = (entry - tp) / nonZero(sl-entry)
	}

	return &models.TradePlan{
		Side:         side,
		Entry:        entry,
		TP:           tp,
		SL:           sl,
		RR:           rr,
		ValidCandles: validCandles,
		LastClose:    entry,
		Signal:       sig,
	}
}

func nonZero(x float64) float64 {
	if x == 0 {
		return rrEpsilon
	}
	return x
}

// TradePlanService fetches the inputs of a trade plan.
type TradePlanService struct {
	data drepo.MarketData
}

func NewTradePlanService(data drepo.MarketData) *TradePlanService {
	return &TradePlanService{data: data}
}

// Plan returns nil without error when the signal says hold.
func (s *TradePlanService) Plan(ctx context.Context, symbol string, validCandles int) (*models.TradePlan, error) {
	var (
		sig   *models.SignalResponse
		ohlcv *models.OHLCVResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sig, err = s.data.FetchSignal(gctx, symbol, tradePlanSignalLimit)
		return err
	})
	g.Go(func() (err error) {
		ohlcv, err = s.data.FetchOHLCV(gctx, symbol, tradePlanOHLCVLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch trade plan inputs: %w", err)
	}
	return BuildTradePlan(*sig, ohlcv.Candles(string(drepo.TF5m)), validCandles), nil
}
