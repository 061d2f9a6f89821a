package indicators

import (
	"math"

	"MarketOverlay/internal/domain/models"
)

// OverlayPeriods are the EMA periods drawn on every chart, in line-slot order.
var OverlayPeriods = [3]int{20, 50, 200}

// EMA computes an exponential moving average seeded with the simple average
// of the first period values. The result has len(values) entries; entries
// before index period-1 are NaN. period < 1 yields all NaN.
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	for i := range out {
		out[i] = math.NaN()
	}
	if period < 1 || len(values) < period {
		return out
	}

	k := 2 / float64(period+1)
	sum := 0.0
	for i, v := range values {
		switch {
		case i < period-1:
			sum += v
		case i == period-1:
			sum += v
			out[i] = sum / float64(period)
		default:
			out[i] = v*k + out[i-1]*(1-k)
		}
	}
	return out
}

// Series pairs an EMA over candle closes with candle times, dropping the
// undefined warm-up entries.
func Series(candles []models.Candle, period int) models.IndicatorSeries {
	values := EMA(models.Closes(candles), period)
	points := make([]models.IndicatorPoint, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		points = append(points, models.IndicatorPoint{Time: candles[i].Time, Value: v})
	}
	return models.IndicatorSeries{Period: period, Points: points}
}

// Overlays returns the renderable lines for OverlayPeriods.
func Overlays(candles []models.Candle) []models.IndicatorSeries {
	out := make([]models.IndicatorSeries, 0, len(OverlayPeriods))
	for _, p := range OverlayPeriods {
		out = append(out, Series(candles, p))
	}
	return out
}
