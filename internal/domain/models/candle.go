package models

// Candle is one OHLC(+volume) bar as pushed to the rendering surface.
// Time is unix seconds; a series is strictly increasing by Time.
type Candle struct {
	Time   int64    `json:"time"`
	Open   float64  `json:"open"`
	High   float64  `json:"high"`
	Low    float64  `json:"low"`
	Close  float64  `json:"close"`
	Volume *float64 `json:"volume,omitempty"`
}

// IndicatorPoint is one defined value of an indicator line.
type IndicatorPoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// IndicatorSeries is the renderable line for one (period, source) pair.
// Warm-up entries are never present: the line simply starts later.
type IndicatorSeries struct {
	Period int              `json:"period"`
	Points []IndicatorPoint `json:"points"`
}

// Closes extracts the close prices in order.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// LastTime returns the time of the last candle, or false when there are none.
func LastTime(candles []Candle) (int64, bool) {
	if len(candles) == 0 {
		return 0, false
	}
	return candles[len(candles)-1].Time, true
}
