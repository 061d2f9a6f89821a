package models

import "time"

// PollSnapshot is the data of the last applied poll cycle. Settings-only
// changes recompute overlays from it without fetching again.
type PollSnapshot struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Candles   []Candle        `json:"candles"`
	Trend     *TrendResponse  `json:"trend"`
	Volume    *VolumeResponse `json:"volume"`
	Signal    *SignalResponse `json:"signal"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// CycleResult is what one 4-way fetch produced before it is applied.
type CycleResult struct {
	OHLCV  *OHLCVResponse
	Trend  *TrendResponse
	Volume *VolumeResponse
	Signal *SignalResponse
}

// Snapshot builds the snapshot for timeframe tf.
func (r CycleResult) Snapshot(symbol, tf string, at time.Time) *PollSnapshot {
	return &PollSnapshot{
		Symbol:    symbol,
		Timeframe: tf,
		Candles:   r.OHLCV.Candles(tf),
		Trend:     r.Trend,
		Volume:    r.Volume,
		Signal:    r.Signal,
		FetchedAt: at,
	}
}
