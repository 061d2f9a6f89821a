package models

import "math"

// RawCandle is the backend candle shape; T is unix milliseconds.
type RawCandle struct {
	T   int64   `json:"t"`
	ISO string  `json:"iso"`
	O   float64 `json:"o"`
	H   float64 `json:"h"`
	L   float64 `json:"l"`
	C   float64 `json:"c"`
	V   float64 `json:"v"`
}

// ToCandle converts the backend candle to chart time (seconds).
func (r RawCandle) ToCandle() Candle {
	v := r.V
	return Candle{
		Time:   MillisToSeconds(r.T),
		Open:   r.O,
		High:   r.H,
		Low:    r.L,
		Close:  r.C,
		Volume: &v,
	}
}

// MillisToSeconds floors a millisecond timestamp to seconds.
func MillisToSeconds(ms int64) int64 {
	return int64(math.Floor(float64(ms) / 1000))
}

type OHLCVResponse struct {
	Exchange         string                 `json:"exchange"`
	Symbol           string                 `json:"symbol"`
	NormalizedSymbol string                 `json:"normalized_symbol,omitempty"`
	Timeframes       map[string][]RawCandle `json:"timeframes"`
}

// Candles returns the chart candles for one timeframe, dropping any entry
// that would break strict time ordering.
func (r *OHLCVResponse) Candles(tf string) []Candle {
	if r == nil {
		return nil
	}
	raw := r.Timeframes[tf]
	out := make([]Candle, 0, len(raw))
	for _, rc := range raw {
		c := rc.ToCandle()
		if n := len(out); n > 0 && c.Time <= out[n-1].Time {
			continue
		}
		out = append(out, c)
	}
	return out
}

type TrendSummary struct {
	Trend     string `json:"trend"`
	Trend5m   string `json:"trend_5m"`
	Trend15m  string `json:"trend_15m"`
	LastTs5m  int64  `json:"last_ts_5m"`
	LastTs15m int64  `json:"last_ts_15m"`
}

// BosTime is the placement time (seconds) of break-of-structure markers:
// the 5m timestamp when present, otherwise the 15m one.
func (s TrendSummary) BosTime() int64 {
	ts := s.LastTs5m
	if ts == 0 {
		ts = s.LastTs15m
	}
	return MillisToSeconds(ts)
}

const (
	TrendEmaCrossUp   = "ema_cross_up"
	TrendEmaCrossDown = "ema_cross_down"
	TrendBosUp        = "bos_up"
	TrendBosDown      = "bos_down"
)

type TrendSignal struct {
	Type      string   `json:"type"`
	A         *float64 `json:"a,omitempty"`
	B         *float64 `json:"b,omitempty"`
	Timeframe string   `json:"timeframe"`
}

func (s TrendSignal) IsBos() bool {
	return s.Type == TrendBosUp || s.Type == TrendBosDown
}

type TrendResponse struct {
	Exchange string        `json:"exchange"`
	Symbol   string        `json:"symbol"`
	Summary  TrendSummary  `json:"summary"`
	Signals  []TrendSignal `json:"signals"`
}

const (
	VolumeIgnition     = "ignition"
	VolumeClimax       = "climax"
	VolumeAccumulation = "accumulation"
	VolumeDistribution = "distribution"
)

// VolumeSignal covers both backend shapes: ignition/climax carry rv and dir,
// accumulation/distribution carry count and score.
type VolumeSignal struct {
	Type      string   `json:"type"`
	Timeframe string   `json:"timeframe"`
	Ts        int64    `json:"ts"`
	Rv        *float64 `json:"rv,omitempty"`
	Dir       string   `json:"dir,omitempty"`
	Count     *int     `json:"count,omitempty"`
	Score     *float64 `json:"score,omitempty"`
}

type VolumeResponse struct {
	Exchange string         `json:"exchange"`
	Symbol   string         `json:"symbol"`
	Signals  []VolumeSignal `json:"signals"`
}

const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionHold = "hold"
)

type SignalResponse struct {
	Exchange    string             `json:"exchange"`
	Symbol      string             `json:"symbol"`
	Action      string             `json:"action"`
	Confidence  float64            `json:"confidence"`
	FusionGrade string             `json:"fusion_grade"`
	FusionScore float64            `json:"fusion_score"`
	Direction   string             `json:"direction"`
	Reasoning   string             `json:"reasoning"`
	Weights     map[string]float64 `json:"weights,omitempty"`
}
