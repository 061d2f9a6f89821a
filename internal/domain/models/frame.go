package models

import "time"

type FrameKind string

const (
	FrameCandles FrameKind = "candles"
	FrameLine    FrameKind = "line"
	FrameMarkers FrameKind = "markers"
	FrameResize  FrameKind = "resize"
	FrameRelease FrameKind = "release"
)

// OverlayFrame is one surface update as it leaves the process, to a
// WebSocket client or an export sink.
type OverlayFrame struct {
	Kind       FrameKind        `json:"kind"`
	InstanceID string           `json:"instance_id"`
	Symbol     string           `json:"symbol"`
	Timeframe  string           `json:"timeframe"`
	Candles    []Candle         `json:"candles,omitempty"`
	LineIndex  int              `json:"line_index,omitempty"`
	Line       *IndicatorSeries `json:"line,omitempty"`
	Markers    []Marker         `json:"markers,omitempty"`
	Width      int              `json:"width,omitempty"`
	At         time.Time        `json:"at"`
}

// ChartOverlay is the full derived state of a chart at one point in time.
type ChartOverlay struct {
	Symbol    string            `json:"symbol"`
	Timeframe string            `json:"timeframe"`
	Candles   []Candle          `json:"candles"`
	Lines     []IndicatorSeries `json:"lines"`
	Markers   []Marker          `json:"markers"`
	Settings  ChartSettings     `json:"settings"`
	Signal    *SignalResponse   `json:"signal,omitempty"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// InstanceInfo describes a mounted chart instance.
type InstanceInfo struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	State     string    `json:"state"`
	Width     int       `json:"width"`
	Cycles    int64     `json:"cycles"`
	MountedAt time.Time `json:"mounted_at"`
}
