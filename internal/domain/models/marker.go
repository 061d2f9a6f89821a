package models

import "sort"

type MarkerPosition string

const (
	PositionAboveBar MarkerPosition = "aboveBar"
	PositionBelowBar MarkerPosition = "belowBar"
	PositionInBar    MarkerPosition = "inBar"
)

type MarkerShape string

const (
	ShapeArrowUp   MarkerShape = "arrowUp"
	ShapeArrowDown MarkerShape = "arrowDown"
	ShapeCircle    MarkerShape = "circle"
)

// Overlay palette.
const (
	ColorGreen  = "#22c55e"
	ColorAmber  = "#f59e0b"
	ColorPurple = "#8b5cf6"
	ColorRed    = "#ef4444"
)

// MarkerSource names the data stream a marker was derived from.
type MarkerSource string

const (
	SourceVolume           MarkerSource = "volume"
	SourceTrend            MarkerSource = "trend"
	SourceSignal           MarkerSource = "signal"
	SourceForwardTestEntry MarkerSource = "forward_test_entry"
	SourceForwardTestExit  MarkerSource = "forward_test_exit"
)

// Marker is a labeled annotation drawn at a candle time.
type Marker struct {
	Time     int64          `json:"time"`
	Position MarkerPosition `json:"position"`
	Shape    MarkerShape    `json:"shape"`
	Color    string         `json:"color"`
	Text     string         `json:"text"`
	Source   MarkerSource   `json:"source"`
}

// SortMarkers orders markers by time, keeping the relative order of equal times.
func SortMarkers(markers []Marker) {
	sort.SliceStable(markers, func(i, j int) bool {
		return markers[i].Time < markers[j].Time
	})
}

// MergeMarkers returns a new time-ordered set made of base followed by extra.
func MergeMarkers(base, extra []Marker) []Marker {
	out := make([]Marker, 0, len(base)+len(extra))
	out = append(out, base...)
	out = append(out, extra...)
	SortMarkers(out)
	return out
}
