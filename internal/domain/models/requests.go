package models

// Requests for chart HTTP endpoints. Defaults come from creasty/defaults tags,
// constraints from validator tags.

type OverlayRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"5m" validate:"oneof=5m 15m"`
}

type MountRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"5m" validate:"oneof=5m 15m"`
	Width  int    `query:"width" json:"width" validate:"gte=0,lte=10000"`
}

type ForwardTestStartRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type TradePlanRequest struct {
	Symbol       string `query:"symbol" json:"symbol" validate:"required"`
	ValidCandles int    `query:"valid_candles" json:"valid_candles" default:"8" validate:"gte=1,lte=500"`
}

// ResizeMessage is sent by WebSocket clients when their container width changes.
type ResizeMessage struct {
	Type  string `json:"type"`
	Width int    `json:"width"`
}
