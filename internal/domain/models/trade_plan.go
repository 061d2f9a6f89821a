package models

const (
	SideLong  = "long"
	SideShort = "short"
	SideNone  = "none"
)

type TradePlan struct {
	Side         string         `json:"side"`
	Entry        float64        `json:"entry"`
	TP           float64        `json:"tp"`
	SL           float64        `json:"sl"`
	RR           float64        `json:"rr"`
	ValidCandles int            `json:"valid_candles"`
	LastClose    float64        `json:"last_close"`
	Signal       SignalResponse `json:"signal"`
}
