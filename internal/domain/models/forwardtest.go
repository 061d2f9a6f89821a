package models

const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

type ForwardTestRun struct {
	ID        int64   `json:"id"`
	Symbol    string  `json:"symbol"`
	StartTime string  `json:"start_time"`
	EndTime   *string `json:"end_time"`
	IsActive  bool    `json:"is_active"`
	Summary   *string `json:"summary"`
}

type ForwardTestTrade struct {
	ID         int64    `json:"id"`
	Direction  string   `json:"direction"`
	EntryPrice float64  `json:"entry_price"`
	StopLoss   float64  `json:"stop_loss"`
	TakeProfit float64  `json:"take_profit"`
	ExitPrice  *float64 `json:"exit_price,omitempty"`
	ExitReason *string  `json:"exit_reason,omitempty"`
	RMultiple  *float64 `json:"r_multiple,omitempty"`
	ProfitLoss *float64 `json:"profit_loss,omitempty"`
	Drawdown   *float64 `json:"drawdown,omitempty"`
	CandleTime string   `json:"candle_time"`
}

type ForwardTestStatus struct {
	Run          ForwardTestRun     `json:"run"`
	OpenTrades   []ForwardTestTrade `json:"open_trades"`
	RecentTrades []ForwardTestTrade `json:"recent_trades"`
}

type ForwardTestTradesResponse struct {
	Trades []ForwardTestTrade `json:"trades"`
}
