package domain

import "time"

// ClosedTrade is the journal record of one open/close round trip.
type ClosedTrade struct {
	PositionID     string        `json:"position_id"`
	Symbol         string        `json:"symbol"`
	Direction      Direction     `json:"direction"`
	EntrySpreadPct float64       `json:"entry_spread_pct"`
	ExitSpreadPct  float64       `json:"exit_spread_pct"`
	ProfitPts      float64       `json:"profit_pts"`
	PnLUSD         float64       `json:"pnl_usd"`
	FeesUSD        float64       `json:"fees_usd"`
	NetPnLUSD      float64       `json:"net_pnl_usd"`
	SizeUSD        float64       `json:"size_usd"`
	OpenedAt       time.Time     `json:"opened_at"`
	ClosedAt       time.Time     `json:"closed_at"`
	Held           time.Duration `json:"held_ns"`
}
