package domain

import "time"

// EventKind classifies what a cycle produced.
type EventKind string

const (
	EventSample  EventKind = "sample"
	EventDropped EventKind = "dropped"
	EventOpen    EventKind = "open"
	EventClose   EventKind = "close"
)

// CycleEvent is emitted by the decision loop for side channels (console,
// cache, journal, dashboards). Only the fields relevant to Kind are set.
type CycleEvent struct {
	Kind     EventKind     `json:"kind"`
	Symbol   string        `json:"symbol"`
	At       time.Time     `json:"at"`
	Sample   *SpreadSample `json:"sample,omitempty"`
	A        PriceSample   `json:"-"`
	B        PriceSample   `json:"-"`
	Position *Position     `json:"position,omitempty"`
	Trade    *ClosedTrade  `json:"trade,omitempty"`
	// Unrealized is the open position's PnL estimate at this sample.
	Unrealized *float64 `json:"unrealized_pnl_usd,omitempty"`
}

// BotStatus is a summary of the bot's current operational state.
type BotStatus struct {
	Mode          string    `json:"mode"`
	Symbols       []string  `json:"symbols"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	OpenPositions int       `json:"open_positions"`
	ClosedTrades  int       `json:"closed_trades"`
	RealizedPnL   float64   `json:"realized_pnl_usd"`
	RecentEvents  []string  `json:"recent_events"`
	StartedAt     time.Time `json:"started_at"`
}
