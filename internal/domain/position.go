package domain

import (
	"fmt"
	"time"
)

// Direction is which leg of the hedge is short. It is fixed at entry from
// the sign of the spread.
type Direction int

const (
	// ShortBLongA sells venue B and buys venue A (B quoted above A).
	ShortBLongA Direction = iota + 1
	// ShortALongB sells venue A and buys venue B (A quoted above B).
	ShortALongB
)

// DirectionFor returns the hedge direction for an entry at spreadPct.
func DirectionFor(spreadPct float64) Direction {
	if spreadPct > 0 {
		return ShortBLongA
	}
	return ShortALongB
}

func (d Direction) String() string {
	switch d {
	case ShortBLongA:
		return "ShortB_LongA"
	case ShortALongB:
		return "ShortA_LongB"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// MarshalText implements encoding.TextMarshaler so JSON payloads carry the
// readable name.
func (d Direction) MarshalText() ([]byte, error) {
	switch d {
	case ShortBLongA, ShortALongB:
		return []byte(d.String()), nil
	default:
		return nil, fmt.Errorf("domain: unknown direction %d", int(d))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ShortB_LongA":
		*d = ShortBLongA
	case "ShortA_LongB":
		*d = ShortALongB
	default:
		return fmt.Errorf("domain: unknown direction %q", string(text))
	}
	return nil
}

// Position is an open synthetic hedge for one symbol.
type Position struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	EntrySpreadPct float64   `json:"entry_spread_pct"`
	Direction      Direction `json:"direction"`
	EntryPriceA    float64   `json:"entry_price_a"`
	EntryPriceB    float64   `json:"entry_price_b"`
	SizeUSD        float64   `json:"size_usd"`
	OpenedAt       time.Time `json:"opened_at"`
}

// UnrealizedPnL estimates the USD result of closing at currentSpreadPct.
func (p Position) UnrealizedPnL(currentSpreadPct float64) float64 {
	return Profit(p.EntrySpreadPct, currentSpreadPct, p.SizeUSD)
}

// Profit converts a convergence from entry to exit spread into USD:
// (|entry| - |exit|) / 100 * size.
func Profit(entrySpreadPct, exitSpreadPct, sizeUSD float64) float64 {
	pts := abs(entrySpreadPct) - abs(exitSpreadPct)
	return pts / 100 * sizeUSD
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
