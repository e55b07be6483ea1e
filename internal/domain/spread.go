package domain

import (
	"math"
	"time"
)

// Quote is what a venue reports for a symbol. Zero fields are absent.
type Quote struct {
	Bid  float64
	Ask  float64
	Mid  float64
	Last float64
}

// Price applies the selection policy: (bid+ask)/2 when both sides are
// positive, then the venue mid, then the last traded price. ok is false when
// none of them is a finite positive number.
func (q Quote) Price() (price float64, ok bool) {
	if valid(q.Bid) && valid(q.Ask) {
		return (q.Bid + q.Ask) / 2, true
	}
	if valid(q.Mid) {
		return q.Mid, true
	}
	if valid(q.Last) {
		return q.Last, true
	}
	return 0, false
}

func valid(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// PriceSample is one venue's answer for a cycle. OK false means the fetch
// failed; Price is meaningless then.
type PriceSample struct {
	Venue   string
	Price   float64
	OK      bool
	Latency time.Duration
}

// Value returns the sampled price and whether it is present.
func (s PriceSample) Value() (float64, bool) {
	return s.Price, s.OK
}

// SpreadSample is a fully validated pair of prices for one cycle.
type SpreadSample struct {
	Symbol    string    `json:"symbol"`
	PriceA    float64   `json:"price_a"`
	PriceB    float64   `json:"price_b"`
	SpreadPct float64   `json:"spread_pct"`
	At        time.Time `json:"at"`
}

// SpreadPct returns (b - a) / a * 100.
func SpreadPct(a, b float64) float64 {
	return (b - a) / a * 100
}

// NewSpreadSample builds a sample from two prices. It returns
// ErrInvalidPrice unless both are finite and positive, so a zero or negative
// price_a can never reach the division.
func NewSpreadSample(symbol string, a, b float64, at time.Time) (SpreadSample, error) {
	if !valid(a) || !valid(b) {
		return SpreadSample{}, ErrInvalidPrice
	}
	return SpreadSample{
		Symbol:    symbol,
		PriceA:    a,
		PriceB:    b,
		SpreadPct: SpreadPct(a, b),
		At:        at,
	}, nil
}
