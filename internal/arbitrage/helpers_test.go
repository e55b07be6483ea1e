package arbitrage

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// fakeSource replays prices in order; a NaN entry means an absent price.
// The last value repeats once the script is exhausted.
type fakeSource struct {
	venue string
	delay time.Duration

	mu     sync.Mutex
	prices []float64
	calls  int
}

func newFakeSource(venue string, prices ...float64) *fakeSource {
	return &fakeSource{venue: venue, prices: prices}
}

func (f *fakeSource) Venue() string { return f.venue }

func (f *fakeSource) Fetch(ctx context.Context, _ string) domain.PriceSample {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.PriceSample{Venue: f.venue}
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	if idx >= len(f.prices) {
		idx = len(f.prices) - 1
	}
	f.calls++
	p := f.prices[idx]
	if math.IsNaN(p) {
		return domain.PriceSample{Venue: f.venue}
	}
	return domain.PriceSample{Venue: f.venue, Price: p, OK: true}
}

var absent = math.NaN()

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultEngineConfig() EngineConfig {
	return EngineConfig{
		Symbol:            "HYPE",
		EntryThresholdPct: 0.20,
		ExitThresholdPct:  0.00,
		TradeSizeUSD:      100,
	}
}

func sample(a, b float64) domain.SpreadSample {
	s, err := domain.NewSpreadSample("HYPE", a, b, time.Unix(1700000000, 0))
	if err != nil {
		panic(err)
	}
	return s
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// openInvariant reports whether the ledger agrees with the engine state.
func openInvariant(e *Engine, l *Ledger) bool {
	has := false
	for _, p := range l.Snapshot().Open {
		if p.Symbol == e.Symbol() {
			has = true
		}
	}
	return has == (e.State() == InPosition)
}
