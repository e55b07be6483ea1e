package arbitrage

import (
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

func TestEngineEntryAndExitScenario(t *testing.T) {
	l := NewLedger()
	e := NewEngine(defaultEngineConfig(), l)
	opened := time.Unix(1700000000, 0)
	e.now = func() time.Time { return opened }
	e.newID = func() string { return "pos-1" }

	d, err := e.Evaluate(sample(10.00, 10.25))
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if d.Action != ActionOpen || e.State() != InPosition {
		t.Fatalf("expected open, got action=%v state=%v", d.Action, e.State())
	}
	if d.Position.Direction != domain.ShortBLongA || !near(d.Position.EntrySpreadPct, 2.5) {
		t.Fatalf("unexpected position %+v", d.Position)
	}
	if !openInvariant(e, l) {
		t.Fatalf("invariant broken after open")
	}

	e.now = func() time.Time { return opened.Add(3 * time.Second) }
	d, err = e.Evaluate(sample(10.00, 10.00))
	if err != nil {
		t.Fatalf("exit: %v", err)
	}
	if d.Action != ActionClose || e.State() != Flat {
		t.Fatalf("expected close, got action=%v state=%v", d.Action, e.State())
	}
	if !near(d.Trade.ProfitPts, 2.5) || !near(d.Trade.PnLUSD, 2.50) {
		t.Fatalf("unexpected trade %+v", d.Trade)
	}
	if d.Trade.Held != 3*time.Second || d.Trade.PositionID != "pos-1" {
		t.Fatalf("unexpected held/id %+v", d.Trade)
	}

	snap := l.Snapshot()
	if len(snap.Open) != 0 || len(snap.ClosedPnL) != 1 || !near(snap.ClosedPnL[0], 2.50) {
		t.Fatalf("unexpected ledger %+v", snap)
	}
}

func TestEngineNegativeSpreadDirection(t *testing.T) {
	e := NewEngine(defaultEngineConfig(), NewLedger())
	d, err := e.Evaluate(sample(10.25, 10.00))
	if err != nil || d.Action != ActionOpen {
		t.Fatalf("expected open, got %v %v", d.Action, err)
	}
	if d.Position.Direction != domain.ShortALongB || d.Position.EntrySpreadPct >= 0 {
		t.Fatalf("unexpected position %+v", d.Position)
	}
}

func TestEngineInclusiveBoundaries(t *testing.T) {
	entry := sample(10.00, 10.02)
	exit := sample(10.00, 10.01)

	cfg := defaultEngineConfig()
	cfg.EntryThresholdPct = entry.SpreadPct
	cfg.ExitThresholdPct = exit.SpreadPct
	e := NewEngine(cfg, NewLedger())

	if d, _ := e.Evaluate(entry); d.Action != ActionOpen {
		t.Fatalf("spread equal to entry threshold must open")
	}
	if d, _ := e.Evaluate(sample(10.00, 10.015)); d.Action != ActionNone || d.Unrealized == nil {
		t.Fatalf("spread above exit threshold must hold with an unrealized estimate")
	}
	if d, _ := e.Evaluate(exit); d.Action != ActionClose {
		t.Fatalf("spread equal to exit threshold must close")
	}
}

func TestEngineSubThresholdIsIdempotent(t *testing.T) {
	l := NewLedger()
	e := NewEngine(defaultEngineConfig(), l)
	for i := 0; i < 100; i++ {
		d, err := e.Evaluate(sample(10.00, 10.01))
		if err != nil || d.Action != ActionNone {
			t.Fatalf("iteration %d: action=%v err=%v", i, d.Action, err)
		}
	}
	snap := l.Snapshot()
	if len(snap.Open) != 0 || len(snap.ClosedPnL) != 0 || e.State() != Flat {
		t.Fatalf("sub-threshold evaluations mutated ledger: %+v", snap)
	}
}

func TestEngineHoldsAboveExit(t *testing.T) {
	l := NewLedger()
	e := NewEngine(defaultEngineConfig(), l)
	_, _ = e.Evaluate(sample(10.00, 10.25))

	d, err := e.Evaluate(sample(10.00, 10.10))
	if err != nil || d.Action != ActionNone {
		t.Fatalf("expected hold, got %v %v", d.Action, err)
	}
	if d.Unrealized == nil || !near(*d.Unrealized, 1.5) {
		t.Fatalf("unrealized = %v, want 1.5", d.Unrealized)
	}
	if len(l.Snapshot().Open) != 1 {
		t.Fatalf("position should stay open")
	}
}

func TestEngineFeesRaiseEntryBar(t *testing.T) {
	cfg := defaultEngineConfig()
	cfg.TakerFeePctA = 0.05
	cfg.TakerFeePctB = 0.05
	e := NewEngine(cfg, NewLedger())

	// 0.25% gross minus 0.10% fees is below 0.20%.
	if d, _ := e.Evaluate(sample(10.00, 10.025)); d.Action != ActionNone {
		t.Fatalf("fees should block entry")
	}
	d, _ := e.Evaluate(sample(10.00, 10.04))
	if d.Action != ActionOpen {
		t.Fatalf("0.40%% gross should open")
	}
	d, _ = e.Evaluate(sample(10.00, 10.00))
	if d.Action != ActionClose {
		t.Fatalf("expected close")
	}
	if !near(d.Trade.FeesUSD, 0.20) || !near(d.Trade.NetPnLUSD, d.Trade.PnLUSD-0.20) {
		t.Fatalf("unexpected fees %+v", d.Trade)
	}
}

func TestEngineDetectsLedgerDisagreement(t *testing.T) {
	l := NewLedger()
	e := NewEngine(defaultEngineConfig(), l)
	_ = l.Update(func(b *Book) error { return b.Open(domain.Position{Symbol: "HYPE"}) })

	_, err := e.Evaluate(sample(10.00, 10.01))
	if !errors.Is(err, domain.ErrLedgerInvariant) {
		t.Fatalf("err = %v, want ErrLedgerInvariant", err)
	}
}

func TestEnginesShareLedgerPerSymbol(t *testing.T) {
	l := NewLedger()
	hype := NewEngine(defaultEngineConfig(), l)
	cfg := defaultEngineConfig()
	cfg.Symbol = "BTC"
	btc := NewEngine(cfg, l)

	if d, _ := hype.Evaluate(sample(10.00, 10.25)); d.Action != ActionOpen {
		t.Fatalf("HYPE should open")
	}
	if d, _ := btc.Evaluate(sample(10.00, 10.25)); d.Action != ActionOpen {
		t.Fatalf("BTC should open independently")
	}
	if len(l.Snapshot().Open) != 2 || !openInvariant(hype, l) || !openInvariant(btc, l) {
		t.Fatalf("unexpected ledger %+v", l.Snapshot())
	}
}
