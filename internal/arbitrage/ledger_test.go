package arbitrage

import (
	"errors"
	"sync"
	"testing"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

func TestLedgerRejectsDoubleOpen(t *testing.T) {
	l := NewLedger()
	first := domain.Position{ID: "1", Symbol: "HYPE", EntrySpreadPct: 1}
	if err := l.Update(func(b *Book) error { return b.Open(first) }); err != nil {
		t.Fatalf("first open: %v", err)
	}

	err := l.Update(func(b *Book) error {
		return b.Open(domain.Position{ID: "2", Symbol: "HYPE", EntrySpreadPct: 9})
	})
	if !errors.Is(err, domain.ErrAlreadyOpen) || !errors.Is(err, domain.ErrLedgerInvariant) {
		t.Fatalf("second open err = %v, want ErrAlreadyOpen wrapping ErrLedgerInvariant", err)
	}

	snap := l.Snapshot()
	if len(snap.Open) != 1 || snap.Open[0].ID != "1" {
		t.Fatalf("existing position overwritten: %+v", snap.Open)
	}
}

func TestLedgerCloseAbsent(t *testing.T) {
	l := NewLedger()
	err := l.Update(func(b *Book) error {
		_, err := b.Close("HYPE")
		return err
	})
	if !errors.Is(err, domain.ErrNoPosition) || !errors.Is(err, domain.ErrLedgerInvariant) {
		t.Fatalf("close err = %v, want ErrNoPosition", err)
	}
}

func TestLedgerSnapshotIsCopy(t *testing.T) {
	l := NewLedger()
	_ = l.Update(func(b *Book) error {
		b.RecordPnL(2.5)
		b.RecordPnL(-1)
		_ = b.Open(domain.Position{Symbol: "SOL"})
		return b.Open(domain.Position{Symbol: "BTC"})
	})

	snap := l.Snapshot()
	if len(snap.ClosedPnL) != 2 || snap.ClosedPnL[0] != 2.5 || snap.ClosedPnL[1] != -1 {
		t.Fatalf("closed pnl order lost: %v", snap.ClosedPnL)
	}
	if !near(snap.RealizedPnL, 1.5) || snap.Wins != 1 {
		t.Fatalf("summary = %v / %d", snap.RealizedPnL, snap.Wins)
	}
	if snap.Open[0].Symbol != "BTC" || snap.Open[1].Symbol != "SOL" {
		t.Fatalf("open positions not sorted: %+v", snap.Open)
	}

	snap.ClosedPnL[0] = 100
	if l.Snapshot().ClosedPnL[0] != 2.5 {
		t.Fatalf("snapshot aliases ledger storage")
	}
}

func TestLedgerConcurrentUpdates(t *testing.T) {
	l := NewLedger()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Update(func(b *Book) error {
				b.RecordPnL(1)
				return nil
			})
			_ = l.Snapshot()
		}()
	}
	wg.Wait()
	if got := len(l.Snapshot().ClosedPnL); got != 50 {
		t.Fatalf("closed pnl len = %d, want 50", got)
	}
}
