package arbitrage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// Book is the mutable ledger state. It is only reachable inside
// Ledger.Update, so every mutation happens under the ledger lock.
type Book struct {
	open      map[string]domain.Position
	closedPnL []float64
}

// Open inserts p. It fails with domain.ErrAlreadyOpen if the symbol already
// has a position; the existing one is left untouched.
func (b *Book) Open(p domain.Position) error {
	if _, ok := b.open[p.Symbol]; ok {
		return fmt.Errorf("ledger: open %s: %w", p.Symbol, domain.ErrAlreadyOpen)
	}
	b.open[p.Symbol] = p
	return nil
}

// Close removes and returns the position for symbol, or fails with
// domain.ErrNoPosition.
func (b *Book) Close(symbol string) (domain.Position, error) {
	p, ok := b.open[symbol]
	if !ok {
		return domain.Position{}, fmt.Errorf("ledger: close %s: %w", symbol, domain.ErrNoPosition)
	}
	delete(b.open, symbol)
	return p, nil
}

// RecordPnL appends a realized result.
func (b *Book) RecordPnL(v float64) {
	b.closedPnL = append(b.closedPnL, v)
}

// Position returns the open position for symbol, if any.
func (b *Book) Position(symbol string) (domain.Position, bool) {
	p, ok := b.open[symbol]
	return p, ok
}

// Ledger owns the open positions and the realized PnL history shared by all
// runners. Writers go through Update; readers take a Snapshot.
type Ledger struct {
	mu   sync.Mutex
	book Book
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{book: Book{open: make(map[string]domain.Position)}}
}

// Update runs fn with exclusive access to the book. No other Update or
// Snapshot observes the book until fn returns.
func (l *Ledger) Update(fn func(*Book) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(&l.book)
}

// Snapshot is a consistent read-only copy of the ledger.
type Snapshot struct {
	Open        []domain.Position `json:"open_positions"`
	ClosedPnL   []float64         `json:"closed_pnl"`
	RealizedPnL float64           `json:"realized_pnl_usd"`
	Wins        int               `json:"wins"`
}

// Snapshot copies the current state. Open positions are sorted by symbol.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Snapshot{
		Open:      make([]domain.Position, 0, len(l.book.open)),
		ClosedPnL: append([]float64(nil), l.book.closedPnL...),
	}
	for _, p := range l.book.open {
		s.Open = append(s.Open, p)
	}
	sort.Slice(s.Open, func(i, j int) bool { return s.Open[i].Symbol < s.Open[j].Symbol })
	for _, v := range s.ClosedPnL {
		s.RealizedPnL += v
		if v > 0 {
			s.Wins++
		}
	}
	return s
}
