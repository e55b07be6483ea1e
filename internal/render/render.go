// Package render prints the human-readable console output: one status line
// per cycle, overwritten in place, and a separate line per OPEN/CLOSE.
package render

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

const (
	ansiReset   = "\x1b[0m"
	ansiBold    = "\x1b[1m"
	ansiGreen   = "\x1b[32m"
	ansiMagenta = "\x1b[35m"
	ansiRed     = "\x1b[31m"

	timeLayout = "15:04:05.000"
)

// Console writes status and event lines to w. Safe for concurrent use.
type Console struct {
	mu       sync.Mutex
	w        io.Writer
	color    bool
	entryPct float64
	labelA   string
	labelB   string
	inline   bool
}

// NewConsole creates a console. Spreads whose magnitude exceeds entryPct
// are highlighted. labelA and labelB name the venues on the status line.
func NewConsole(w io.Writer, color bool, entryPct float64, labelA, labelB string) *Console {
	return &Console{w: w, color: color, entryPct: entryPct, labelA: labelA, labelB: labelB}
}

// Handle renders ev according to its kind.
func (c *Console) Handle(ev domain.CycleEvent) {
	switch ev.Kind {
	case domain.EventSample, domain.EventDropped:
		c.status(c.StatusLine(ev))
	case domain.EventOpen:
		c.line(c.paint(ansiGreen, OpenLine(ev)))
	case domain.EventClose:
		c.line(c.paint(ansiMagenta, CloseLine(ev)))
	}
}

// StatusLine formats the per-cycle line without a trailing newline.
func (c *Console) StatusLine(ev domain.CycleEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | %s: %s | %s: %s | Spread: ",
		ev.At.Format(timeLayout), ev.Symbol,
		c.labelA, price(ev.A), c.labelB, price(ev.B))

	if ev.Sample == nil {
		b.WriteString(c.paint(ansiRed, "-- (dropped)"))
		return b.String()
	}
	pct := ev.Sample.SpreadPct
	if math.Abs(pct) > c.entryPct {
		b.WriteString(c.paint(ansiGreen, fmt.Sprintf("%.3f%% (!!!)", pct)))
	} else {
		fmt.Fprintf(&b, "%.3f%%", pct)
	}
	if ev.Unrealized != nil {
		fmt.Fprintf(&b, " | uPnL: %s", usd(*ev.Unrealized))
	}
	return b.String()
}

// OpenLine formats a position entry event.
func OpenLine(ev domain.CycleEvent) string {
	p := ev.Position
	if p == nil {
		return "OPEN " + ev.Symbol
	}
	return fmt.Sprintf("OPEN %s | Spread: %.2f%% | Dir: %s", p.Symbol, p.EntrySpreadPct, p.Direction)
}

// CloseLine formats a position exit event.
func CloseLine(ev domain.CycleEvent) string {
	t := ev.Trade
	if t == nil {
		return "CLOSE " + ev.Symbol
	}
	line := fmt.Sprintf("CLOSE %s | PnL: %s | Held: %.2fs", t.Symbol, usd(t.PnLUSD), t.Held.Seconds())
	if t.FeesUSD > 0 {
		line += fmt.Sprintf(" | Net: %s", usd(t.NetPnLUSD))
	}
	return line
}

// Summary prints the end-of-session totals.
func (c *Console) Summary(trades, wins int, pnl float64) {
	c.line(c.paint(ansiBold, fmt.Sprintf("SESSION | Trades: %d | Wins: %d | PnL: %s", trades, wins, usd(pnl))))
}

func (c *Console) status(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "\r%s", s)
	c.inline = true
}

// line prints s on its own line, first terminating any in-place status line.
func (c *Console) line(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inline {
		fmt.Fprintln(c.w)
		c.inline = false
	}
	fmt.Fprintln(c.w, s)
}

func (c *Console) paint(code, s string) string {
	if !c.color {
		return s
	}
	return code + s + ansiReset
}

func price(s domain.PriceSample) string {
	if !s.OK {
		return "--"
	}
	return fmt.Sprintf("$%.4f", s.Price)
}

func usd(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("+$%.2f", v)
}
