package arbitrage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// State is the per-symbol position state.
type State int

const (
	Flat State = iota
	InPosition
)

func (s State) String() string {
	if s == InPosition {
		return "in_position"
	}
	return "flat"
}

// Action is what an evaluation did to the ledger.
type Action int

const (
	ActionNone Action = iota
	ActionOpen
	ActionClose
)

// Decision is the outcome of evaluating one sample.
type Decision struct {
	Action   Action
	Position *domain.Position
	Trade    *domain.ClosedTrade
	// Unrealized is set while a position stays open.
	Unrealized *float64
}

// EngineConfig holds the thresholds and sizing. Percentages are in percent
// units, so 0.20 is a 0.20% spread.
type EngineConfig struct {
	Symbol            string
	EntryThresholdPct float64
	ExitThresholdPct  float64
	TradeSizeUSD      float64
	TakerFeePctA      float64
	TakerFeePctB      float64
}

// Engine is the Flat/InPosition state machine for one symbol. It is driven
// by a single runner and is not safe for concurrent use.
type Engine struct {
	cfg    EngineConfig
	ledger *Ledger
	state  State
	now    func() time.Time
	newID  func() string
}

// NewEngine creates an engine in state Flat.
func NewEngine(cfg EngineConfig, ledger *Ledger) *Engine {
	return &Engine{
		cfg:    cfg,
		ledger: ledger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// State returns the current state.
func (e *Engine) State() State { return e.state }

// Symbol returns the symbol this engine trades.
func (e *Engine) Symbol() string { return e.cfg.Symbol }

func (e *Engine) feePct() float64 { return e.cfg.TakerFeePctA + e.cfg.TakerFeePctB }

// Evaluate applies one validated sample. The whole read, decide and mutate
// sequence runs in a single ledger critical section. Any returned error
// wraps domain.ErrLedgerInvariant and means the state machine and ledger
// disagree.
func (e *Engine) Evaluate(s domain.SpreadSample) (Decision, error) {
	var d Decision
	err := e.ledger.Update(func(b *Book) error {
		pos, has := b.Position(e.cfg.Symbol)
		if has != (e.state == InPosition) {
			return fmt.Errorf("engine %s: state %s but ledger has position=%t: %w",
				e.cfg.Symbol, e.state, has, domain.ErrLedgerInvariant)
		}

		abs := absPct(s.SpreadPct)
		switch e.state {
		case Flat:
			if abs-e.feePct() < e.cfg.EntryThresholdPct {
				return nil
			}
			p := domain.Position{
				ID:             e.newID(),
				Symbol:         e.cfg.Symbol,
				EntrySpreadPct: s.SpreadPct,
				Direction:      domain.DirectionFor(s.SpreadPct),
				EntryPriceA:    s.PriceA,
				EntryPriceB:    s.PriceB,
				SizeUSD:        e.cfg.TradeSizeUSD,
				OpenedAt:       e.now(),
			}
			if err := b.Open(p); err != nil {
				return err
			}
			e.state = InPosition
			d = Decision{Action: ActionOpen, Position: &p}

		case InPosition:
			if abs > e.cfg.ExitThresholdPct {
				u := pos.UnrealizedPnL(s.SpreadPct)
				d.Unrealized = &u
				return nil
			}
			closed, err := b.Close(e.cfg.Symbol)
			if err != nil {
				return err
			}
			t := e.settle(closed, s)
			b.RecordPnL(t.PnLUSD)
			e.state = Flat
			d = Decision{Action: ActionClose, Position: &closed, Trade: &t}
		}
		return nil
	})
	return d, err
}

func (e *Engine) settle(p domain.Position, s domain.SpreadSample) domain.ClosedTrade {
	closedAt := e.now()
	pnl := domain.Profit(p.EntrySpreadPct, s.SpreadPct, p.SizeUSD)
	fees := e.feePct() / 100 * p.SizeUSD * 2
	return domain.ClosedTrade{
		PositionID:     p.ID,
		Symbol:         p.Symbol,
		Direction:      p.Direction,
		EntrySpreadPct: p.EntrySpreadPct,
		ExitSpreadPct:  s.SpreadPct,
		ProfitPts:      absPct(p.EntrySpreadPct) - absPct(s.SpreadPct),
		PnLUSD:         pnl,
		FeesUSD:        fees,
		NetPnLUSD:      pnl - fees,
		SizeUSD:        p.SizeUSD,
		OpenedAt:       p.OpenedAt,
		ClosedAt:       closedAt,
		Held:           closedAt.Sub(p.OpenedAt),
	}
}

func absPct(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
