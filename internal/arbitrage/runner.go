package arbitrage

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/metrics"
)

// lagWarnEvery rate-limits the loop lag warning per runner.
const lagWarnEvery = time.Second

// RunnerConfig configures one symbol's cycle loop.
type RunnerConfig struct {
	Interval time.Duration
	// Monitor samples and reports without evaluating any decision.
	Monitor bool
}

// CycleResult is what one iteration produced.
type CycleResult struct {
	Frame    Frame
	Decision Decision
	Duration time.Duration
}

// Runner drives the tick, fetch, decide cycle for one symbol.
type Runner struct {
	cfg     RunnerConfig
	sampler *Sampler
	engine  *Engine
	events  chan<- domain.CycleEvent
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	lastLagWarn time.Time
}

// NewRunner creates a runner. events receives side-channel notifications
// without blocking; it and m may be nil.
func NewRunner(cfg RunnerConfig, sampler *Sampler, engine *Engine, events chan<- domain.CycleEvent, m *metrics.Metrics, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		sampler: sampler,
		engine:  engine,
		events:  events,
		metrics: m,
		logger:  logger.With(slog.String("component", "runner"), slog.String("symbol", engine.Symbol())),
		now:     time.Now,
	}
}

// Symbol returns the symbol this runner trades.
func (r *Runner) Symbol() string { return r.engine.Symbol() }

// Run executes cycles on a fixed schedule until ctx is cancelled. Each tick
// is due one interval after the previous one; a late iteration delays the
// next tick but never skips it. A ledger invariant violation stops the loop
// and is returned.
func (r *Runner) Run(ctx context.Context) error {
	venueA, venueB := r.sampler.Venues()
	r.logger.Info("runner started",
		slog.String("venue_a", venueA),
		slog.String("venue_b", venueB),
		slog.Duration("interval", r.cfg.Interval),
		slog.Bool("monitor", r.cfg.Monitor),
	)
	defer r.logger.Info("runner stopped")

	timer := time.NewTimer(0)
	defer timer.Stop()
	next := r.now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		res, err := r.RunCycle(ctx)
		if err != nil {
			r.logger.Error("ledger invariant violated, stopping", slog.String("error", err.Error()))
			return err
		}
		if res.Duration > r.cfg.Interval {
			r.lag(res.Duration)
		}

		next = next.Add(r.cfg.Interval)
		timer.Reset(max(next.Sub(r.now()), 0))
	}
}

// RunCycle performs exactly one iteration: parallel fetch, compute, and at
// most one ledger critical section.
func (r *Runner) RunCycle(ctx context.Context) (CycleResult, error) {
	start := r.now()
	frame := r.sampler.Sample(ctx, r.engine.Symbol())
	res := CycleResult{Frame: frame}

	if !frame.OK {
		res.Duration = r.now().Sub(start)
		r.metrics.ObserveCycle(r.Symbol(), res.Duration, true)
		r.logger.Debug("dropped frame", slog.String("reason", frame.Reason))
		r.emit(domain.CycleEvent{Kind: domain.EventDropped, Symbol: r.Symbol(), At: start, A: frame.A, B: frame.B})
		return res, nil
	}

	if !r.cfg.Monitor {
		d, err := r.engine.Evaluate(frame.Sample)
		if err != nil {
			return res, err
		}
		res.Decision = d
	}
	res.Duration = r.now().Sub(start)
	r.metrics.ObserveCycle(r.Symbol(), res.Duration, false)
	r.metrics.SetSpread(r.Symbol(), frame.Sample.SpreadPct)
	r.report(frame, res.Decision)
	return res, nil
}

func (r *Runner) report(frame Frame, d Decision) {
	sample := frame.Sample
	r.emit(domain.CycleEvent{
		Kind:       domain.EventSample,
		Symbol:     sample.Symbol,
		At:         sample.At,
		Sample:     &sample,
		A:          frame.A,
		B:          frame.B,
		Unrealized: d.Unrealized,
	})

	switch d.Action {
	case ActionOpen:
		r.metrics.PositionOpened(sample.Symbol)
		r.logger.Info("position opened",
			slog.String("position_id", d.Position.ID),
			slog.Float64("spread_pct", d.Position.EntrySpreadPct),
			slog.String("direction", d.Position.Direction.String()),
		)
		r.emit(domain.CycleEvent{Kind: domain.EventOpen, Symbol: sample.Symbol, At: sample.At, Sample: &sample, Position: d.Position})
	case ActionClose:
		r.metrics.PositionClosed(sample.Symbol, d.Trade.PnLUSD)
		r.logger.Info("position closed",
			slog.String("position_id", d.Trade.PositionID),
			slog.Float64("profit_pts", d.Trade.ProfitPts),
			slog.Float64("pnl_usd", d.Trade.PnLUSD),
			slog.Duration("held", d.Trade.Held),
		)
		r.emit(domain.CycleEvent{Kind: domain.EventClose, Symbol: sample.Symbol, At: sample.At, Sample: &sample, Position: d.Position, Trade: d.Trade})
	}
}

// emit hands ev to the side channels, dropping it if the queue is full.
func (r *Runner) emit(ev domain.CycleEvent) {
	if r.events == nil {
		return
	}
	select {
	case r.events <- ev:
	default:
		r.metrics.EventDropped()
	}
}

func (r *Runner) lag(d time.Duration) {
	r.metrics.Lag(r.Symbol())
	now := r.now()
	if now.Sub(r.lastLagWarn) < lagWarnEvery {
		return
	}
	r.lastLagWarn = now
	r.logger.Warn("loop lag",
		slog.Duration("iteration", d),
		slog.Duration("interval", r.cfg.Interval),
	)
}
