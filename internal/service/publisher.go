// Package service holds the side-channel consumers of the decision loop:
// the EventPublisher fanning cycle events out to every backend and the
// StatusService assembling API views.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/notify"
	"github.com/alanyoungcy/spreadbot/internal/render"
)

// Pub/Sub channels and streams written by the publisher.
const (
	ChannelSpread    = "spread"
	ChannelPositions = "positions"
	StreamTrades     = "trades"
)

const (
	recentLimit = 50
	sinkTimeout = 2 * time.Second
)

// SampleSink receives every valid spread sample, e.g. the S3 archiver.
type SampleSink interface {
	Add(ctx context.Context, s domain.SpreadSample) error
}

// Alerter sends operator notifications.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Broadcaster pushes messages to connected dashboard clients.
type Broadcaster interface {
	Broadcast(channel string, data any)
}

// EventHandler renders events locally.
type EventHandler interface {
	Handle(ev domain.CycleEvent)
}

// Sinks lists the optional consumers. Any field may be nil.
type Sinks struct {
	Prices   domain.PriceCache
	Bus      domain.SignalBus
	Trades   domain.TradeStore
	Audit    domain.AuditStore
	Archive  SampleSink
	Notifier Alerter
	Hub      Broadcaster
	Console  EventHandler
}

// EventPublisher drains cycle events off the hot path. A failing sink is
// logged and never affects the decision loop.
type EventPublisher struct {
	sinks  Sinks
	logger *slog.Logger

	mu         sync.RWMutex
	recent     []string
	trades     []domain.ClosedTrade
	lastSpread map[string]float64
}

// NewEventPublisher creates a publisher over sinks.
func NewEventPublisher(sinks Sinks, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{
		sinks:      sinks,
		logger:     logger.With(slog.String("component", "event_publisher")),
		lastSpread: make(map[string]float64),
	}
}

// Run consumes events until ctx is done or events is closed. Events still
// queued at cancellation are drained so OPEN/CLOSE lines are not lost.
func (p *EventPublisher) Run(ctx context.Context, events <-chan domain.CycleEvent) error {
	p.logger.Info("event publisher started")
	defer p.logger.Info("event publisher stopped")

	for {
		select {
		case <-ctx.Done():
			p.drain(events)
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.Handle(ctx, ev)
		}
	}
}

func (p *EventPublisher) drain(events <-chan domain.CycleEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			p.Handle(ctx, ev)
		default:
			return
		}
	}
}

// Handle dispatches one event to every configured sink.
func (p *EventPublisher) Handle(ctx context.Context, ev domain.CycleEvent) {
	if p.sinks.Console != nil {
		p.sinks.Console.Handle(ev)
	}

	switch ev.Kind {
	case domain.EventSample:
		p.onSample(ctx, ev)
	case domain.EventDropped:
		p.cachePrices(ctx, ev)
	case domain.EventOpen:
		p.onOpen(ctx, ev)
	case domain.EventClose:
		p.onClose(ctx, ev)
	}
}

func (p *EventPublisher) onSample(ctx context.Context, ev domain.CycleEvent) {
	s := *ev.Sample
	p.mu.Lock()
	p.lastSpread[s.Symbol] = s.SpreadPct
	p.mu.Unlock()

	p.cachePrices(ctx, ev)
	p.publish(ctx, ChannelSpread, ev)
	if p.sinks.Hub != nil {
		p.sinks.Hub.Broadcast(ChannelSpread, ev)
	}
	if p.sinks.Archive != nil {
		p.run(ctx, "archive sample", func(ctx context.Context) error {
			return p.sinks.Archive.Add(ctx, s)
		})
	}
}

func (p *EventPublisher) onOpen(ctx context.Context, ev domain.CycleEvent) {
	line := render.OpenLine(ev)
	p.remember(ev.At, line)
	p.publish(ctx, ChannelPositions, ev)
	if p.sinks.Hub != nil {
		p.sinks.Hub.Broadcast(ChannelPositions, ev)
	}
	p.audit(ctx, "position.opened", map[string]any{
		"position_id":      ev.Position.ID,
		"symbol":           ev.Position.Symbol,
		"entry_spread_pct": ev.Position.EntrySpreadPct,
		"direction":        ev.Position.Direction.String(),
	})
	p.alert(ctx, notify.EventPositionOpened, "Position opened", line)
}

func (p *EventPublisher) onClose(ctx context.Context, ev domain.CycleEvent) {
	t := *ev.Trade
	line := render.CloseLine(ev)
	p.remember(ev.At, line)

	p.mu.Lock()
	p.trades = appendBounded(p.trades, t, recentLimit)
	p.mu.Unlock()

	p.publish(ctx, ChannelPositions, ev)
	if p.sinks.Hub != nil {
		p.sinks.Hub.Broadcast(ChannelPositions, ev)
	}
	if p.sinks.Bus != nil {
		if payload, err := json.Marshal(t); err == nil {
			p.run(ctx, "stream trade", func(ctx context.Context) error {
				return p.sinks.Bus.StreamAppend(ctx, StreamTrades, payload)
			})
		}
	}
	if p.sinks.Trades != nil {
		p.run(ctx, "journal trade", func(ctx context.Context) error {
			return p.sinks.Trades.Insert(ctx, t)
		})
	}
	p.audit(ctx, "position.closed", map[string]any{
		"position_id": t.PositionID,
		"symbol":      t.Symbol,
		"pnl_usd":     t.PnLUSD,
		"held_ms":     t.Held.Milliseconds(),
	})
	p.alert(ctx, notify.EventPositionClosed, "Position closed", line)
}

func (p *EventPublisher) cachePrices(ctx context.Context, ev domain.CycleEvent) {
	if p.sinks.Prices == nil {
		return
	}
	for _, s := range []domain.PriceSample{ev.A, ev.B} {
		if !s.OK {
			continue
		}
		p.run(ctx, "cache price", func(ctx context.Context) error {
			return p.sinks.Prices.SetPrice(ctx, s.Venue, ev.Symbol, s.Price, ev.At)
		})
	}
}

func (p *EventPublisher) publish(ctx context.Context, channel string, ev domain.CycleEvent) {
	if p.sinks.Bus == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("marshal event failed", slog.String("error", err.Error()))
		return
	}
	p.run(ctx, "publish "+channel, func(ctx context.Context) error {
		return p.sinks.Bus.Publish(ctx, channel, payload)
	})
}

func (p *EventPublisher) audit(ctx context.Context, event string, detail map[string]any) {
	if p.sinks.Audit == nil {
		return
	}
	p.run(ctx, "audit "+event, func(ctx context.Context) error {
		return p.sinks.Audit.Log(ctx, event, detail)
	})
}

func (p *EventPublisher) alert(ctx context.Context, event, title, msg string) {
	if p.sinks.Notifier == nil {
		return
	}
	p.run(ctx, "notify", func(ctx context.Context) error {
		return p.sinks.Notifier.Notify(ctx, event, title, msg)
	})
}

// run calls fn under a bounded deadline and logs a failure.
func (p *EventPublisher) run(ctx context.Context, op string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		p.logger.Warn("sink failed", slog.String("op", op), slog.String("error", err.Error()))
	}
}

func (p *EventPublisher) remember(at time.Time, line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recent = appendBounded(p.recent, "["+at.Format("15:04:05")+"] "+line, recentLimit)
}

// RecentEvents returns the last OPEN/CLOSE lines, oldest first.
func (p *EventPublisher) RecentEvents() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.recent...)
}

// RecentTrades returns the trades closed this session, newest first.
func (p *EventPublisher) RecentTrades() []domain.ClosedTrade {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.ClosedTrade, len(p.trades))
	for i, t := range p.trades {
		out[len(p.trades)-1-i] = t
	}
	return out
}

// LastSpread returns the most recent spread seen for symbol.
func (p *EventPublisher) LastSpread(symbol string) (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.lastSpread[symbol]
	return v, ok
}

func appendBounded[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if len(s) > limit {
		s = s[len(s)-limit:]
	}
	return s
}
