package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/arbitrage"
	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// PositionView is an open position with its live estimate.
type PositionView struct {
	domain.Position
	CurrentSpreadPct *float64 `json:"current_spread_pct,omitempty"`
	UnrealizedPnL    *float64 `json:"unrealized_pnl_usd,omitempty"`
}

// StatusService assembles read-only views for the API.
type StatusService struct {
	mode      string
	symbols   []string
	ledger    *arbitrage.Ledger
	publisher *EventPublisher
	trades    domain.TradeStore
	audit     domain.AuditStore
	prices    domain.PriceCache
	venues    []string
	startedAt time.Time
	now       func() time.Time
}

// NewStatusService creates a status view. trades may be nil, in which case
// trade history comes from the current session only.
func NewStatusService(mode string, symbols []string, ledger *arbitrage.Ledger, publisher *EventPublisher, trades domain.TradeStore) *StatusService {
	return &StatusService{
		mode:      mode,
		symbols:   symbols,
		ledger:    ledger,
		publisher: publisher,
		trades:    trades,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// WithAuditStore exposes the audit log through Audit.
func (s *StatusService) WithAuditStore(audit domain.AuditStore) *StatusService {
	s.audit = audit
	return s
}

// WithPriceCache serves Prices from the shared cache for the given venues.
func (s *StatusService) WithPriceCache(prices domain.PriceCache, venues ...string) *StatusService {
	s.prices = prices
	s.venues = venues
	return s
}

// Status returns the bot summary.
func (s *StatusService) Status() domain.BotStatus {
	snap := s.ledger.Snapshot()
	return domain.BotStatus{
		Mode:          s.mode,
		Symbols:       s.symbols,
		UptimeSeconds: int64(s.now().Sub(s.startedAt).Seconds()),
		OpenPositions: len(snap.Open),
		ClosedTrades:  len(snap.ClosedPnL),
		RealizedPnL:   snap.RealizedPnL,
		RecentEvents:  s.publisher.RecentEvents(),
		StartedAt:     s.startedAt,
	}
}

// Positions returns the open positions with unrealized PnL at the last
// observed spread.
func (s *StatusService) Positions() []PositionView {
	snap := s.ledger.Snapshot()
	out := make([]PositionView, 0, len(snap.Open))
	for _, p := range snap.Open {
		v := PositionView{Position: p}
		if cur, ok := s.publisher.LastSpread(p.Symbol); ok {
			u := p.UnrealizedPnL(cur)
			v.CurrentSpreadPct = &cur
			v.UnrealizedPnL = &u
		}
		out = append(out, v)
	}
	return out
}

// Trades lists recent closed trades, from the journal when available.
func (s *StatusService) Trades(ctx context.Context, symbol string, limit int) ([]domain.ClosedTrade, error) {
	if s.trades != nil {
		return s.trades.ListRecent(ctx, symbol, limit)
	}
	var out []domain.ClosedTrade
	for _, t := range s.publisher.RecentTrades() {
		if symbol != "" && t.Symbol != symbol {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Summary reports the session totals from the ledger.
func (s *StatusService) Summary() (trades, wins int, pnl float64) {
	snap := s.ledger.Snapshot()
	return len(snap.ClosedPnL), snap.Wins, snap.RealizedPnL
}

// VenuePrice is the last cached price of a symbol on one venue.
type VenuePrice struct {
	Venue string    `json:"venue"`
	Price float64   `json:"price"`
	At    time.Time `json:"at"`
}

// Prices returns the cached venue prices for symbol, skipping venues with
// nothing fresh. It is empty without a price cache.
func (s *StatusService) Prices(ctx context.Context, symbol string) ([]VenuePrice, error) {
	out := []VenuePrice{}
	if s.prices == nil {
		return out, nil
	}
	for _, v := range s.venues {
		price, at, err := s.prices.GetPrice(ctx, v, symbol)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("service: prices %s: %w", symbol, err)
		}
		out = append(out, VenuePrice{Venue: v, Price: price, At: at})
	}
	return out, nil
}

// PnL reports realized PnL since now-window. The journal covers earlier
// sessions. Without it, a window spanning the whole session reads the
// ledger, and a shorter one sums the retained recent trades closed inside
// it (the last 50).
func (s *StatusService) PnL(ctx context.Context, window time.Duration) (pnl float64, source string, err error) {
	since := s.now().Add(-window)
	if s.trades != nil {
		pnl, err = s.trades.SumPnL(ctx, since)
		if err != nil {
			return 0, "", fmt.Errorf("service: sum pnl: %w", err)
		}
		return pnl, "journal", nil
	}
	if !since.After(s.startedAt) {
		return s.ledger.Snapshot().RealizedPnL, "session", nil
	}
	for _, t := range s.publisher.RecentTrades() {
		if !t.ClosedAt.Before(since) {
			pnl += t.PnLUSD
		}
	}
	return pnl, "session", nil
}

// Audit lists the newest audit entries, or none without an audit store.
func (s *StatusService) Audit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if s.audit == nil {
		return []domain.AuditEntry{}, nil
	}
	return s.audit.List(ctx, limit)
}
