// Package feed adapts venue clients into price sources that never fail:
// every error becomes an absent sample, logged and counted by reason.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/metrics"
)

// QuoteClient is a venue client that can report a quote for a symbol.
type QuoteClient interface {
	Quote(ctx context.Context, symbol string) (domain.Quote, error)
}

// PriceSource yields a best-effort price for a symbol. An absent price is
// reported with OK false; there is no error path.
type PriceSource interface {
	Venue() string
	Fetch(ctx context.Context, symbol string) domain.PriceSample
}

// Source is the PriceSource for one venue.
type Source struct {
	venue   string
	client  QuoteClient
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewSource wraps client. Every Fetch is bounded by timeout. m may be nil.
func NewSource(venue string, client QuoteClient, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Source {
	return &Source{
		venue:   venue,
		client:  client,
		timeout: timeout,
		metrics: m,
		logger:  logger.With(slog.String("component", "feed"), slog.String("venue", venue)),
		now:     time.Now,
	}
}

// Venue returns the venue identifier.
func (s *Source) Venue() string { return s.venue }

// Fetch queries the venue once and applies the price selection policy.
func (s *Source) Fetch(ctx context.Context, symbol string) domain.PriceSample {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.now()
	q, err := s.client.Quote(ctx, symbol)
	latency := s.now().Sub(start)
	sample := domain.PriceSample{Venue: s.venue, Latency: latency}

	if err != nil {
		s.fail(symbol, latency, Reason(err), err)
		return sample
	}
	price, ok := q.Price()
	if !ok {
		s.fail(symbol, latency, "no_price", nil)
		return sample
	}

	s.metrics.ObserveFetch(s.venue, latency, "")
	s.logger.Debug("price fetched",
		slog.String("symbol", symbol),
		slog.Float64("price", price),
		slog.Duration("latency", latency),
	)
	sample.Price = price
	sample.OK = true
	return sample
}

func (s *Source) fail(symbol string, latency time.Duration, reason string, err error) {
	s.metrics.ObserveFetch(s.venue, latency, reason)
	attrs := []any{
		slog.String("symbol", symbol),
		slog.String("reason", reason),
		slog.Duration("latency", latency),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.Debug("price fetch failed", attrs...)
}

// Reason classifies a fetch error for logs and metric labels.
func Reason(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidPrice):
		return "invalid_price"
	default:
		return "error"
	}
}
