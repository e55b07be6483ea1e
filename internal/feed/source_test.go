package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/metrics"
)

type stubClient struct {
	quote domain.Quote
	err   error
	delay time.Duration
}

func (c stubClient) Quote(ctx context.Context, _ string) (domain.Quote, error) {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return domain.Quote{}, ctx.Err()
		}
	}
	return c.quote, c.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchSelectsPrice(t *testing.T) {
	src := NewSource("b", stubClient{quote: domain.Quote{Bid: 10, Ask: 10.5, Last: 9}}, time.Second, metrics.New(), discard())
	s := src.Fetch(context.Background(), "HYPE")
	if !s.OK || s.Price != 10.25 || s.Venue != "b" {
		t.Fatalf("unexpected sample %+v", s)
	}
}

func TestFetchCollapsesFailures(t *testing.T) {
	cases := []struct {
		name   string
		client stubClient
	}{
		{"error", stubClient{err: errors.New("boom")}},
		{"not found", stubClient{err: fmt.Errorf("x: %w", domain.ErrNotFound)}},
		{"no price", stubClient{quote: domain.Quote{}}},
		{"timeout", stubClient{quote: domain.Quote{Mid: 1}, delay: time.Second}},
	}
	for _, tc := range cases {
		src := NewSource("a", tc.client, 20*time.Millisecond, nil, discard())
		if s := src.Fetch(context.Background(), "HYPE"); s.OK {
			t.Fatalf("%s: expected absent price, got %+v", tc.name, s)
		}
	}
}

func TestFetchTimeoutBoundsLatency(t *testing.T) {
	src := NewSource("a", stubClient{quote: domain.Quote{Mid: 1}, delay: time.Second}, 30*time.Millisecond, nil, discard())
	start := time.Now()
	src.Fetch(context.Background(), "HYPE")
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("fetch not bounded by timeout")
	}
}

func TestReason(t *testing.T) {
	cases := map[string]error{
		"timeout":       fmt.Errorf("get: %w", context.DeadlineExceeded),
		"canceled":      context.Canceled,
		"not_found":     fmt.Errorf("q: %w", domain.ErrNotFound),
		"invalid_price": fmt.Errorf("q: %w", domain.ErrInvalidPrice),
		"error":         errors.New("other"),
	}
	for want, err := range cases {
		if got := Reason(err); got != want {
			t.Fatalf("Reason(%v) = %q, want %q", err, got, want)
		}
	}
}
