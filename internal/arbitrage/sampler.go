package arbitrage

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/feed"
)

// Frame is one cycle's raw result. Sample is valid only when OK is true;
// otherwise Reason says why the frame was dropped.
type Frame struct {
	A      domain.PriceSample
	B      domain.PriceSample
	Sample domain.SpreadSample
	OK     bool
	Reason string
}

// Dropped frame reasons.
const (
	DropA       = "a_absent"
	DropB       = "b_absent"
	DropBoth    = "both_absent"
	DropInvalid = "invalid_price"
)

// Sampler fetches both venues concurrently and builds a spread sample.
type Sampler struct {
	a, b feed.PriceSource
	now  func() time.Time
}

// NewSampler pairs venue A (the spread base) with venue B.
func NewSampler(a, b feed.PriceSource) *Sampler {
	return &Sampler{a: a, b: b, now: time.Now}
}

// Venues returns the A and B venue identifiers.
func (s *Sampler) Venues() (string, string) { return s.a.Venue(), s.b.Venue() }

// Sample runs both fetches in parallel and returns once both have resolved.
func (s *Sampler) Sample(ctx context.Context, symbol string) Frame {
	var f Frame
	var g errgroup.Group
	g.Go(func() error {
		f.A = s.a.Fetch(ctx, symbol)
		return nil
	})
	g.Go(func() error {
		f.B = s.b.Fetch(ctx, symbol)
		return nil
	})
	_ = g.Wait()

	pa, okA := f.A.Value()
	pb, okB := f.B.Value()
	switch {
	case !okA && !okB:
		f.Reason = DropBoth
		return f
	case !okA:
		f.Reason = DropA
		return f
	case !okB:
		f.Reason = DropB
		return f
	}

	sample, err := domain.NewSpreadSample(symbol, pa, pb, s.now())
	if err != nil {
		f.Reason = DropInvalid
		return f
	}
	f.Sample = sample
	f.OK = true
	return f
}
