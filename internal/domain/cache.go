package domain

import (
	"context"
	"time"
)

// PriceCache keeps the latest price per venue and symbol.
type PriceCache interface {
	SetPrice(ctx context.Context, venue, symbol string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, venue, symbol string) (float64, time.Time, error)
}

// LockManager provides distributed leases.
type LockManager interface {
	// Hold acquires key and keeps refreshing it until ctx is done. The
	// returned channel is closed if the lease is lost.
	Hold(ctx context.Context, key string, ttl time.Duration) (lost <-chan struct{}, err error)
}

// SignalBus publishes ephemeral notifications and appends to durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}
