package domain

import (
	"context"
	"time"
)

// TradeStore journals closed round trips. It is write-mostly; nothing reads
// it back into the ledger on start.
type TradeStore interface {
	Insert(ctx context.Context, t ClosedTrade) error
	ListRecent(ctx context.Context, symbol string, limit int) ([]ClosedTrade, error)
	SumPnL(ctx context.Context, since time.Time) (float64, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, limit int) ([]AuditEntry, error)
}
