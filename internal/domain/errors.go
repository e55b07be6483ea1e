package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrLockHeld     = errors.New("lock already held")
	ErrInvalidPrice = errors.New("invalid price")

	// ErrLedgerInvariant marks state-machine corruption. It is never
	// transient and callers should stop trading when they see it.
	ErrLedgerInvariant = errors.New("ledger invariant violation")

	ErrAlreadyOpen = fmt.Errorf("position already open: %w", ErrLedgerInvariant)
	ErrNoPosition  = fmt.Errorf("no open position: %w", ErrLedgerInvariant)
)
