// Package store defines how ledger snapshots are persisted and provides the
// JSON-file and SQLite backends plus a Parquet trade archive.
package store

import (
	"context"
	"time"

	"tradrx/internal/domain"
)

// SnapshotStore loads and saves the complete ledger state as one unit.
type SnapshotStore interface {
	// Load returns the persisted state, or an empty state when nothing has
	// been saved yet. Unreadable or invalid data yields an error wrapping
	// domain.ErrCorruptStorage.
	Load(ctx context.Context) (*domain.State, error)

	// Save replaces the persisted state with s. A concurrent reader sees
	// either the previous snapshot or the new one, never a mix.
	Save(ctx context.Context, s *domain.State) error

	// Close releases any resources held by the store.
	Close() error
}

// TradeArchive persists historical trades for offline analysis.
type TradeArchive interface {
	// WriteTrades merges trades into the archive, keyed by trade id.
	WriteTrades(ctx context.Context, trades []domain.Trade) error

	// ReadTrades returns archived trades placed within [start, end].
	ReadTrades(ctx context.Context, start, end time.Time) ([]domain.Trade, error)
}
