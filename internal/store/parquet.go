package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"tradrx/internal/domain"
)

// Compile-time interface check.
var _ TradeArchive = (*ParquetStore)(nil)

// ParquetStore archives trades as Parquet files, one per UTC placement date.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// TradeRecord is the Parquet schema for archived trades.
type TradeRecord struct {
	ID        int64   `parquet:"id"`
	Symbol    string  `parquet:"symbol"`
	Action    string  `parquet:"action"`
	Quantity  float64 `parquet:"quantity"`
	Price     float64 `parquet:"price"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
}

// RecordFromTrade converts a trade to its archive record.
func RecordFromTrade(t domain.Trade) TradeRecord {
	return TradeRecord{
		ID:        t.ID,
		Symbol:    t.Symbol,
		Action:    string(t.Action),
		Quantity:  t.Quantity,
		Price:     t.Price,
		Timestamp: t.Timestamp.UnixMilli(),
	}
}

// Trade converts the record back to a domain trade. Timestamps carry
// millisecond precision.
func (r TradeRecord) Trade() domain.Trade {
	return domain.Trade{
		ID:        r.ID,
		Symbol:    r.Symbol,
		Action:    domain.Action(r.Action),
		Quantity:  r.Quantity,
		Price:     r.Price,
		Timestamp: time.UnixMilli(r.Timestamp).UTC(),
	}
}

// WriteTrades merges trades into the per-date archive files at:
//
//	<DataDir>/trades/<YYYY-MM-DD>.parquet
func (s *ParquetStore) WriteTrades(_ context.Context, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	groups := make(map[string][]TradeRecord)
	for _, t := range trades {
		date := t.Timestamp.UTC().Format("2006-01-02")
		groups[date] = append(groups[date], RecordFromTrade(t))
	}

	for date, records := range groups {
		path := s.tradePath(date)

		existing, err := readParquetFile[TradeRecord](path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading archived trades for %s: %w", date, err)
		}
		merged := mergeTradeRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing trades for %s: %w", date, err)
		}
	}
	return nil
}

// ReadTrades returns archived trades placed within [start, end], ordered by id.
func (s *ParquetStore) ReadTrades(_ context.Context, start, end time.Time) ([]domain.Trade, error) {
	start, end = start.UTC(), end.UTC()

	var trades []domain.Trade
	first := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for d := first; !d.After(end); d = d.AddDate(0, 0, 1) {
		records, err := readParquetFile[TradeRecord](s.tradePath(d.Format("2006-01-02")))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for _, r := range records {
			t := r.Trade()
			if !t.Timestamp.Before(start) && !t.Timestamp.After(end) {
				trades = append(trades, t)
			}
		}
	}
	sort.Slice(trades, func(i, j int) bool { return trades[i].ID < trades[j].ID })
	return trades, nil
}

// tradePath returns the filesystem path for a date's archive file.
func (s *ParquetStore) tradePath(date string) string {
	return filepath.Join(s.DataDir, "trades", date+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeTradeRecords deduplicates records by id, preferring incoming records
// over existing ones. Results are sorted by id.
func mergeTradeRecords(existing, incoming []TradeRecord) []TradeRecord {
	seen := make(map[int64]TradeRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.ID] = r
	}
	for _, r := range incoming {
		seen[r.ID] = r
	}

	merged := make([]TradeRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ID < merged[j].ID
	})
	return merged
}
