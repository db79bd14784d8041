package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradrx/internal/domain"
)

var ts0 = time.Date(2024, 6, 15, 14, 30, 0, 123456789, time.UTC)

// sampleState mirrors a ledger that booked three trades and cancelled the
// first, so ids have a gap and next_id is ahead of count+1.
func sampleState() *domain.State {
	return &domain.State{
		Positions: map[string]float64{"AAPL": -4, "MSFT": 2.5, "TSLA": 0},
		Trades: []domain.Trade{
			{ID: 2, Symbol: "AAPL", Action: domain.ActionSell, Quantity: 4, Price: 155, Timestamp: ts0},
			{ID: 3, Symbol: "MSFT", Action: domain.ActionBuy, Quantity: 2.5, Price: 410.25, Timestamp: ts0.Add(time.Minute)},
		},
		NextID: 5,
	}
}

// snapshotStores returns a fresh instance of every SnapshotStore backend.
func snapshotStores(t *testing.T) map[string]SnapshotStore {
	t.Helper()
	dir := t.TempDir()

	sq, err := NewSQLiteStore(filepath.Join(dir, "tradrx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })

	return map[string]SnapshotStore{
		"json":   NewJSONStore(filepath.Join(dir, "tradrx_data.json")),
		"sqlite": sq,
	}
}

func TestSnapshotStoreEmptyLoad(t *testing.T) {
	for name, s := range snapshotStores(t) {
		t.Run(name, func(t *testing.T) {
			st, err := s.Load(context.Background())
			require.NoError(t, err)
			assert.Empty(t, st.Trades)
			assert.Empty(t, st.Positions)
			assert.Equal(t, int64(1), st.NextID)
		})
	}
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range snapshotStores(t) {
		t.Run(name, func(t *testing.T) {
			want := sampleState()
			require.NoError(t, s.Save(ctx, want))

			got, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, want.NextID, got.NextID)
			assert.Equal(t, want.Positions, got.Positions)
			require.Len(t, got.Trades, len(want.Trades))
			for i := range want.Trades {
				assert.True(t, want.Trades[i].Timestamp.Equal(got.Trades[i].Timestamp), "trade %d timestamp", i)
				got.Trades[i].Timestamp = want.Trades[i].Timestamp
			}
			assert.Equal(t, want.Trades, got.Trades)

			// Saving what was loaded leaves the state unchanged.
			require.NoError(t, s.Save(ctx, got))
			again, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, got.NextID, again.NextID)
			assert.Equal(t, got.Positions, again.Positions)
			assert.Len(t, again.Trades, len(got.Trades))
		})
	}
}

func TestSnapshotStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	for name, s := range snapshotStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save(ctx, sampleState()))

			smaller := domain.NewState()
			smaller.NextID = 5
			smaller.Positions["AAPL"] = 0
			require.NoError(t, s.Save(ctx, smaller))

			got, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, got.Trades)
			assert.Equal(t, map[string]float64{"AAPL": 0}, got.Positions)
			assert.Equal(t, int64(5), got.NextID)
		})
	}
}

func TestJSONStoreFileShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s := NewJSONStore(path)
	require.NoError(t, s.Save(context.Background(), sampleState()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, key := range []string{`"positions"`, `"trades"`, `"next_id":5`, `"action":"sell"`, `"timestamp":"2024-06-15T14:30:00.123456789Z"`} {
		assert.Contains(t, string(data), key)
	}

	// No temp files survive a successful save.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestJSONStoreCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "data.json")
	s := NewJSONStore(path)
	require.NoError(t, s.Save(context.Background(), domain.NewState()))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestJSONStoreMissingNextID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	contiguous := `{"positions":{"AAPL":6},"trades":[
		{"id":1,"symbol":"AAPL","action":"buy","quantity":10,"price":150,"timestamp":"2024-06-15T14:30:00Z"},
		{"id":2,"symbol":"AAPL","action":"sell","quantity":4,"price":155,"timestamp":"2024-06-15T14:31:00Z"}]}`
	require.NoError(t, os.WriteFile(path, []byte(contiguous), 0o644))

	st, err := NewJSONStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.NextID, "count(trades)+1 when no id was ever cancelled")

	// Trade 1 was cancelled before next_id was first persisted: count+1 would
	// collide with the surviving trade 2.
	gapped := `{"positions":{"AAPL":-4},"trades":[
		{"id":2,"symbol":"AAPL","action":"sell","quantity":4,"price":155,"timestamp":"2024-06-15T14:31:00Z"}]}`
	require.NoError(t, os.WriteFile(path, []byte(gapped), 0o644))

	st, err = NewJSONStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.NextID)
}

func TestJSONStoreCorrupt(t *testing.T) {
	cases := map[string]string{
		"empty file":        "",
		"not json":          "positions: {}",
		"null":              "null",
		"array":             "[]",
		"truncated":         `{"positions":{"AAPL":10},"trades":[{"id":1`,
		"trailing garbage":  `{"positions":{},"trades":[],"next_id":1} {}`,
		"unknown field":     `{"positions":{},"trades":[],"next_id":1,"extra":true}`,
		"wrong type":        `{"positions":{"AAPL":"ten"},"trades":[],"next_id":1}`,
		"bad action":        `{"positions":{"AAPL":10},"trades":[{"id":1,"symbol":"AAPL","action":"hold","quantity":10,"price":1,"timestamp":"2024-06-15T14:30:00Z"}],"next_id":2}`,
		"missing id":        `{"positions":{"AAPL":10},"trades":[{"symbol":"AAPL","action":"buy","quantity":10,"price":1,"timestamp":"2024-06-15T14:30:00Z"}],"next_id":2}`,
		"bad timestamp":     `{"positions":{"AAPL":10},"trades":[{"id":1,"symbol":"AAPL","action":"buy","quantity":10,"price":1,"timestamp":"yesterday"}],"next_id":2}`,
		"position mismatch": `{"positions":{"AAPL":11},"trades":[{"id":1,"symbol":"AAPL","action":"buy","quantity":10,"price":1,"timestamp":"2024-06-15T14:30:00Z"}],"next_id":2}`,
		"next_id reuse":     `{"positions":{"AAPL":10},"trades":[{"id":1,"symbol":"AAPL","action":"buy","quantity":10,"price":1,"timestamp":"2024-06-15T14:30:00Z"}],"next_id":1}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, err := NewJSONStore(path).Load(context.Background())
			assert.True(t, errors.Is(err, domain.ErrCorruptStorage), "Load() error = %v, want ErrCorruptStorage", err)
		})
	}
}

func TestSQLiteStoreNotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.db")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("not a sqlite file ", 64)), 0o644))

	s, err := NewSQLiteStore(path)
	if err == nil {
		// Some drivers defer the header check to the first query.
		defer s.Close()
		_, err = s.Load(context.Background())
	}
	assert.True(t, errors.Is(err, domain.ErrCorruptStorage), "error = %v, want ErrCorruptStorage", err)
}

func TestSQLiteStoreOpen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%q) returned error: %v", dbPath, err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			t.Errorf("Close() returned error: %v", cerr)
		}
	}()

	if err := store.db.Ping(); err != nil {
		t.Fatalf("db.Ping() returned error: %v", err)
	}

	var n int
	err = store.db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name IN ('trades','positions','meta')`).Scan(&n)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	if n != 3 {
		t.Errorf("found %d tables, want 3", n)
	}
}
