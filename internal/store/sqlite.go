package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tradrx/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ SnapshotStore = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS trades (
	id        INTEGER PRIMARY KEY,
	symbol    TEXT    NOT NULL,
	action    TEXT    NOT NULL,
	quantity  REAL    NOT NULL,
	price     REAL    NOT NULL,
	timestamp TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	symbol   TEXT PRIMARY KEY,
	quantity REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
`

const metaNextID = "next_id"

// SQLiteStore keeps the ledger snapshot in a SQLite database. Each Save
// replaces every row inside one transaction, so the database only ever holds
// complete snapshots.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists. A file that is not a SQLite database is reported as
// domain.ErrCorruptStorage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// Writes are serialized by the ledger; one connection keeps SQLite from
	// reporting SQLITE_BUSY against ourselves.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: initialising %s: %v", domain.ErrCorruptStorage, dbPath, err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads the snapshot back in placement (id) order.
func (s *SQLiteStore) Load(ctx context.Context) (*domain.State, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	st := domain.NewState()

	rows, err := tx.QueryContext(ctx, `SELECT id, symbol, action, quantity, price, timestamp FROM trades ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying trades: %v", domain.ErrCorruptStorage, err)
	}
	for rows.Next() {
		var (
			t  domain.Trade
			ts string
		)
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Action, &t.Quantity, &t.Price, &ts); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scanning trade: %v", domain.ErrCorruptStorage, err)
		}
		t.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: trade %d timestamp: %v", domain.ErrCorruptStorage, t.ID, err)
		}
		st.Trades = append(st.Trades, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%w: reading trades: %v", domain.ErrCorruptStorage, err)
	}
	rows.Close()

	prows, err := tx.QueryContext(ctx, `SELECT symbol, quantity FROM positions`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying positions: %v", domain.ErrCorruptStorage, err)
	}
	for prows.Next() {
		var (
			sym string
			qty float64
		)
		if err := prows.Scan(&sym, &qty); err != nil {
			prows.Close()
			return nil, fmt.Errorf("%w: scanning position: %v", domain.ErrCorruptStorage, err)
		}
		st.Positions[sym] = qty
	}
	if err := prows.Err(); err != nil {
		prows.Close()
		return nil, fmt.Errorf("%w: reading positions: %v", domain.ErrCorruptStorage, err)
	}
	prows.Close()

	var next int64
	err = tx.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaNextID).Scan(&next)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		next = domain.RecoverNextID(st.Trades)
	case err != nil:
		return nil, fmt.Errorf("%w: reading next_id: %v", domain.ErrCorruptStorage, err)
	}
	st.NextID = next

	if err := st.Validate(); err != nil {
		return nil, err
	}
	return st, nil
}

// Save replaces the stored snapshot with st in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, st *domain.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trades`); err != nil {
		return fmt.Errorf("clearing trades: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM positions`); err != nil {
		return fmt.Errorf("clearing positions: %w", err)
	}

	insTrade, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (id, symbol, action, quantity, price, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing trade insert: %w", err)
	}
	defer insTrade.Close()
	for _, t := range st.Trades {
		if _, err := insTrade.ExecContext(ctx,
			t.ID, t.Symbol, string(t.Action), t.Quantity, t.Price,
			t.Timestamp.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("inserting trade %d: %w", t.ID, err)
		}
	}

	insPos, err := tx.PrepareContext(ctx, `INSERT INTO positions (symbol, quantity) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing position insert: %w", err)
	}
	defer insPos.Close()
	for sym, qty := range st.Positions {
		if _, err := insPos.ExecContext(ctx, sym, qty); err != nil {
			return fmt.Errorf("inserting position %s: %w", sym, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, metaNextID, st.NextID,
	); err != nil {
		return fmt.Errorf("writing next_id: %w", err)
	}

	return tx.Commit()
}
