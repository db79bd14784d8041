// Package ledger owns the in-memory trade log and net positions. It applies
// trade placement and cancellation, persists a full snapshot after every
// mutation and serves consistent read-only views.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/emirpasic/gods/maps/linkedhashmap"

	"tradrx/internal/domain"
	"tradrx/internal/metrics"
	"tradrx/internal/store"
)

// Ledger is the aggregate root for trades and positions. Mutations are
// mutually exclusive and hold the lock across the snapshot write; queries
// share a read lock and never observe a half-applied mutation.
type Ledger struct {
	mu        sync.RWMutex
	trades    *linkedhashmap.Map // int64 id -> domain.Trade, in placement order
	positions map[string]float64
	nextID    int64

	store   store.SnapshotStore
	risk    *RiskManager
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan Event
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// WithMetrics reports mutations to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithRiskManager enforces pre-trade limits.
func WithRiskManager(rm *RiskManager) Option {
	return func(l *Ledger) { l.risk = rm }
}

// WithClock overrides the source of trade timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Open loads the ledger state from st and returns a ready Ledger. A corrupt
// store is returned as an error wrapping domain.ErrCorruptStorage.
func Open(ctx context.Context, st store.SnapshotStore, opts ...Option) (*Ledger, error) {
	state, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}

	l := &Ledger{
		trades:    linkedhashmap.New(),
		positions: make(map[string]float64, len(state.Positions)),
		nextID:    state.NextID,
		store:     st,
		log:       slog.Default(),
		now:       time.Now,
		subs:      make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(l)
	}

	for _, t := range state.Trades {
		l.trades.Put(t.ID, t)
	}
	for sym, qty := range state.Positions {
		l.positions[sym] = qty
	}
	// Stored positions only agree with the trade log within tolerance; the
	// log wins.
	sums := make(map[string]float64)
	for _, t := range state.Trades {
		sums[t.Symbol] += t.SignedQuantity()
	}
	for sym, qty := range sums {
		l.positions[sym] = qty
	}

	l.metrics.Loaded(l.positions, l.trades.Size())
	l.log.Info("ledger loaded", "trades", l.trades.Size(), "symbols", len(l.positions), "next_id", l.nextID)
	return l, nil
}

// PlaceTrade validates and books a trade, updates the symbol's position and
// persists the new snapshot. Invalid input returns an error wrapping
// domain.ErrInvalidTradeData; a breached limit wraps
// domain.ErrRiskLimitExceeded. If the snapshot cannot be written the ledger
// is left unchanged and the store error is returned.
func (l *Ledger) PlaceTrade(ctx context.Context, symbol string, action domain.Action, quantity, price float64) (domain.Trade, error) {
	symbol = strings.TrimSpace(symbol)
	if err := domain.ValidateTrade(symbol, action, quantity, price); err != nil {
		l.metrics.TradeRejected("invalid")
		return domain.Trade{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.risk.CheckTrade(l.positions[symbol], action, quantity); err != nil {
		l.metrics.TradeRejected("risk")
		l.log.Warn("trade rejected by risk limits", "symbol", symbol, "action", action, "quantity", quantity, "error", err)
		return domain.Trade{}, err
	}

	trade := domain.Trade{
		ID:        l.nextID,
		Symbol:    symbol,
		Action:    action,
		Quantity:  quantity,
		Price:     price,
		Timestamp: l.now().UTC(),
	}
	snap := l.stateLocked()
	snap.Trades = append(snap.Trades, trade)
	position := positionOf(snap.Trades, symbol)
	snap.Positions[symbol] = position
	snap.NextID = trade.ID + 1

	if err := l.persist(ctx, snap); err != nil {
		return domain.Trade{}, err
	}

	l.trades.Put(trade.ID, trade)
	l.positions[symbol] = position
	l.nextID = trade.ID + 1

	l.metrics.TradePlaced(string(action), symbol, position, l.trades.Size())
	l.log.Info("trade placed", "id", trade.ID, "symbol", symbol, "action", action,
		"quantity", quantity, "price", price, "position", position)
	l.broadcast(Event{Type: EventPlaced, Trade: &trade, Symbol: symbol, Position: position})

	return trade, nil
}

// CancelTrade removes an active trade and reverses its effect on the
// symbol's position. Unknown or already cancelled ids return
// domain.ErrTradeNotFound. The id counter is not touched, so ids are never
// reused.
func (l *Ledger) CancelTrade(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.trades.Get(id)
	if !ok {
		return fmt.Errorf("%w: id %d", domain.ErrTradeNotFound, id)
	}
	trade := v.(domain.Trade)

	snap := l.stateLocked()
	kept := snap.Trades[:0]
	for _, t := range snap.Trades {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	snap.Trades = kept
	position := positionOf(kept, trade.Symbol)
	snap.Positions[trade.Symbol] = position

	if err := l.persist(ctx, snap); err != nil {
		return err
	}

	l.trades.Remove(id)
	l.positions[trade.Symbol] = position

	l.metrics.TradeCancelled(string(trade.Action), trade.Symbol, position, l.trades.Size())
	l.log.Info("trade cancelled", "id", id, "symbol", trade.Symbol, "position", position)
	l.broadcast(Event{Type: EventCancelled, Trade: &trade, Symbol: trade.Symbol, Position: position})

	return nil
}

// positionOf sums the signed quantities of symbol's trades in placement
// order. Appending a trade yields the same value as adding to the running
// total; removing one yields exactly the sum of the trades left.
func positionOf(trades []domain.Trade, symbol string) float64 {
	var pos float64
	for _, t := range trades {
		if t.Symbol == symbol {
			pos += t.SignedQuantity()
		}
	}
	return pos
}

// persist writes snap through the store. Must be called with mu held.
func (l *Ledger) persist(ctx context.Context, snap *domain.State) error {
	err := l.store.Save(ctx, snap)
	if err == nil {
		return nil
	}
	l.metrics.PersistFailed()
	l.log.Error("persisting ledger snapshot", "error", err)
	return fmt.Errorf("persisting snapshot: %w", err)
}

// stateLocked returns a deep copy of the current state. Must be called with
// mu held (read or write).
func (l *Ledger) stateLocked() *domain.State {
	s := &domain.State{
		Positions: make(map[string]float64, len(l.positions)+1),
		Trades:    make([]domain.Trade, 0, l.trades.Size()+1),
		NextID:    l.nextID,
	}
	for sym, qty := range l.positions {
		s.Positions[sym] = qty
	}
	it := l.trades.Iterator()
	for it.Next() {
		s.Trades = append(s.Trades, it.Value().(domain.Trade))
	}
	return s
}
