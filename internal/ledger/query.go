package ledger

import (
	"fmt"

	"tradrx/internal/domain"
	"tradrx/internal/stats"
)

// Positions returns a copy of the net position per symbol. Symbols that
// netted back to zero keep their entry.
func (l *Ledger) Positions() map[string]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]float64, len(l.positions))
	for sym, qty := range l.positions {
		out[sym] = qty
	}
	return out
}

// Trades returns the active trades in placement order.
func (l *Ledger) Trades() []domain.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tradesLocked()
}

// Trade returns the active trade with the given id, or an error wrapping
// domain.ErrTradeNotFound.
func (l *Ledger) Trade(id int64) (domain.Trade, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.trades.Get(id)
	if !ok {
		return domain.Trade{}, fmt.Errorf("%w: id %d", domain.ErrTradeNotFound, id)
	}
	return v.(domain.Trade), nil
}

// Stats aggregates the active trades per symbol.
func (l *Ledger) Stats() map[string]*stats.SymbolStats {
	return stats.AggregateTrades(l.Trades())
}

// Snapshot returns a consistent deep copy of the whole ledger state.
func (l *Ledger) Snapshot() *domain.State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stateLocked()
}

// Len returns the number of active trades.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.trades.Size()
}

// tradesLocked must be called with mu held (read or write).
func (l *Ledger) tradesLocked() []domain.Trade {
	out := make([]domain.Trade, 0, l.trades.Size())
	it := l.trades.Iterator()
	for it.Next() {
		out = append(out, it.Value().(domain.Trade))
	}
	return out
}
