package domain

import (
	"fmt"
	"math"
	"strings"
)

// positionTolerance bounds the float drift allowed between a stored position
// and the sum recomputed from trades, relative to the gross traded quantity.
const positionTolerance = 1e-9

// ValidateTrade checks the fields of a trade request. It returns an error
// wrapping ErrInvalidTradeData describing the first offending field.
func ValidateTrade(symbol string, action Action, quantity, price float64) error {
	if strings.TrimSpace(symbol) == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidTradeData)
	}
	if !action.Valid() {
		return fmt.Errorf("%w: action must be %q or %q, got %q", ErrInvalidTradeData, ActionBuy, ActionSell, action)
	}
	if !positiveFinite(quantity) {
		return fmt.Errorf("%w: quantity must be positive, got %v", ErrInvalidTradeData, quantity)
	}
	if !positiveFinite(price) {
		return fmt.Errorf("%w: price must be positive, got %v", ErrInvalidTradeData, price)
	}
	return nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// RecoverNextID derives a safe id counter for a snapshot that was written
// without one. It never returns an id already held by a trade.
func RecoverNextID(trades []Trade) int64 {
	next := int64(len(trades)) + 1
	for _, t := range trades {
		if t.ID >= next {
			next = t.ID + 1
		}
	}
	return next
}

// Validate checks the snapshot invariants: well-formed unique trades, an id
// counter ahead of every issued id and positions that agree with the trade
// log. Violations wrap ErrCorruptStorage.
func (s *State) Validate() error {
	if s.Positions == nil {
		return fmt.Errorf("%w: positions missing", ErrCorruptStorage)
	}
	if s.Trades == nil {
		return fmt.Errorf("%w: trades missing", ErrCorruptStorage)
	}

	seen := make(map[int64]struct{}, len(s.Trades))
	sums := make(map[string]float64)
	gross := make(map[string]float64)
	for i, t := range s.Trades {
		if t.ID <= 0 {
			return fmt.Errorf("%w: trade[%d] has invalid id %d", ErrCorruptStorage, i, t.ID)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("%w: duplicate trade id %d", ErrCorruptStorage, t.ID)
		}
		seen[t.ID] = struct{}{}
		if err := ValidateTrade(t.Symbol, t.Action, t.Quantity, t.Price); err != nil {
			return fmt.Errorf("%w: trade %d: %v", ErrCorruptStorage, t.ID, err)
		}
		if t.Timestamp.IsZero() {
			return fmt.Errorf("%w: trade %d has no timestamp", ErrCorruptStorage, t.ID)
		}
		if t.ID >= s.NextID {
			return fmt.Errorf("%w: next_id %d not ahead of trade id %d", ErrCorruptStorage, s.NextID, t.ID)
		}
		sums[t.Symbol] += t.SignedQuantity()
		gross[t.Symbol] += t.Quantity
	}
	if s.NextID < 1 {
		return fmt.Errorf("%w: next_id %d", ErrCorruptStorage, s.NextID)
	}

	for sym, want := range sums {
		got := s.Positions[sym]
		if math.Abs(got-want) > positionTolerance*math.Max(1, gross[sym]) {
			return fmt.Errorf("%w: position %s = %v, trades sum to %v", ErrCorruptStorage, sym, got, want)
		}
	}
	for sym, got := range s.Positions {
		if _, ok := sums[sym]; ok {
			continue
		}
		if math.IsNaN(got) || math.Abs(got) > positionTolerance {
			return fmt.Errorf("%w: position %s = %v without trades", ErrCorruptStorage, sym, got)
		}
	}
	return nil
}
