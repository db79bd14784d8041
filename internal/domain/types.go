// Package domain defines the core types shared across tradrx: trades,
// actions, the ledger snapshot and the error taxonomy.
package domain

import (
	"errors"
	"time"
)

// Sentinel errors. Callers test for them with errors.Is.
var (
	// ErrInvalidTradeData is returned when a trade request is missing a
	// symbol, names an unknown action or carries a non-positive quantity or
	// price.
	ErrInvalidTradeData = errors.New("invalid trade data")

	// ErrTradeNotFound is returned when an id was never issued or the trade
	// has already been cancelled.
	ErrTradeNotFound = errors.New("trade not found")

	// ErrCorruptStorage is returned when the backing store holds data that
	// cannot be parsed or violates the snapshot invariants.
	ErrCorruptStorage = errors.New("corrupt storage")

	// ErrRiskLimitExceeded is returned when a trade would breach a
	// configured risk limit.
	ErrRiskLimitExceeded = errors.New("risk limit exceeded")
)

// Action is the direction of a trade.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	return a == ActionBuy || a == ActionSell
}

// Sign returns +1 for buys and -1 for sells.
func (a Action) Sign() float64 {
	if a == ActionSell {
		return -1
	}
	return 1
}

// Trade is a booked trade. Trades are immutable; cancellation removes them
// from the ledger.
type Trade struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Action    Action    `json:"action"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// SignedQuantity is the trade's contribution to its symbol's position.
func (t Trade) SignedQuantity() float64 {
	return t.Action.Sign() * t.Quantity
}

// State is a complete snapshot of the ledger: the active trades in placement
// order, the derived net positions and the id counter.
type State struct {
	Positions map[string]float64 `json:"positions"`
	Trades    []Trade            `json:"trades"`
	NextID    int64              `json:"next_id"`
}

// NewState returns an empty ledger state.
func NewState() *State {
	return &State{
		Positions: make(map[string]float64),
		Trades:    []Trade{},
		NextID:    1,
	}
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	out := &State{
		Positions: make(map[string]float64, len(s.Positions)),
		Trades:    make([]Trade, len(s.Trades)),
		NextID:    s.NextID,
	}
	for k, v := range s.Positions {
		out.Positions[k] = v
	}
	copy(out.Trades, s.Trades)
	return out
}
