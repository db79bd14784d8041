package ledger

import (
	"fmt"
	"math"

	"tradrx/internal/domain"
)

// RiskManager enforces pre-trade limits on trade size and on the resulting
// net position of a symbol. A zero limit is disabled; a nil RiskManager
// accepts every trade.
type RiskManager struct {
	maxTradeQuantity float64
	maxPosition      float64
}

// NewRiskManager creates a RiskManager with the specified thresholds.
//
//   - maxTradeQuantity: largest quantity a single trade may carry.
//   - maxPosition: largest absolute net position a symbol may reach.
func NewRiskManager(maxTradeQuantity, maxPosition float64) *RiskManager {
	return &RiskManager{
		maxTradeQuantity: maxTradeQuantity,
		maxPosition:      maxPosition,
	}
}

// CheckTrade evaluates whether a trade of quantity in the given direction,
// applied to a symbol currently at position, stays within the limits.
func (rm *RiskManager) CheckTrade(position float64, action domain.Action, quantity float64) error {
	if rm == nil {
		return nil
	}
	if rm.maxTradeQuantity > 0 && quantity > rm.maxTradeQuantity {
		return fmt.Errorf("%w: quantity %v above max %v", domain.ErrRiskLimitExceeded, quantity, rm.maxTradeQuantity)
	}
	if rm.maxPosition > 0 {
		next := position + action.Sign()*quantity
		// Trades that shrink an already oversized position are allowed.
		if math.Abs(next) > rm.maxPosition && math.Abs(next) > math.Abs(position) {
			return fmt.Errorf("%w: position %v would exceed max %v", domain.ErrRiskLimitExceeded, next, rm.maxPosition)
		}
	}
	return nil
}
