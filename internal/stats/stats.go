// Package stats aggregates per-symbol trade statistics for the ledger's
// stats view.
package stats

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"tradrx/internal/domain"
)

// predictionFactor is the naive growth applied to the average price. It is a
// linear extrapolation, not a forecast.
var predictionFactor = decimal.RequireFromString("1.01")

// pricePlaces is the rounding applied to predicted prices.
const pricePlaces = 2

// SymbolStats holds aggregated statistics for a single symbol.
type SymbolStats struct {
	Symbol         string
	Count          int
	TotalPrice     float64 // sum of per-trade price, not price * quantity
	AveragePrice   float64 // TotalPrice / Count
	PredictedPrice float64 // AveragePrice * 1.01, rounded half away from zero to 2 places
}

// AggregateTrades computes statistics for every symbol with at least one
// trade. Prices are summed and divided in decimal so the rounding of the
// predicted price does not depend on binary float representation.
func AggregateTrades(trades []domain.Trade) map[string]*SymbolStats {
	groups := lo.GroupBy(trades, func(t domain.Trade) string { return t.Symbol })

	m := make(map[string]*SymbolStats, len(groups))
	for sym, group := range groups {
		total := decimal.Zero
		for _, t := range group {
			total = total.Add(decimal.NewFromFloat(t.Price))
		}
		count := decimal.NewFromInt(int64(len(group)))
		avg := total.Div(count)

		m[sym] = &SymbolStats{
			Symbol:         sym,
			Count:          len(group),
			TotalPrice:     total.InexactFloat64(),
			AveragePrice:   avg.InexactFloat64(),
			PredictedPrice: PredictPrice(avg).InexactFloat64(),
		}
	}
	return m
}

// PredictPrice extrapolates the next price from an average.
func PredictPrice(avg decimal.Decimal) decimal.Decimal {
	return avg.Mul(predictionFactor).Round(pricePlaces)
}
