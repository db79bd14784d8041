// Package httpapi provides the HTTP REST API for the trade ledger, serving
// the same operations as the CLI in JSON format.
package httpapi

import (
	"github.com/samber/lo"

	"tradrx/internal/domain"
	"tradrx/internal/stats"
)

// TradeRequest is the body of POST /trade. Missing numeric fields decode as
// zero and are rejected by validation.
type TradeRequest struct {
	Symbol   string  `json:"symbol"`
	Action   string  `json:"action"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

// PlaceTradeResponse is returned for a booked trade.
type PlaceTradeResponse struct {
	Status string       `json:"status"`
	Trade  domain.Trade `json:"trade"`
}

// CancelTradeResponse is returned for a cancelled trade.
type CancelTradeResponse struct {
	Status string `json:"status"`
	ID     int64  `json:"id"`
}

// SymbolStatsJSON is the JSON representation of per-symbol trade stats.
type SymbolStatsJSON struct {
	Count          int     `json:"count"`
	AveragePrice   float64 `json:"averagePrice"`
	PredictedPrice float64 `json:"predictedPrice"`
	TotalPrice     float64 `json:"totalPrice"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Trades int    `json:"trades"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

const statusSuccess = "success"

func convertStats(m map[string]*stats.SymbolStats) map[string]SymbolStatsJSON {
	return lo.MapValues(m, func(s *stats.SymbolStats, _ string) SymbolStatsJSON {
		return SymbolStatsJSON{
			Count:          s.Count,
			AveragePrice:   s.AveragePrice,
			PredictedPrice: s.PredictedPrice,
			TotalPrice:     s.TotalPrice,
		}
	})
}
