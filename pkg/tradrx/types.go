package tradrx

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Trade actions.
const (
	Buy  = "buy"
	Sell = "sell"
)

// Trade is a booked trade as returned by the server.
type Trade struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Action    string    `json:"action"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// SymbolStats is the per-symbol aggregate returned by Stats.
type SymbolStats struct {
	Count          int     `json:"count"`
	AveragePrice   float64 `json:"averagePrice"`
	PredictedPrice float64 `json:"predictedPrice"`
	TotalPrice     float64 `json:"totalPrice"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type placeTradeRequest struct {
	Symbol   string  `json:"symbol"`
	Action   string  `json:"action"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

type placeTradeResponse struct {
	Status string `json:"status"`
	Trade  Trade  `json:"trade"`
}

type errorResponse struct {
	Error string `json:"error"`
}
