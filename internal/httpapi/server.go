package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"

	"tradrx/internal/domain"
	"tradrx/internal/ledger"
	"tradrx/internal/metrics"
)

// maxBodyBytes caps the size of a trade request body.
const maxBodyBytes = 1 << 20

// LedgerServer serves the ledger HTTP API.
type LedgerServer struct {
	ledger     *ledger.Ledger
	log        *slog.Logger
	metrics    *metrics.Metrics
	limiter    *rate.Limiter // nil disables rate limiting
	corsOrigin string
	liveFeed   http.Handler // nil disables GET /ws
}

// Option configures a LedgerServer.
type Option func(*LedgerServer)

// WithMetrics records per-request metrics and serves GET /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *LedgerServer) { s.metrics = m }
}

// WithRateLimit limits mutating requests to perSec with the given burst. A
// non-positive rate disables the limiter.
func WithRateLimit(perSec float64, burst int) Option {
	return func(s *LedgerServer) {
		if perSec <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// WithCORSOrigin sets the Access-Control-Allow-Origin value.
func WithCORSOrigin(origin string) Option {
	return func(s *LedgerServer) { s.corsOrigin = origin }
}

// WithLiveFeed mounts h (the WebSocket hub) at GET /ws.
func WithLiveFeed(h http.Handler) Option {
	return func(s *LedgerServer) { s.liveFeed = h }
}

// NewLedgerServer creates a new ledger HTTP server.
func NewLedgerServer(l *ledger.Ledger, log *slog.Logger, opts ...Option) *LedgerServer {
	s := &LedgerServer{
		ledger:     l,
		log:        log,
		corsOrigin: "*",
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRoutes registers all API routes on the given mux.
func (s *LedgerServer) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("POST /trade", s.rateLimited(http.HandlerFunc(s.handlePlaceTrade)))
	mux.Handle("DELETE /trades/{id}", s.rateLimited(http.HandlerFunc(s.handleCancelTrade)))
	mux.HandleFunc("GET /trades/{id}", s.handleGetTrade)
	mux.HandleFunc("GET /trades", s.handleListTrades)
	mux.HandleFunc("GET /positions", s.handleListPositions)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	if s.liveFeed != nil {
		mux.Handle("GET /ws", s.liveFeed)
	}
}

// Handler returns an http.Handler with CORS, request id and access log
// middleware.
func (s *LedgerServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.requestID(s.accessLog(s.cors(mux)))
}

func (s *LedgerServer) handlePlaceTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid trade data: malformed JSON body")
		return
	}

	trade, err := s.ledger.PlaceTrade(r.Context(), req.Symbol, domain.Action(req.Action), req.Quantity, req.Price)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, PlaceTradeResponse{Status: statusSuccess, Trade: trade})
}

func (s *LedgerServer) handleCancelTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := s.ledger.CancelTrade(r.Context(), id); err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, CancelTradeResponse{Status: statusSuccess, ID: id})
}

func (s *LedgerServer) handleGetTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	trade, err := s.ledger.Trade(id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, trade)
}

func (s *LedgerServer) handleListTrades(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.ledger.Trades())
}

func (s *LedgerServer) handleListPositions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.ledger.Positions())
}

func (s *LedgerServer) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, convertStats(s.ledger.Stats()))
}

func (s *LedgerServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok", Trades: s.ledger.Len()})
}

// parseID reads the {id} path value. Non-integer ids are reported as not
// found, the same as ids that were never issued.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, domain.ErrTradeNotFound.Error())
		return 0, false
	}
	return id, true
}

// statusFor maps ledger errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidTradeData):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTradeNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRiskLimitExceeded):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *LedgerServer) writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("ledger operation failed", "method", r.Method, "path", r.URL.Path,
			"request_id", w.Header().Get(requestIDHeader), "error", err)
		writeError(w, status, "failed to persist ledger")
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}
