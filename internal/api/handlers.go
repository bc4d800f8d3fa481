package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hermes/internal/agents"
	"hermes/internal/market"
	"hermes/internal/metrics"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Agent runs one query through the reasoning loop.
type Agent interface {
	Query(ctx context.Context, query string, portfolio []market.PortfolioPosition) (agents.Response, error)
}

// MarketData is the gateway surface the REST endpoints use directly,
// bypassing the agent loop.
type MarketData interface {
	TopGainers(ctx context.Context, limit int) ([]map[string]interface{}, error)
	TopLosers(ctx context.Context, limit int) ([]map[string]interface{}, error)
	StockAnalysis(ctx context.Context, symbol string) (map[string]interface{}, error)
	CurrentPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// Mailer sends portfolio updates.
type Mailer interface {
	SendPortfolioUpdate(ctx context.Context, to, text string, stocks []market.StockRecord, alerts []market.Alert) error
}

// Notifier pushes actionable signals to a chat channel.
type Notifier interface {
	SendSignals(ctx context.Context, stocks []market.StockRecord) error
}

// Handlers carries the request handlers for the service API.
type Handlers struct {
	agent    Agent
	market   MarketData
	mailer   Mailer
	notifier Notifier // optional
	log      *logger.Logger
}

// NewHandlers creates the API handlers.
func NewHandlers(agent Agent, marketData MarketData, mailer Mailer, log *logger.Logger) *Handlers {
	return &Handlers{
		agent:  agent,
		market: marketData,
		mailer: mailer,
		log:    log.With("component", "api"),
	}
}

// SetNotifier enables the optional signal push channel.
func (h *Handlers) SetNotifier(n Notifier) {
	h.notifier = n
}

// pushSignals forwards actionable signals to the notifier, best effort.
func (h *Handlers) pushSignals(ctx context.Context, stocks []market.StockRecord) {
	if h.notifier == nil || len(stocks) == 0 {
		return
	}
	if err := h.notifier.SendSignals(ctx, stocks); err != nil {
		h.log.Warnw("pushing signals failed", "error", err)
	}
}

// HandleQuery answers a free-form question via the agent loop.
func (h *Handlers) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.agent.Query(r.Context(), req.Query, req.Portfolio)
	if err != nil {
		h.writeAgentError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		Response:  resp.Text,
		Stocks:    resp.Stocks,
		Timestamp: resp.Timestamp,
	})
}

// HandleAnalyzePortfolio reviews the given holdings via the agent loop.
func (h *Handlers) HandleAnalyzePortfolio(w http.ResponseWriter, r *http.Request) {
	var req PortfolioAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Positions) == 0 {
		writeError(w, http.StatusBadRequest, "positions is required")
		return
	}

	resp, err := h.agent.Query(r.Context(), portfolioQuery, req.Positions)
	if err != nil {
		h.writeAgentError(w, err)
		return
	}

	h.pushSignals(r.Context(), resp.Stocks)

	writeJSON(w, http.StatusOK, QueryResponse{
		Response:  resp.Text,
		Stocks:    resp.Stocks,
		Timestamp: resp.Timestamp,
	})
}

const portfolioQuery = "Review my portfolio: check the current price and technical picture of each " +
	"holding, point out which positions look strong or weak, and suggest what deserves attention."

// HandleEmailUpdate runs a portfolio analysis and emails the result.
func (h *Handlers) HandleEmailUpdate(w http.ResponseWriter, r *http.Request) {
	var req EmailUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.To) == "" {
		writeError(w, http.StatusBadRequest, "to is required")
		return
	}
	if len(req.Positions) == 0 {
		writeError(w, http.StatusBadRequest, "positions is required")
		return
	}

	resp, err := h.agent.Query(r.Context(), portfolioQuery, req.Positions)
	if err != nil {
		h.writeAgentError(w, err)
		return
	}

	if err := h.mailer.SendPortfolioUpdate(r.Context(), req.To, resp.Text, resp.Stocks, req.Alerts); err != nil {
		h.log.Errorw("sending portfolio update failed", "to", req.To, "error", err)
		writeError(w, http.StatusBadGateway, "sending email failed")
		return
	}

	h.pushSignals(r.Context(), resp.Stocks)

	writeJSON(w, http.StatusOK, EmailUpdateResponse{Status: "sent", To: req.To})
}

// HandleTopGainers serves scan results directly, without the agent.
func (h *Handlers) HandleTopGainers(w http.ResponseWriter, r *http.Request) {
	h.handleMovers(w, r, h.market.TopGainers)
}

// HandleTopLosers serves the losing side of the scan.
func (h *Handlers) HandleTopLosers(w http.ResponseWriter, r *http.Request) {
	h.handleMovers(w, r, h.market.TopLosers)
}

func (h *Handlers) handleMovers(w http.ResponseWriter, r *http.Request, fetch func(context.Context, int) ([]map[string]interface{}, error)) {
	limit := queryLimit(r, 10)

	raw, err := fetch(r.Context(), limit)
	if err != nil {
		h.writeGatewayError(w, err)
		return
	}

	stocks := make([]market.StockRecord, 0, len(raw))
	for _, record := range raw {
		if rec := market.Normalize(record); rec != nil {
			stocks = append(stocks, *rec)
		}
	}

	writeJSON(w, http.StatusOK, StockListResponse{Stocks: stocks, Count: len(stocks)})
}

// HandleStock serves the detailed analysis of one symbol.
func (h *Handlers) HandleStock(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	raw, err := h.market.StockAnalysis(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, errors.ErrUnknownSymbol) {
			writeError(w, http.StatusNotFound, "unknown symbol: "+strings.ToUpper(symbol))
			return
		}
		if errors.Is(err, errors.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "symbol is required")
			return
		}
		h.writeGatewayError(w, err)
		return
	}

	if rec := market.Normalize(raw); rec != nil {
		raw["recommendation"] = rec.Recommendation
	}
	writeJSON(w, http.StatusOK, raw)
}

// HandleCurrentPrices serves latest prices for a list of symbols.
func (h *Handlers) HandleCurrentPrices(w http.ResponseWriter, r *http.Request) {
	var req CurrentPricesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Symbols) == 0 {
		writeError(w, http.StatusBadRequest, "symbols is required")
		return
	}

	prices, err := h.market.CurrentPrices(r.Context(), req.Symbols)
	if err != nil {
		h.writeGatewayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CurrentPricesResponse{Prices: prices})
}

func (h *Handlers) writeAgentError(w http.ResponseWriter, err error) {
	h.log.Errorw("agent query failed", "error", err)

	switch {
	case errors.Is(err, errors.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errors.ErrExternal), errors.Is(err, errors.ErrProviderUnavailable):
		writeError(w, http.StatusBadGateway, "upstream provider failed")
	default:
		writeError(w, http.StatusInternalServerError, "query failed")
	}
}

func (h *Handlers) writeGatewayError(w http.ResponseWriter, err error) {
	h.log.Errorw("market data request failed", "error", err)

	switch {
	case errors.Is(err, errors.ErrRateLimitExceeded):
		writeError(w, http.StatusTooManyRequests, "market data rate limit exceeded")
	case errors.Is(err, errors.ErrProviderUnavailable):
		writeError(w, http.StatusBadGateway, "market data provider unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "market data request failed")
	}
}

// maxQueryLimit caps scan sizes requested through the REST API.
const maxQueryLimit = 50

func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	if limit > maxQueryLimit {
		return maxQueryLimit
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// instrument wraps a handler with request metrics under a stable path label.
func instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		obs := newStatusRecorder(w)

		next(obs, r)

		metrics.HTTPDuration.WithLabelValues(r.Method, path).Observe(time.Since(started).Seconds())
		metrics.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(obs.status)).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
