package api

import (
	"time"

	"hermes/internal/market"
)

// QueryRequest is a free-form question for the assistant, with optional
// portfolio context.
type QueryRequest struct {
	Query     string                     `json:"query"`
	Portfolio []market.PortfolioPosition `json:"portfolio,omitempty"`
}

// QueryResponse is the assistant's answer plus every stock it touched.
type QueryResponse struct {
	Response  string               `json:"response"`
	Stocks    []market.StockRecord `json:"stocks,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// PortfolioAnalysisRequest asks for a review of the given holdings.
type PortfolioAnalysisRequest struct {
	Positions []market.PortfolioPosition `json:"positions"`
}

// EmailUpdateRequest runs a portfolio analysis and emails the result,
// optionally listing alerts that triggered the update.
type EmailUpdateRequest struct {
	To        string                     `json:"to"`
	Positions []market.PortfolioPosition `json:"positions"`
	Alerts    []market.Alert             `json:"alerts,omitempty"`
}

// EmailUpdateResponse acknowledges a sent update.
type EmailUpdateResponse struct {
	Status string `json:"status"`
	To     string `json:"to"`
}

// StockListResponse wraps scan results for the REST endpoints.
type StockListResponse struct {
	Stocks []market.StockRecord `json:"stocks"`
	Count  int                  `json:"count"`
}

// CurrentPricesRequest asks for the latest price of each symbol.
type CurrentPricesRequest struct {
	Symbols []string `json:"symbols"`
}

// CurrentPricesResponse maps symbol to latest price in PKR.
type CurrentPricesResponse struct {
	Prices map[string]float64 `json:"prices"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
