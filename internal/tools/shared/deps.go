package shared

import (
	"context"

	"hermes/pkg/logger"
)

// MarketData is the gateway surface the tools call.
type MarketData interface {
	TopGainers(ctx context.Context, limit int) ([]map[string]interface{}, error)
	TopLosers(ctx context.Context, limit int) ([]map[string]interface{}, error)
	StockAnalysis(ctx context.Context, symbol string) (map[string]interface{}, error)
	ScanOversold(ctx context.Context, threshold float64, limit int) ([]map[string]interface{}, error)
	ScanOverbought(ctx context.Context, threshold float64, limit int) ([]map[string]interface{}, error)
	CurrentPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// Deps carries the dependencies shared by all tools.
type Deps struct {
	Market MarketData
	Log    *logger.Logger
}

// HasMarketData reports whether the market gateway is wired.
func (d Deps) HasMarketData() bool {
	return d.Market != nil
}
