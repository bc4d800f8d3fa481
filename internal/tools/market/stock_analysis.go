package market

import (
	"context"

	"hermes/internal/tools"
	"hermes/internal/tools/shared"
	"hermes/pkg/errors"
)

// NewStockAnalysisTool returns a tool that fetches the detailed technical
// picture for a single symbol.
func NewStockAnalysisTool(deps shared.Deps) tools.Tool {
	params := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"symbol": map[string]interface{}{
				"type":        "string",
				"description": "PSX ticker symbol, e.g. OGDC or SHEZ",
			},
		},
		"required": []string{"symbol"},
	}

	return tools.New("get_stock_analysis", "Get detailed price data and technical indicators (RSI, moving averages, Bollinger Bands, MACD) for one PSX stock", params, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		if !deps.HasMarketData() {
			return nil, errors.New("get_stock_analysis: market data gateway not configured")
		}

		symbol := tools.StringArg(args, "symbol")
		if symbol == "" {
			return nil, errors.Wrap(errors.ErrInvalidInput, "get_stock_analysis: symbol is required")
		}

		deps.Log.Debugw("tool: get_stock_analysis", "symbol", symbol)

		record, err := deps.Market.StockAnalysis(ctx, symbol)
		if err != nil {
			deps.Log.Errorw("tool: get_stock_analysis failed", "symbol", symbol, "error", err)
			return nil, errors.Wrap(err, "get_stock_analysis")
		}

		return record, nil
	})
}
