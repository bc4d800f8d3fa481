package market

import (
	"context"

	"hermes/internal/tools"
	"hermes/internal/tools/shared"
	"hermes/pkg/errors"
)

func rsiScanParams(direction string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"threshold": map[string]interface{}{
				"type":        "number",
				"description": "RSI threshold (default " + direction + ")",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of stocks to return (default 10)",
			},
		},
	}
}

// NewScanOversoldTool returns a tool that finds potential buying
// opportunities by low RSI.
func NewScanOversoldTool(deps shared.Deps) tools.Tool {
	return tools.New("scan_oversold_stocks", "Find PSX stocks with RSI below a threshold (oversold, potential buys)", rsiScanParams("30"), func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		if !deps.HasMarketData() {
			return nil, errors.New("scan_oversold_stocks: market data gateway not configured")
		}

		threshold := tools.FloatArg(args, "threshold", 30)
		limit := tools.IntArg(args, "limit", 10)
		deps.Log.Debugw("tool: scan_oversold_stocks", "threshold", threshold, "limit", limit)

		records, err := deps.Market.ScanOversold(ctx, threshold, limit)
		if err != nil {
			deps.Log.Errorw("tool: scan_oversold_stocks failed", "error", err)
			return nil, errors.Wrap(err, "scan_oversold_stocks")
		}

		return map[string]interface{}{"stocks": records, "count": len(records)}, nil
	})
}
