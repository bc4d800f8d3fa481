package market

import (
	"context"

	"hermes/internal/tools"
	"hermes/internal/tools/shared"
	"hermes/pkg/errors"
)

// NewScanOverboughtTool returns a tool that finds candidates for taking
// profits by high RSI.
func NewScanOverboughtTool(deps shared.Deps) tools.Tool {
	return tools.New("scan_overbought_stocks", "Find PSX stocks with RSI above a threshold (overbought, potential sells)", rsiScanParams("70"), func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		if !deps.HasMarketData() {
			return nil, errors.New("scan_overbought_stocks: market data gateway not configured")
		}

		threshold := tools.FloatArg(args, "threshold", 70)
		limit := tools.IntArg(args, "limit", 10)
		deps.Log.Debugw("tool: scan_overbought_stocks", "threshold", threshold, "limit", limit)

		records, err := deps.Market.ScanOverbought(ctx, threshold, limit)
		if err != nil {
			deps.Log.Errorw("tool: scan_overbought_stocks failed", "error", err)
			return nil, errors.Wrap(err, "scan_overbought_stocks")
		}

		return map[string]interface{}{"stocks": records, "count": len(records)}, nil
	})
}
