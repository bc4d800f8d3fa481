package market

import (
	"context"

	"hermes/internal/tools"
	"hermes/internal/tools/shared"
	"hermes/pkg/errors"
)

// NewTopLosersTool returns a tool that lists the session's worst performers.
func NewTopLosersTool(deps shared.Deps) tools.Tool {
	return tools.New("get_top_losers", "Get today's top losing stocks on the Pakistan Stock Exchange, ordered by percent change", limitParams(), func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		if !deps.HasMarketData() {
			return nil, errors.New("get_top_losers: market data gateway not configured")
		}

		limit := tools.IntArg(args, "limit", 10)
		deps.Log.Debugw("tool: get_top_losers", "limit", limit)

		records, err := deps.Market.TopLosers(ctx, limit)
		if err != nil {
			deps.Log.Errorw("tool: get_top_losers failed", "error", err)
			return nil, errors.Wrap(err, "get_top_losers")
		}

		return map[string]interface{}{"stocks": records, "count": len(records)}, nil
	})
}
