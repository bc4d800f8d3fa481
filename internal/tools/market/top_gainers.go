package market

import (
	"context"

	"hermes/internal/tools"
	"hermes/internal/tools/shared"
	"hermes/pkg/errors"
)

func limitParams() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of stocks to return (default 10)",
			},
		},
	}
}

// NewTopGainersTool returns a tool that lists the session's best performers.
func NewTopGainersTool(deps shared.Deps) tools.Tool {
	return tools.New("get_top_gainers", "Get today's top gaining stocks on the Pakistan Stock Exchange, ordered by percent change", limitParams(), func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		if !deps.HasMarketData() {
			return nil, errors.New("get_top_gainers: market data gateway not configured")
		}

		limit := tools.IntArg(args, "limit", 10)
		deps.Log.Debugw("tool: get_top_gainers", "limit", limit)

		records, err := deps.Market.TopGainers(ctx, limit)
		if err != nil {
			deps.Log.Errorw("tool: get_top_gainers failed", "error", err)
			return nil, errors.Wrap(err, "get_top_gainers")
		}

		return map[string]interface{}{"stocks": records, "count": len(records)}, nil
	})
}
