package market

import (
	"context"

	"hermes/internal/tools"
	"hermes/internal/tools/shared"
	"hermes/pkg/errors"
)

// NewCurrentPricesTool returns a tool that fetches latest prices for a list
// of symbols, used when valuing a portfolio.
func NewCurrentPricesTool(deps shared.Deps) tools.Tool {
	params := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"symbols": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "PSX ticker symbols to price, e.g. [\"OGDC\", \"PSO\"]",
			},
		},
		"required": []string{"symbols"},
	}

	return tools.New("get_current_prices", "Get the latest price for each of the given PSX symbols", params, func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		if !deps.HasMarketData() {
			return nil, errors.New("get_current_prices: market data gateway not configured")
		}

		raw, _ := args["symbols"].([]interface{})
		symbols := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok && s != "" {
				symbols = append(symbols, s)
			}
		}
		if len(symbols) == 0 {
			return nil, errors.Wrap(errors.ErrInvalidInput, "get_current_prices: symbols is required")
		}

		deps.Log.Debugw("tool: get_current_prices", "symbols", symbols)

		prices, err := deps.Market.CurrentPrices(ctx, symbols)
		if err != nil {
			deps.Log.Errorw("tool: get_current_prices failed", "error", err)
			return nil, errors.Wrap(err, "get_current_prices")
		}

		return map[string]interface{}{"prices": prices}, nil
	})
}
