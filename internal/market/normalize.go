package market

import (
	"strings"
)

// Normalize converts a raw provider payload into a StockRecord, or nil when
// the payload is structurally unusable (missing symbol, non-numeric price).
// It accepts two shapes:
//
//   - the detailed analysis payload, which nests values under "price_data"
//     and "technical_indicators";
//   - the flat scan payload from gainer/loser/RSI endpoints, where the price
//     may be named "price" or "close" and the percent change
//     "change_percent" or "change".
//
// Normalization never raises past this boundary: callers drop nil records.
func Normalize(raw map[string]interface{}) *StockRecord {
	if raw == nil {
		return nil
	}

	symbol, ok := stringField(raw, "symbol")
	if !ok || symbol == "" {
		return nil
	}
	symbol = StripMarketPrefix(symbol)

	var snap Snapshot
	snap.Symbol = symbol

	if priceData, ok := raw["price_data"].(map[string]interface{}); ok {
		// Detailed shape.
		price, ok := floatField(priceData, "current_price", "price", "close")
		if !ok {
			return nil
		}
		snap.Price = price

		if cp, ok := floatField(priceData, "change_percent"); ok {
			snap.ChangePercent = cp
		}
		if open, ok := floatField(priceData, "open"); ok {
			snap.Change = price - open
		}
		if vol, ok := floatField(priceData, "volume"); ok {
			snap.Volume = Int64Ptr(int64(vol))
		}

		if ind, ok := raw["technical_indicators"].(map[string]interface{}); ok {
			if rsi, ok := floatField(ind, "rsi"); ok {
				snap.RSI = Float64Ptr(rsi)
			}
			if sma, ok := floatField(ind, "sma20"); ok {
				snap.SMA20 = Float64Ptr(sma)
			}
			if ema, ok := floatField(ind, "ema50"); ok {
				snap.EMA50 = Float64Ptr(ema)
			}
		}
	} else {
		// Flat scan shape.
		price, ok := floatField(raw, "price", "close")
		if !ok {
			return nil
		}
		snap.Price = price

		// The scan endpoints report "change" as a percentage, not a price
		// delta; the absolute change is derived from the open when present.
		if cp, ok := floatField(raw, "change_percent", "change"); ok {
			snap.ChangePercent = cp
		}
		if open, ok := floatField(raw, "open"); ok {
			snap.Change = price - open
		}
		if rsi, ok := floatField(raw, "rsi"); ok {
			snap.RSI = Float64Ptr(rsi)
		}
		if vol, ok := floatField(raw, "volume"); ok {
			snap.Volume = Int64Ptr(int64(vol))
		}
		if sma, ok := floatField(raw, "sma20"); ok {
			snap.SMA20 = Float64Ptr(sma)
		}
		if ema, ok := floatField(raw, "ema50"); ok {
			snap.EMA50 = Float64Ptr(ema)
		}
	}

	return &StockRecord{
		Snapshot:       snap,
		Recommendation: Score(snap),
	}
}

// StripMarketPrefix removes an exchange qualifier such as "PSX:" from a
// ticker, leaving the bare symbol.
func StripMarketPrefix(symbol string) string {
	if i := strings.IndexByte(symbol, ':'); i >= 0 {
		return symbol[i+1:]
	}
	return symbol
}

func stringField(m map[string]interface{}, keys ...string) (string, bool) {
	for _, key := range keys {
		if s, ok := m[key].(string); ok {
			return s, true
		}
	}
	return "", false
}

// floatField returns the first numeric value found under the given keys.
// JSON decoding yields float64, but tool handlers also build these maps
// directly with int values.
func floatField(m map[string]interface{}, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch v := m[key].(type) {
		case float64:
			return v, true
		case float32:
			return float64(v), true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		}
	}
	return 0, false
}
