package agents

import (
	"encoding/json"
	"strings"
	"time"

	"hermes/internal/adapters/ai"
	"hermes/internal/market"
)

// FallbackAnswer is returned when the loop produced no usable assistant text.
const FallbackAnswer = "I couldn't process that request."

// Response is the assembled result of one query.
type Response struct {
	ID        string               `json:"query_id,omitempty"`
	Text      string               `json:"response"`
	Stocks    []market.StockRecord `json:"stocks,omitempty"`
	Rounds    int                  `json:"rounds"`
	Usage     ai.Usage             `json:"-"`
	Timestamp time.Time            `json:"timestamp"`
}

// Assemble builds the final response from a conversation trace. The answer
// text is the last non-empty assistant message; every stock record seen in
// tool results is normalized, deduplicated (first mention wins) and capped
// at maxStocks.
func Assemble(conv *Conversation, maxStocks int) Response {
	if maxStocks <= 0 {
		maxStocks = 10
	}

	resp := Response{
		Text:      FallbackAnswer,
		Timestamp: time.Now().UTC(),
	}

	history := conv.History()
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg.Role == ai.RoleAssistant && strings.TrimSpace(msg.Content) != "" {
			resp.Text = strings.TrimSpace(msg.Content)
			break
		}
	}

	seen := make(map[string]bool)
	for _, msg := range history {
		if msg.Role != ai.RoleTool {
			continue
		}
		for _, raw := range extractRawStocks(msg.Content) {
			record := market.Normalize(raw)
			if record == nil {
				continue
			}
			key := strings.ToUpper(record.Symbol)
			if seen[key] {
				continue
			}
			seen[key] = true
			resp.Stocks = append(resp.Stocks, *record)
			if len(resp.Stocks) >= maxStocks {
				return resp
			}
		}
	}

	return resp
}

// extractRawStocks pulls candidate stock maps out of one tool result. Tool
// results carry either a "stocks" list or a single record with a "symbol".
// Anything else (prices maps, error records) yields nothing.
func extractRawStocks(content string) []map[string]interface{} {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil
	}

	if list, ok := payload["stocks"].([]interface{}); ok {
		out := make([]map[string]interface{}, 0, len(list))
		for _, item := range list {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
		return out
	}

	if _, ok := payload["symbol"]; ok {
		return []map[string]interface{}{payload}
	}

	return nil
}
