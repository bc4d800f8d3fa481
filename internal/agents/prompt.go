package agents

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"hermes/internal/market"
)

// BuildSystemPrompt renders the system prompt for one reasoning round. It is
// rebuilt every round so the timestamp and session status never go stale
// inside a long tool loop.
func BuildSystemPrompt(now time.Time, portfolio []market.PortfolioPosition) string {
	local := market.ExchangeTime(now)
	status := market.SessionAt(now)

	var b strings.Builder
	b.WriteString("You are a portfolio analysis assistant for the Pakistan Stock Exchange (PSX).\n")
	b.WriteString("You help investors understand market movements, evaluate stocks and review their holdings.\n\n")

	fmt.Fprintf(&b, "Current time: %s (PKT)\n", local.Format("Monday, 2 January 2006 15:04"))
	b.WriteString(status.Describe())
	b.WriteString("\n")

	if len(portfolio) > 0 {
		b.WriteString("\nThe user's portfolio:\n")
		for _, pos := range portfolio {
			fmt.Fprintf(&b, "- %s: %s shares bought at %s PKR (cost basis %s PKR)\n",
				pos.Symbol,
				humanize.Comma(pos.Quantity),
				pos.BuyPrice.StringFixed(2),
				humanize.CommafWithDigits(pos.Value().InexactFloat64(), 2))
		}
	}

	b.WriteString(`
Guidelines:
- Use the available tools to fetch real market data before answering. Never invent prices or indicator values.
- When the market is closed, still answer fully using the most recent session's data.
- Quote prices in PKR. Be specific: name symbols, prices and the indicator values behind your reasoning.
- Recommendations in the data (BUY/SELL/HOLD with a score) come from a deterministic scoring model; explain them, do not contradict them.
- Keep answers concise and factual. If a symbol is unknown, say so instead of guessing.`)

	return b.String()
}
