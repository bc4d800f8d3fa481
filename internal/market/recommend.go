package market

import (
	"strings"
)

// Reason prefixes and fallbacks per label.
const (
	buyPrefix  = "Good opportunity - "
	sellPrefix = "Take profits - "
	holdPrefix = "Mixed signals - "

	buyFallback  = "Good value"
	sellFallback = "Overpriced"
	holdFallback = "Stable, wait and see"
)

// Score converts a snapshot into a recommendation. Pure and deterministic:
// the same snapshot always yields the same recommendation.
//
// Each indicator contributes points and a short tag; the total is thresholded
// into BUY (>= 3), SELL (<= -3) or HOLD. Factors are collected in evaluation
// order: RSI, change percent, trend.
func Score(s Snapshot) Recommendation {
	score := 0
	var factors []string

	add := func(points int, tag string) {
		score += points
		factors = append(factors, tag)
	}

	// RSI bands. An absent RSI contributes nothing at all.
	if s.RSI != nil {
		switch rsi := *s.RSI; {
		case rsi < 30:
			add(3, "oversold")
		case rsi < 40:
			add(1, "undervalued")
		case rsi > 70:
			add(-3, "overbought")
		case rsi > 60:
			add(-1, "overvalued")
		}
	}

	// Change percent. A sharp rally is a fade, a dip is an entry.
	switch c := s.ChangePercent; {
	case c > 5:
		add(-2, "strong rally")
	case c > 2:
		add(1, "positive momentum")
	case c < -5:
		add(2, "big dip")
	case c < -2:
		add(1, "slight pullback")
	}

	// Trend alignment needs both moving averages and a real price.
	if s.SMA20 != nil && s.EMA50 != nil && s.Price > 0 {
		switch {
		case s.Price > *s.SMA20 && *s.SMA20 > *s.EMA50:
			add(2, "strong uptrend")
		case s.Price < *s.SMA20 && *s.SMA20 < *s.EMA50:
			add(-2, "downtrend")
		}
	}

	var label Label
	switch {
	case score >= 3:
		label = LabelBuy
	case score <= -3:
		label = LabelSell
	default:
		label = LabelHold
	}

	return Recommendation{
		Label:   label,
		Score:   score,
		Reason:  reason(label, factors),
		Factors: factors,
	}
}

// reason builds the human-readable justification from the first two
// contributing factors, or a label-specific fallback when nothing fired.
func reason(label Label, factors []string) string {
	if len(factors) == 0 {
		switch label {
		case LabelBuy:
			return buyFallback
		case LabelSell:
			return sellFallback
		default:
			return holdFallback
		}
	}

	if len(factors) > 2 {
		factors = factors[:2]
	}
	joined := strings.Join(factors, ", ")

	switch label {
	case LabelBuy:
		return buyPrefix + joined
	case LabelSell:
		return sellPrefix + joined
	default:
		return holdPrefix + joined
	}
}
