package market

import (
	"github.com/shopspring/decimal"
)

// Label is the discrete recommendation for a stock.
type Label string

const (
	LabelBuy  Label = "BUY"
	LabelSell Label = "SELL"
	LabelHold Label = "HOLD"
)

// Snapshot is the canonical view of one symbol at one point in time.
// Indicator fields are pointers: the provider omitting a value is not the
// same as the value being zero, and scoring treats the two differently.
type Snapshot struct {
	Symbol        string   `json:"symbol"`
	Price         float64  `json:"price"`
	Change        float64  `json:"change"`
	ChangePercent float64  `json:"changePercent"`
	RSI           *float64 `json:"rsi,omitempty"`
	Volume        *int64   `json:"volume,omitempty"`
	SMA20         *float64 `json:"sma20,omitempty"`
	EMA50         *float64 `json:"ema50,omitempty"`
}

// Recommendation is derived from a snapshot by Score. It is recomputed on
// every evaluation and never cached: prices move.
type Recommendation struct {
	Label   Label    `json:"label"`
	Score   int      `json:"score"`
	Reason  string   `json:"reason"`
	Factors []string `json:"factors,omitempty"`
}

// StockRecord is the unit returned to callers: a snapshot plus the
// recommendation computed from it.
type StockRecord struct {
	Snapshot
	Recommendation Recommendation `json:"recommendation"`
}

// PortfolioPosition is a single holding supplied by the caller.
type PortfolioPosition struct {
	Symbol   string          `json:"symbol"`
	Quantity int64           `json:"quantity"`
	BuyPrice decimal.Decimal `json:"buy_price"`
}

// Value returns the position's cost basis (quantity * buy price).
func (p PortfolioPosition) Value() decimal.Decimal {
	return p.BuyPrice.Mul(decimal.NewFromInt(p.Quantity))
}

// Alert is a caller-defined trigger that has fired and should be surfaced
// in the portfolio update email.
type Alert struct {
	Symbol    string                 `json:"symbol"`
	AlertType string                 `json:"alert_type"` // price_target, rsi_oversold, rsi_overbought, volume_spike
	Condition map[string]interface{} `json:"condition,omitempty"`
	IsActive  bool                   `json:"is_active"`
}

// Float64Ptr returns a pointer to v. Convenience for building snapshots.
func Float64Ptr(v float64) *float64 { return &v }

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }
