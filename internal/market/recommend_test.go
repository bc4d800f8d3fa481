package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_RSIBands(t *testing.T) {
	tests := []struct {
		name      string
		rsi       float64
		wantScore int
		wantTag   string
	}{
		{"deep oversold", 25, 3, "oversold"},
		{"oversold boundary is undervalued", 30, 1, "undervalued"},
		{"undervalued", 35, 1, "undervalued"},
		{"neutral low boundary", 40, 0, ""},
		{"neutral", 50, 0, ""},
		{"neutral high boundary", 60, 0, ""},
		{"overvalued", 65, -1, "overvalued"},
		{"overvalued boundary", 70, -1, "overvalued"},
		{"overbought", 75, -3, "overbought"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Score(Snapshot{Symbol: "OGDC", Price: 100, RSI: Float64Ptr(tt.rsi)})
			assert.Equal(t, tt.wantScore, rec.Score)
			if tt.wantTag == "" {
				assert.Empty(t, rec.Factors)
			} else {
				require.Len(t, rec.Factors, 1)
				assert.Equal(t, tt.wantTag, rec.Factors[0])
			}
		})
	}
}

func TestScore_AbsentRSIContributesNothing(t *testing.T) {
	rec := Score(Snapshot{Symbol: "OGDC", Price: 100})
	assert.Equal(t, 0, rec.Score)
	assert.Empty(t, rec.Factors)

	// Present-but-zero is not absent: RSI 0 is deep oversold territory.
	rec = Score(Snapshot{Symbol: "OGDC", Price: 100, RSI: Float64Ptr(0)})
	assert.Equal(t, 3, rec.Score)
	assert.Contains(t, rec.Factors, "oversold")
}

func TestScore_ChangePercentBands(t *testing.T) {
	tests := []struct {
		name      string
		change    float64
		wantScore int
		wantTag   string
	}{
		{"strong rally", 6, -2, "strong rally"},
		{"rally boundary is momentum", 5, 1, "positive momentum"},
		{"positive momentum", 3, 1, "positive momentum"},
		{"flat positive boundary", 2, 0, ""},
		{"flat", 0, 0, ""},
		{"flat negative boundary", -2, 0, ""},
		{"slight pullback", -3, 1, "slight pullback"},
		{"pullback boundary", -5, 1, "slight pullback"},
		{"big dip", -6, 2, "big dip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Score(Snapshot{Symbol: "PSO", Price: 100, ChangePercent: tt.change})
			assert.Equal(t, tt.wantScore, rec.Score)
			if tt.wantTag != "" {
				assert.Contains(t, rec.Factors, tt.wantTag)
			}
		})
	}
}

func TestScore_Trend(t *testing.T) {
	t.Run("strong uptrend", func(t *testing.T) {
		rec := Score(Snapshot{
			Symbol: "SHEZ", Price: 110,
			SMA20: Float64Ptr(105), EMA50: Float64Ptr(100),
		})
		assert.Equal(t, 2, rec.Score)
		assert.Contains(t, rec.Factors, "strong uptrend")
	})

	t.Run("downtrend", func(t *testing.T) {
		rec := Score(Snapshot{
			Symbol: "SHEZ", Price: 90,
			SMA20: Float64Ptr(95), EMA50: Float64Ptr(100),
		})
		assert.Equal(t, -2, rec.Score)
		assert.Contains(t, rec.Factors, "downtrend")
	})

	t.Run("mixed averages contribute nothing", func(t *testing.T) {
		rec := Score(Snapshot{
			Symbol: "SHEZ", Price: 102,
			SMA20: Float64Ptr(105), EMA50: Float64Ptr(100),
		})
		assert.Equal(t, 0, rec.Score)
	})

	t.Run("missing average skips trend", func(t *testing.T) {
		rec := Score(Snapshot{Symbol: "SHEZ", Price: 110, SMA20: Float64Ptr(105)})
		assert.Equal(t, 0, rec.Score)
	})

	t.Run("zero price skips trend", func(t *testing.T) {
		rec := Score(Snapshot{
			Symbol: "SHEZ",
			SMA20:  Float64Ptr(105), EMA50: Float64Ptr(100),
		})
		assert.Equal(t, 0, rec.Score)
	})
}

func TestScore_Labels(t *testing.T) {
	// oversold +3 with mild positive change
	buy := Score(Snapshot{Symbol: "A", Price: 10, RSI: Float64Ptr(25), ChangePercent: 1})
	assert.Equal(t, LabelBuy, buy.Label)
	assert.Equal(t, 3, buy.Score)
	assert.True(t, len(buy.Reason) > 0)
	assert.Contains(t, buy.Reason, "Good opportunity")

	// overbought -3, strong rally -2
	sell := Score(Snapshot{Symbol: "B", Price: 10, RSI: Float64Ptr(75), ChangePercent: 6})
	assert.Equal(t, LabelSell, sell.Label)
	assert.Equal(t, -5, sell.Score)
	assert.Equal(t, "Take profits - overbought, strong rally", sell.Reason)

	hold := Score(Snapshot{Symbol: "C", Price: 10, ChangePercent: 3})
	assert.Equal(t, LabelHold, hold.Label)
	assert.Equal(t, "Mixed signals - positive momentum", hold.Reason)
}

func TestScore_FallbackReasons(t *testing.T) {
	rec := Score(Snapshot{Symbol: "D", Price: 10})
	assert.Equal(t, LabelHold, rec.Label)
	assert.Equal(t, "Stable, wait and see", rec.Reason)
}

func TestScore_ReasonUsesFirstTwoFactors(t *testing.T) {
	// oversold (+3), big dip (+2), strong uptrend (+2): three factors fire,
	// the reason only names the first two in evaluation order.
	rec := Score(Snapshot{
		Symbol: "E", Price: 110,
		RSI:           Float64Ptr(25),
		ChangePercent: -6,
		SMA20:         Float64Ptr(105), EMA50: Float64Ptr(100),
	})
	assert.Equal(t, 7, rec.Score)
	assert.Equal(t, LabelBuy, rec.Label)
	assert.Equal(t, []string{"oversold", "big dip", "strong uptrend"}, rec.Factors)
	assert.Equal(t, "Good opportunity - oversold, big dip", rec.Reason)
}

func TestScore_Pure(t *testing.T) {
	snap := Snapshot{
		Symbol: "OGDC", Price: 120.5, ChangePercent: -3.2,
		RSI: Float64Ptr(28.4), SMA20: Float64Ptr(121), EMA50: Float64Ptr(125),
	}

	first := Score(snap)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Score(snap))
	}
}
