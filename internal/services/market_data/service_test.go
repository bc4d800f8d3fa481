package market_data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/adapters/tradingview"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

type fakeScanner struct {
	lastReq tradingview.ScanRequest
	rows    []tradingview.Row
	err     error
}

func (f *fakeScanner) Scan(_ context.Context, req tradingview.ScanRequest) ([]tradingview.Row, error) {
	f.lastReq = req
	return f.rows, f.err
}

func newService(rows []tradingview.Row, err error) (*Service, *fakeScanner) {
	scanner := &fakeScanner{rows: rows, err: err}
	return NewService(scanner, logger.Get()), scanner
}

func TestTopGainers(t *testing.T) {
	svc, scanner := newService([]tradingview.Row{
		tradingview.NewRow("PSX:SHEZ", map[string]interface{}{
			"close": 285.0, "change": 4.217, "volume": 120000.0, "RSI": 61.337,
		}),
		tradingview.NewRow("PSX:OGDC", map[string]interface{}{
			"close": 120.5, "change": 2.1,
		}),
	}, nil)

	records, err := svc.TopGainers(context.Background(), 5)
	require.NoError(t, err)

	require.NotNil(t, scanner.lastReq.Sort)
	assert.Equal(t, "change", scanner.lastReq.Sort.SortBy)
	assert.Equal(t, "desc", scanner.lastReq.Sort.SortOrder)
	assert.Equal(t, 5, scanner.lastReq.Limit)

	require.Len(t, records, 2)
	assert.Equal(t, "SHEZ", records[0]["symbol"])
	assert.Equal(t, 285.0, records[0]["price"])
	assert.Equal(t, 4.22, records[0]["change_percent"])
	assert.Equal(t, int64(120000), records[0]["volume"])
	assert.Equal(t, 61.34, records[0]["rsi"])

	// Indicators the scanner did not supply stay absent from the record.
	_, hasRSI := records[1]["rsi"]
	assert.False(t, hasRSI)
}

func TestTopLosers_SortOrder(t *testing.T) {
	svc, scanner := newService(nil, nil)

	_, err := svc.TopLosers(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, "asc", scanner.lastReq.Sort.SortOrder)
	assert.Equal(t, 10, scanner.lastReq.Limit, "zero limit falls back to default")
}

func TestTopGainers_DropsRowsWithoutPrice(t *testing.T) {
	svc, _ := newService([]tradingview.Row{
		tradingview.NewRow("PSX:HALT", map[string]interface{}{"change": 1.0}),
	}, nil)

	records, err := svc.TopGainers(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestScanOversold(t *testing.T) {
	svc, scanner := newService([]tradingview.Row{
		tradingview.NewRow("PSX:FFC", map[string]interface{}{
			"close": 98.0, "change": -1.2, "RSI": 24.5,
		}),
	}, nil)

	records, err := svc.ScanOversold(context.Background(), 0, 10)
	require.NoError(t, err)

	require.Len(t, scanner.lastReq.Filters, 1)
	assert.Equal(t, tradingview.Filter{Left: "RSI", Operation: "less", Right: 30.0}, scanner.lastReq.Filters[0])
	assert.Equal(t, "asc", scanner.lastReq.Sort.SortOrder)

	require.Len(t, records, 1)
	assert.Equal(t, 24.5, records[0]["rsi"])
}

func TestScanOverbought_CustomThreshold(t *testing.T) {
	svc, scanner := newService(nil, nil)

	_, err := svc.ScanOverbought(context.Background(), 75, 5)
	require.NoError(t, err)

	require.Len(t, scanner.lastReq.Filters, 1)
	assert.Equal(t, tradingview.Filter{Left: "RSI", Operation: "greater", Right: 75.0}, scanner.lastReq.Filters[0])
	assert.Equal(t, "desc", scanner.lastReq.Sort.SortOrder)
}

func TestStockAnalysis(t *testing.T) {
	svc, scanner := newService([]tradingview.Row{
		tradingview.NewRow("PSX:SHEZ", map[string]interface{}{
			"close": 285.0, "open": 280.0, "high": 287.5, "low": 279.0,
			"volume": 50000.0, "change": 2.5,
			"RSI": 55.0, "SMA20": 278.0, "EMA50": 270.0,
			"BB.upper": 290.0, "BB.lower": 268.0,
			"MACD.macd": 1.25, "MACD.signal": 0.8,
		}),
	}, nil)

	record, err := svc.StockAnalysis(context.Background(), "psx:shez ")
	require.NoError(t, err)

	assert.Equal(t, []string{"PSX:SHEZ"}, scanner.lastReq.Tickers)
	assert.Equal(t, "SHEZ", record["symbol"])
	assert.Equal(t, "Bullish", record["overall_signal"])

	priceData, ok := record["price_data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 285.0, priceData["current_price"])
	assert.Equal(t, 2.5, priceData["change_percent"])

	indicators, ok := record["technical_indicators"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Neutral", indicators["rsi_signal"])
	assert.Equal(t, "Within Bands", indicators["bb_signal"])
	assert.Equal(t, 1.25, indicators["macd"])
}

func TestStockAnalysis_UnknownSymbol(t *testing.T) {
	svc, _ := newService(nil, nil)

	_, err := svc.StockAnalysis(context.Background(), "NOPE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownSymbol))
}

func TestStockAnalysis_EmptySymbol(t *testing.T) {
	svc, _ := newService(nil, nil)

	_, err := svc.StockAnalysis(context.Background(), "  ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestCurrentPrices(t *testing.T) {
	svc, scanner := newService([]tradingview.Row{
		tradingview.NewRow("PSX:OGDC", map[string]interface{}{"close": 120.5}),
		tradingview.NewRow("PSX:PSO", map[string]interface{}{"close": 155.0}),
	}, nil)

	prices, err := svc.CurrentPrices(context.Background(), []string{"ogdc", "PSO", ""})
	require.NoError(t, err)

	assert.Equal(t, []string{"PSX:OGDC", "PSX:PSO"}, scanner.lastReq.Tickers)
	assert.Equal(t, map[string]float64{"OGDC": 120.5, "PSO": 155.0}, prices)
}
