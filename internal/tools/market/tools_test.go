package market

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/tools"
	"hermes/internal/tools/shared"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

type fakeGateway struct {
	gainers  []map[string]interface{}
	analysis map[string]interface{}
	prices   map[string]float64
	err      error

	lastLimit     int
	lastThreshold float64
	lastSymbol    string
}

func (f *fakeGateway) TopGainers(_ context.Context, limit int) ([]map[string]interface{}, error) {
	f.lastLimit = limit
	return f.gainers, f.err
}

func (f *fakeGateway) TopLosers(_ context.Context, limit int) ([]map[string]interface{}, error) {
	f.lastLimit = limit
	return f.gainers, f.err
}

func (f *fakeGateway) StockAnalysis(_ context.Context, symbol string) (map[string]interface{}, error) {
	f.lastSymbol = symbol
	return f.analysis, f.err
}

func (f *fakeGateway) ScanOversold(_ context.Context, threshold float64, limit int) ([]map[string]interface{}, error) {
	f.lastThreshold = threshold
	f.lastLimit = limit
	return f.gainers, f.err
}

func (f *fakeGateway) ScanOverbought(_ context.Context, threshold float64, limit int) ([]map[string]interface{}, error) {
	f.lastThreshold = threshold
	f.lastLimit = limit
	return f.gainers, f.err
}

func (f *fakeGateway) CurrentPrices(_ context.Context, _ []string) (map[string]float64, error) {
	return f.prices, f.err
}

func testDeps(gw *fakeGateway) shared.Deps {
	return shared.Deps{Market: gw, Log: logger.Get()}
}

func TestRegisterAll(t *testing.T) {
	registry := tools.NewRegistry()
	RegisterAll(registry, testDeps(&fakeGateway{}))

	assert.Equal(t, []string{
		"get_top_gainers",
		"get_top_losers",
		"get_stock_analysis",
		"scan_oversold_stocks",
		"scan_overbought_stocks",
		"get_current_prices",
	}, registry.List())
}

func TestTopGainersTool(t *testing.T) {
	gw := &fakeGateway{gainers: []map[string]interface{}{
		{"symbol": "SHEZ", "price": 285.0, "change_percent": 4.2},
	}}
	tool := NewTopGainersTool(testDeps(gw))

	result, err := tool.Execute(context.Background(), map[string]interface{}{"limit": 5.0})
	require.NoError(t, err)
	assert.Equal(t, 5, gw.lastLimit)

	out, ok := result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 1, out["count"])
}

func TestStockAnalysisTool_RequiresSymbol(t *testing.T) {
	tool := NewStockAnalysisTool(testDeps(&fakeGateway{}))

	_, err := tool.Execute(context.Background(), map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestStockAnalysisTool_GatewayError(t *testing.T) {
	gw := &fakeGateway{err: errors.Wrap(errors.ErrUnknownSymbol, "no data for NOPE")}
	tool := NewStockAnalysisTool(testDeps(gw))

	_, err := tool.Execute(context.Background(), map[string]interface{}{"symbol": "NOPE"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownSymbol))
	assert.Equal(t, "NOPE", gw.lastSymbol)
}

func TestScanOversoldTool_Defaults(t *testing.T) {
	gw := &fakeGateway{}
	tool := NewScanOversoldTool(testDeps(gw))

	_, err := tool.Execute(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, 30.0, gw.lastThreshold)
	assert.Equal(t, 10, gw.lastLimit)
}

func TestCurrentPricesTool(t *testing.T) {
	gw := &fakeGateway{prices: map[string]float64{"OGDC": 120.5}}
	tool := NewCurrentPricesTool(testDeps(gw))

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"symbols": []interface{}{"OGDC"},
	})
	require.NoError(t, err)

	out := result.(map[string]interface{})
	assert.Equal(t, map[string]float64{"OGDC": 120.5}, out["prices"])

	_, err = tool.Execute(context.Background(), map[string]interface{}{})
	require.Error(t, err, "missing symbols must be rejected")
}
