package market_data

import (
	"context"
	"math"
	"strings"
	"time"

	"hermes/internal/adapters/tradingview"
	"hermes/internal/market"
	"hermes/internal/metrics"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Scanner is the slice of the TradingView client the gateway needs.
type Scanner interface {
	Scan(ctx context.Context, req tradingview.ScanRequest) ([]tradingview.Row, error)
}

// Service is the market data gateway. It turns scanner rows into the raw
// record maps consumed by the agent tools and the HTTP API. All failures
// surface as Go errors; callers decide how to degrade.
type Service struct {
	scanner Scanner
	log     *logger.Logger
}

// NewService creates the market data gateway.
func NewService(scanner Scanner, log *logger.Logger) *Service {
	return &Service{
		scanner: scanner,
		log:     log.With("service", "market_data"),
	}
}

// scan wraps the scanner call with per-operation metrics.
func (s *Service) scan(ctx context.Context, op string, req tradingview.ScanRequest) ([]tradingview.Row, error) {
	started := time.Now()
	rows, err := s.scanner.Scan(ctx, req)
	metrics.GatewayLatency.WithLabelValues(op).Observe(time.Since(started).Seconds())

	status := "success"
	switch {
	case errors.Is(err, errors.ErrRateLimitExceeded):
		status = "rate_limited"
	case err != nil:
		status = "error"
	}
	metrics.GatewayCalls.WithLabelValues(op, status).Inc()
	return rows, err
}

var scanColumns = []string{
	tradingview.ColClose,
	tradingview.ColVolume,
	tradingview.ColChange,
	tradingview.ColRSI,
	tradingview.ColSMA20,
	tradingview.ColEMA50,
}

// TopGainers returns the session's best performers ordered by percent change.
func (s *Service) TopGainers(ctx context.Context, limit int) ([]map[string]interface{}, error) {
	return s.movers(ctx, "desc", limit)
}

// TopLosers returns the session's worst performers.
func (s *Service) TopLosers(ctx context.Context, limit int) ([]map[string]interface{}, error) {
	return s.movers(ctx, "asc", limit)
}

func (s *Service) movers(ctx context.Context, order string, limit int) ([]map[string]interface{}, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.scan(ctx, "movers", tradingview.ScanRequest{
		Columns: scanColumns,
		Sort:    &tradingview.Sort{SortBy: tradingview.ColChange, SortOrder: order},
		Limit:   limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan movers")
	}

	return s.flatRecords(rows), nil
}

// ScanOversold returns symbols whose RSI is below the threshold, most
// oversold first. The default threshold of 30 matches the buy signal band.
func (s *Service) ScanOversold(ctx context.Context, threshold float64, limit int) ([]map[string]interface{}, error) {
	return s.rsiScan(ctx, "less", "asc", threshold, 30, limit)
}

// ScanOverbought returns symbols whose RSI is above the threshold, most
// overbought first.
func (s *Service) ScanOverbought(ctx context.Context, threshold float64, limit int) ([]map[string]interface{}, error) {
	return s.rsiScan(ctx, "greater", "desc", threshold, 70, limit)
}

func (s *Service) rsiScan(ctx context.Context, op, order string, threshold, defaultThreshold float64, limit int) ([]map[string]interface{}, error) {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.scan(ctx, "rsi_scan", tradingview.ScanRequest{
		Columns: scanColumns,
		Sort:    &tradingview.Sort{SortBy: tradingview.ColRSI, SortOrder: order},
		Filters: []tradingview.Filter{
			{Left: tradingview.ColRSI, Operation: op, Right: threshold},
		},
		Limit: limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "rsi scan")
	}

	return s.flatRecords(rows), nil
}

// flatRecords converts scanner rows into the flat record shape. Rows without
// a price are dropped: nothing downstream can use them.
func (s *Service) flatRecords(rows []tradingview.Row) []map[string]interface{} {
	records := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		price, ok := row.Float(tradingview.ColClose)
		if !ok {
			s.log.Debugw("dropping row without price", "ticker", row.Ticker)
			continue
		}

		record := map[string]interface{}{
			"symbol": market.StripMarketPrefix(row.Ticker),
			"price":  price,
		}
		if change, ok := row.Float(tradingview.ColChange); ok {
			record["change_percent"] = round2(change)
		}
		if volume, ok := row.Float(tradingview.ColVolume); ok {
			record["volume"] = int64(volume)
		}
		if rsi, ok := row.Float(tradingview.ColRSI); ok {
			record["rsi"] = round2(rsi)
		}
		if sma, ok := row.Float(tradingview.ColSMA20); ok {
			record["sma20"] = round2(sma)
		}
		if ema, ok := row.Float(tradingview.ColEMA50); ok {
			record["ema50"] = round2(ema)
		}

		records = append(records, record)
	}
	return records
}

var analysisColumns = []string{
	tradingview.ColClose,
	tradingview.ColOpen,
	tradingview.ColHigh,
	tradingview.ColLow,
	tradingview.ColVolume,
	tradingview.ColChange,
	tradingview.ColRSI,
	tradingview.ColSMA20,
	tradingview.ColEMA50,
	tradingview.ColBBUpper,
	tradingview.ColBBLower,
	tradingview.ColMACD,
	tradingview.ColMACDSig,
}

// StockAnalysis returns the detailed record for one symbol: price data,
// technical indicators and derived signals.
func (s *Service) StockAnalysis(ctx context.Context, symbol string) (map[string]interface{}, error) {
	symbol = strings.ToUpper(strings.TrimSpace(market.StripMarketPrefix(symbol)))
	if symbol == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "symbol is required")
	}

	rows, err := s.scan(ctx, "stock_analysis", tradingview.ScanRequest{
		Columns: analysisColumns,
		Tickers: []string{"PSX:" + symbol},
		Limit:   1,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", symbol)
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(errors.ErrUnknownSymbol, "no data for %s", symbol)
	}

	row := rows[0]
	price, ok := row.Float(tradingview.ColClose)
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownSymbol, "no price for %s", symbol)
	}

	priceData := map[string]interface{}{
		"current_price": price,
	}
	if open, ok := row.Float(tradingview.ColOpen); ok {
		priceData["open"] = open
	}
	if high, ok := row.Float(tradingview.ColHigh); ok {
		priceData["high"] = high
	}
	if low, ok := row.Float(tradingview.ColLow); ok {
		priceData["low"] = low
	}
	if volume, ok := row.Float(tradingview.ColVolume); ok {
		priceData["volume"] = int64(volume)
	}

	changePct, hasChange := row.Float(tradingview.ColChange)
	if hasChange {
		priceData["change_percent"] = round2(changePct)
	}

	indicators := map[string]interface{}{}
	rsi, hasRSI := row.Float(tradingview.ColRSI)
	if hasRSI {
		indicators["rsi"] = round2(rsi)
		indicators["rsi_signal"] = rsiSignal(rsi)
	}
	if sma, ok := row.Float(tradingview.ColSMA20); ok {
		indicators["sma20"] = round2(sma)
	}
	if ema, ok := row.Float(tradingview.ColEMA50); ok {
		indicators["ema50"] = round2(ema)
	}
	bbUpper, hasUpper := row.Float(tradingview.ColBBUpper)
	bbLower, hasLower := row.Float(tradingview.ColBBLower)
	if hasUpper && hasLower {
		indicators["bb_upper"] = round2(bbUpper)
		indicators["bb_lower"] = round2(bbLower)
		indicators["bb_signal"] = bbSignal(price, bbUpper, bbLower)
	}
	if macd, ok := row.Float(tradingview.ColMACD); ok {
		indicators["macd"] = round2(macd)
	}
	if sig, ok := row.Float(tradingview.ColMACDSig); ok {
		indicators["macd_signal"] = round2(sig)
	}

	record := map[string]interface{}{
		"symbol":               symbol,
		"price_data":           priceData,
		"technical_indicators": indicators,
	}
	if hasChange {
		record["overall_signal"] = overallSignal(changePct, rsi, hasRSI)
	}

	return record, nil
}

// CurrentPrices returns the latest price for each of the given symbols.
// Unknown symbols are simply absent from the result.
func (s *Service) CurrentPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	tickers := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(market.StripMarketPrefix(sym)))
		if sym == "" {
			continue
		}
		tickers = append(tickers, "PSX:"+sym)
	}

	rows, err := s.scan(ctx, "current_prices", tradingview.ScanRequest{
		Columns: []string{tradingview.ColClose},
		Tickers: tickers,
		Limit:   len(tickers),
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan prices")
	}

	prices := make(map[string]float64, len(rows))
	for _, row := range rows {
		if price, ok := row.Float(tradingview.ColClose); ok {
			prices[market.StripMarketPrefix(row.Ticker)] = price
		}
	}
	return prices, nil
}

func rsiSignal(rsi float64) string {
	switch {
	case rsi > 70:
		return "Overbought"
	case rsi < 30:
		return "Oversold"
	default:
		return "Neutral"
	}
}

func bbSignal(price, upper, lower float64) string {
	switch {
	case price > upper:
		return "Above Upper Band"
	case price < lower:
		return "Below Lower Band"
	default:
		return "Within Bands"
	}
}

func overallSignal(changePct, rsi float64, hasRSI bool) string {
	switch {
	case changePct > 2 && (!hasRSI || rsi < 70):
		return "Bullish"
	case changePct < -2:
		return "Bearish"
	default:
		return "Neutral"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
