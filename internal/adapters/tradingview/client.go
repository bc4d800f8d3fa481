package tradingview

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Scanner column identifiers used by the market gateway.
const (
	ColClose   = "close"
	ColOpen    = "open"
	ColHigh    = "high"
	ColLow     = "low"
	ColVolume  = "volume"
	ColChange  = "change" // percent change over the session
	ColRSI     = "RSI"
	ColSMA20   = "SMA20"
	ColEMA50   = "EMA50"
	ColBBUpper = "BB.upper"
	ColBBLower = "BB.lower"
	ColMACD    = "MACD.macd"
	ColMACDSig = "MACD.signal"
)

// Cache is an optional response cache. The scanner data is stale-tolerant:
// serving a response a few seconds old is acceptable by design.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Client queries the TradingView screener scan endpoint for one market.
type Client struct {
	baseURL  string
	market   string
	client   *http.Client
	limiter  *rate.Limiter
	cache    Cache
	cacheTTL time.Duration
	log      *logger.Logger
}

// Config configures the scanner client.
type Config struct {
	BaseURL   string
	Market    string
	Timeout   time.Duration
	ReqPerMin int
	Cache     Cache // optional
	CacheTTL  time.Duration
}

// NewClient creates a scanner client.
func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://scanner.tradingview.com"
	}
	if cfg.Market == "" {
		cfg.Market = "pakistan"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.ReqPerMin <= 0 {
		cfg.ReqPerMin = 60
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 30 * time.Second
	}

	burst := cfg.ReqPerMin / 10
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL:  cfg.BaseURL,
		market:   cfg.Market,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(float64(cfg.ReqPerMin)/60.0), burst),
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		log:      log.With("component", "tradingview"),
	}
}

// Sort orders scan results by a column.
type Sort struct {
	SortBy    string `json:"sortBy"`
	SortOrder string `json:"sortOrder"` // "asc" or "desc"
}

// Filter restricts scan results, e.g. {Left: "RSI", Operation: "less", Right: 30}.
type Filter struct {
	Left      string      `json:"left"`
	Operation string      `json:"operation"`
	Right     interface{} `json:"right"`
}

// ScanRequest is one scan query against the market.
type ScanRequest struct {
	Columns []string
	Sort    *Sort
	Filters []Filter
	Tickers []string // restrict to specific tickers, e.g. "PSX:SHEZ"
	Limit   int
}

// Row is one instrument row from a scan response. Column values may be null
// when the exchange does not supply an indicator for the instrument.
type Row struct {
	Ticker string
	values map[string]interface{}
}

// NewRow constructs a row from explicit column values. Used by fakes.
func NewRow(ticker string, values map[string]interface{}) Row {
	return Row{Ticker: ticker, values: values}
}

// Float returns the numeric value of a column if present and non-null.
func (r Row) Float(column string) (float64, bool) {
	v, ok := r.values[column].(float64)
	return v, ok
}

// scan endpoint wire format

type scanBody struct {
	Columns []string     `json:"columns"`
	Sort    *Sort        `json:"sort,omitempty"`
	Filter  []Filter     `json:"filter,omitempty"`
	Symbols *scanSymbols `json:"symbols,omitempty"`
	Range   [2]int       `json:"range"`
}

type scanSymbols struct {
	Tickers []string `json:"tickers"`
}

type scanResponse struct {
	TotalCount int `json:"totalCount"`
	Data       []struct {
		S string        `json:"s"`
		D []interface{} `json:"d"`
	} `json:"data"`
}

// Scan executes a scan query and returns the matching rows.
func (c *Client) Scan(ctx context.Context, req ScanRequest) ([]Row, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	body := scanBody{
		Columns: req.Columns,
		Sort:    req.Sort,
		Filter:  req.Filters,
		Range:   [2]int{0, limit},
	}
	if len(req.Tickers) > 0 {
		body.Symbols = &scanSymbols{Tickers: req.Tickers}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "marshal scan request")
	}

	key := c.cacheKey(payload)
	if c.cache != nil {
		var cached scanResponse
		if err := c.cache.Get(ctx, key, &cached); err == nil {
			c.log.Debugw("scan cache hit", "key", key)
			return c.toRows(req.Columns, cached), nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "scanner rate limiter")
	}

	url := fmt.Sprintf("%s/%s/scan", c.baseURL, c.market)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "create scan request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "hermes/1.0")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(errors.ErrProviderUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read scan response")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.Wrapf(errors.ErrRateLimitExceeded, "scanner returned 429")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrProviderUnavailable, "scanner returned %d: %s",
			resp.StatusCode, string(respBody))
	}

	var scanResp scanResponse
	if err := json.Unmarshal(respBody, &scanResp); err != nil {
		return nil, errors.Wrap(err, "unmarshal scan response")
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, scanResp, c.cacheTTL); err != nil {
			c.log.Warnw("scan cache write failed", "error", err)
		}
	}

	return c.toRows(req.Columns, scanResp), nil
}

func (c *Client) toRows(columns []string, resp scanResponse) []Row {
	rows := make([]Row, 0, len(resp.Data))
	for _, item := range resp.Data {
		row := Row{
			Ticker: item.S,
			values: make(map[string]interface{}, len(columns)),
		}
		for i, col := range columns {
			if i < len(item.D) {
				row.values[col] = item.D[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func (c *Client) cacheKey(payload []byte) string {
	sum := sha1.Sum(payload)
	return "tvscan:" + c.market + ":" + hex.EncodeToString(sum[:])
}
