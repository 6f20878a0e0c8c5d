// Package sharadar reads company, price and fundamentals tables from the
// Nasdaq Data Link Tables API and serves them as a market.Provider.
package sharadar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mauv0809/stockboard/internal/market"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://data.nasdaq.com/api/v3/datatables"
	defaultTimeout   = 60 * time.Second
	defaultRateLimit = 2 // requests per second (conservative for authenticated users)
)

// Config configures the Nasdaq Data Link client.
type Config struct {
	APIKey    string
	BaseURL   string
	RateLimit float64 // requests per second
	Timeout   time.Duration
	Proxy     string
}

// Client is a rate-limited client for Nasdaq Data Link Tables API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// NewClient creates a new Sharadar API client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: market.NewHTTPClient(cfg.Timeout, cfg.Proxy),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		log:        log.With().Str("provider", "sharadar").Logger(),
	}
}

// FetchTable returns every row of table matching params, following
// next_cursor_id until the last page.
func (c *Client) FetchTable(ctx context.Context, table string, params map[string]string) (*Response, error) {
	out := &Response{}
	cursor := ""
	for page := 1; ; page++ {
		resp, err := c.fetchPage(ctx, table, params, cursor)
		if err != nil {
			return nil, err
		}
		if out.Datatable.Columns == nil {
			out.Datatable.Columns = resp.Datatable.Columns
		}
		out.Datatable.Data = append(out.Datatable.Data, resp.Datatable.Data...)

		if resp.Meta.NextCursorID == nil || *resp.Meta.NextCursorID == "" {
			return out, nil
		}
		cursor = *resp.Meta.NextCursorID
		c.log.Debug().Str("table", table).Int("page", page+1).Int("rows", len(out.Datatable.Data)).Msg("following cursor")
	}
}

// fetchPage waits for the limiter and fetches one page. Retrying is left to
// the caller.
func (c *Client) fetchPage(ctx context.Context, table string, params map[string]string, cursor string) (*Response, error) {
	u, err := url.Parse(c.baseURL + "/" + table + ".json")
	if err != nil {
		return nil, fmt.Errorf("sharadar: table %q: %w", table, err)
	}

	q := url.Values{"api_key": {c.apiKey}}
	for k, v := range params {
		q.Set(k, v)
	}
	if cursor != "" {
		q.Set("qopts.cursor_id", cursor)
	}
	u.RawQuery = q.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("sharadar: rate limiter: %w", err)
	}

	return c.doRequest(ctx, u.String())
}

func (c *Client) doRequest(ctx context.Context, urlStr string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, market.TransportError("sharadar", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, market.TransportError("sharadar: reading response", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, market.StatusError("sharadar", httpResp.StatusCode, body)
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("sharadar: parsing response: %w", err)
	}

	return &resp, nil
}

// FetchTickers fetches SF1 coverage rows from SHARADAR/TICKERS.
func (c *Client) FetchTickers(ctx context.Context, tickers []string) ([]TickerRow, error) {
	params := map[string]string{
		"table": "SF1",
	}
	if len(tickers) > 0 {
		params["ticker"] = strings.Join(tickers, ",")
	}

	resp, err := c.FetchTable(ctx, "SHARADAR/TICKERS", params)
	if err != nil {
		return nil, fmt.Errorf("fetching tickers: %w", err)
	}
	return ParseTickers(resp), nil
}

// FetchSF1 fetches fundamentals of one dimension from SHARADAR/SF1.
func (c *Client) FetchSF1(ctx context.Context, tickers []string, dimension string) ([]SF1Row, error) {
	params := map[string]string{
		"qopts.columns": "ticker,dimension,calendardate,datekey,reportperiod,revenue,netinc",
	}
	if len(tickers) > 0 {
		params["ticker"] = strings.Join(tickers, ",")
	}
	if dimension != "" {
		params["dimension"] = dimension
	}

	resp, err := c.FetchTable(ctx, "SHARADAR/SF1", params)
	if err != nil {
		return nil, fmt.Errorf("fetching SF1: %w", err)
	}
	return ParseSF1(resp), nil
}

// FetchPrices fetches daily OHLCV rows from SHARADAR/SEP on or after from.
func (c *Client) FetchPrices(ctx context.Context, tickers []string, from time.Time) ([]DailyRow, error) {
	return c.fetchDated(ctx, "SHARADAR/SEP", tickers, from)
}

// FetchDaily fetches daily metrics (market cap) from SHARADAR/DAILY on or after from.
func (c *Client) FetchDaily(ctx context.Context, tickers []string, from time.Time) ([]DailyRow, error) {
	return c.fetchDated(ctx, "SHARADAR/DAILY", tickers, from)
}

// fetchDated queries a per-day table. tickers is required (at least one ticker).
func (c *Client) fetchDated(ctx context.Context, table string, tickers []string, from time.Time) ([]DailyRow, error) {
	if len(tickers) == 0 {
		return nil, fmt.Errorf("at least one ticker required for %s fetch", table)
	}

	params := map[string]string{
		"ticker": strings.Join(tickers, ","),
	}
	if !from.IsZero() {
		params["date.gte"] = from.Format(time.DateOnly)
	}

	resp, err := c.FetchTable(ctx, table, params)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", table, err)
	}
	return ParseDaily(resp), nil
}
