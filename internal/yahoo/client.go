// Package yahoo implements market.Provider on the public Yahoo Finance endpoints.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mauv0809/stockboard/internal/market"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/net/publicsuffix"
)

// errUnauthorized is returned for 401 responses, which Yahoo sends when the
// session crumb has expired.
var errUnauthorized = errors.New("yahoo: unauthorized")

const (
	DefaultBaseURL    = "https://query1.finance.yahoo.com"
	DefaultSummaryURL = "https://query2.finance.yahoo.com"
	DefaultCookieURL  = "https://fc.yahoo.com"

	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config configures the Yahoo client. Empty URLs use the public endpoints.
type Config struct {
	BaseURL    string
	SummaryURL string
	CookieURL  string
	UserAgent  string
	Timeout    time.Duration
	Proxy      string
}

// Client fetches profiles, weekly bars and income statements from Yahoo Finance.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
	now  func() time.Time

	// quoteSummary needs a session cookie plus a matching crumb.
	crumbMtx sync.Mutex
	crumb    string
}

var _ market.Provider = (*Client)(nil)

// NewClient creates a Yahoo Finance client with a cookie jar for the crumb session.
func NewClient(cfg Config, log zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SummaryURL == "" {
		cfg.SummaryURL = DefaultSummaryURL
	}
	if cfg.CookieURL == "" {
		cfg.CookieURL = DefaultCookieURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.SummaryURL = strings.TrimRight(cfg.SummaryURL, "/")

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	httpClient := market.NewHTTPClient(cfg.Timeout, cfg.Proxy)
	httpClient.Jar = jar

	return &Client{
		cfg:  cfg,
		http: httpClient,
		log:  log.With().Str("provider", "yahoo").Logger(),
		now:  time.Now,
	}, nil
}

func (c *Client) Name() string { return "yahoo" }

// get performs a GET and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("yahoo: creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, market.TransportError("yahoo", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, market.TransportError("yahoo: reading body", err)
	}
	return body, resp.StatusCode, nil
}

// getJSON fetches endpoint and parses it, mapping Yahoo's error envelope
// ({"<root>":{"error":{"code":"Not Found"}}}) onto the market error classes.
func (c *Client) getJSON(ctx context.Context, endpoint, root string) (gjson.Result, error) {
	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return gjson.Result{}, err
	}
	c.log.Debug().Str("url", endpoint).Int("status", status).Int("bytes", len(body)).Msg("yahoo response")

	doc := gjson.ParseBytes(body)
	if code := doc.Get(root + ".error.code").String(); code != "" {
		desc := doc.Get(root + ".error.description").String()
		if strings.EqualFold(code, "Not Found") {
			return gjson.Result{}, fmt.Errorf("yahoo: %s: %w", desc, market.ErrDataUnavailable)
		}
		if status == http.StatusOK {
			return gjson.Result{}, fmt.Errorf("yahoo api error %s: %s", code, desc)
		}
	}
	if status == http.StatusUnauthorized {
		return gjson.Result{}, errUnauthorized
	}
	if status != http.StatusOK {
		return gjson.Result{}, market.StatusError("yahoo", status, body)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("yahoo: invalid json from %s", endpoint)
	}
	return doc, nil
}

// sessionCrumb returns the cached crumb, establishing a session first if needed.
func (c *Client) sessionCrumb(ctx context.Context) (string, error) {
	c.crumbMtx.Lock()
	defer c.crumbMtx.Unlock()
	if c.crumb != "" {
		return c.crumb, nil
	}

	// The cookie endpoint answers 404 but still sets the session cookie.
	if _, _, err := c.get(ctx, c.cfg.CookieURL); err != nil {
		return "", err
	}

	body, status, err := c.get(ctx, c.cfg.BaseURL+"/v1/test/getcrumb")
	if err != nil {
		return "", err
	}
	crumb := strings.TrimSpace(string(body))
	if status != http.StatusOK || crumb == "" || strings.Contains(crumb, "<") {
		return "", fmt.Errorf("yahoo: no crumb (status %d): %w", status, market.ErrTransientFetch)
	}
	c.crumb = crumb
	c.log.Debug().Msg("obtained yahoo crumb")
	return crumb, nil
}

// resetCrumb forgets the crumb so the next call starts a new session.
func (c *Client) resetCrumb() {
	c.crumbMtx.Lock()
	c.crumb = ""
	c.crumbMtx.Unlock()
}

func escape(symbol string) string {
	return url.PathEscape(symbol)
}
