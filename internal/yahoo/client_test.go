package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mauv0809/stockboard/internal/market"
	"github.com/mauv0809/stockboard/internal/models"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	chartJSON = `{"chart":{"result":[{"meta":{"symbol":"AAPL","gmtoffset":-14400},
		"timestamp":[1725283800,1725888600,1726493400,1726689600],
		"indicators":{"quote":[{
			"open":[10,null,20,20],"high":[12,null,22,23],"low":[9,null,19,18],
			"close":[11,null,21,22],"volume":[100,null,300,400]}]}}],"error":null}}`
	chartNotFoundJSON = `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`
	summaryJSON       = `{"quoteSummary":{"result":[{
		"price":{"longName":"Apple Inc.","shortName":"Apple","currency":"USD","marketCap":{"raw":3512000000000,"fmt":"3.51T"}},
		"assetProfile":{"sector":"Technology","industry":"Consumer Electronics"}}],"error":null}}`
	timeseriesJSON = `{"timeseries":{"result":[
		{"meta":{"symbol":["AAPL"],"type":["quarterlyTotalRevenue"]},"timestamp":[1719705600,1727654400],
		 "quarterlyTotalRevenue":[
			{"asOfDate":"2024-09-30","periodType":"3M","reportedValue":{"raw":94930000000,"fmt":"94.93B"}},
			{"asOfDate":"2024-06-30","periodType":"3M","reportedValue":{"raw":85777000000,"fmt":"85.78B"}}]},
		{"meta":{"symbol":["AAPL"],"type":["quarterlyNetIncome"]},"timestamp":[1719705600],
		 "quarterlyNetIncome":[null,{"asOfDate":"2024-06-30","periodType":"3M","reportedValue":{"raw":21448000000,"fmt":"21.45B"}}]}
	],"error":null}}`
	emptyTimeseriesJSON = `{"timeseries":{"result":[{"meta":{"symbol":["ZZZZ"],"type":["annualTotalRevenue"]}}],"error":null}}`
)

type stub struct {
	t            *testing.T
	crumbs       atomic.Int32
	rejectCrumbs atomic.Int32
}

func (s *stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/cookie":
		http.SetCookie(w, &http.Cookie{Name: "A3", Value: "session", Path: "/"})
		w.WriteHeader(http.StatusNotFound)
	case "/v1/test/getcrumb":
		if _, err := r.Cookie("A3"); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.crumbs.Add(1)
		_, _ = w.Write([]byte("crumb123"))
	case "/v10/finance/quoteSummary/AAPL":
		assert.Equal(s.t, "crumb123", r.URL.Query().Get("crumb"))
		if s.rejectCrumbs.Load() > 0 {
			s.rejectCrumbs.Add(-1)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"finance":{"result":null,"error":{"code":"Unauthorized","description":"Invalid Crumb"}}}`))
			return
		}
		_, _ = w.Write([]byte(summaryJSON))
	case "/v8/finance/chart/AAPL":
		assert.Equal(s.t, "1wk", r.URL.Query().Get("interval"))
		assert.Equal(s.t, "1y", r.URL.Query().Get("range"))
		_, _ = w.Write([]byte(chartJSON))
	case "/v8/finance/chart/ZZZZ":
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(chartNotFoundJSON))
	case "/v8/finance/chart/BUSY":
		w.WriteHeader(http.StatusTooManyRequests)
	case "/ws/fundamentals-timeseries/v1/finance/timeseries/AAPL":
		assert.Equal(s.t, "quarterlyTotalRevenue,quarterlyNetIncome", r.URL.Query().Get("type"))
		assert.Equal(s.t, "1727654400", r.URL.Query().Get("period2"))
		_, _ = w.Write([]byte(timeseriesJSON))
	case "/ws/fundamentals-timeseries/v1/finance/timeseries/ZZZZ":
		_, _ = w.Write([]byte(emptyTimeseriesJSON))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T) (*Client, *stub) {
	t.Helper()
	s := &stub{t: t}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		BaseURL:    srv.URL,
		SummaryURL: srv.URL,
		CookieURL:  srv.URL + "/cookie",
		Timeout:    5 * time.Second,
	}, zerolog.Nop())
	assert.NoError(t, err)
	c.now = func() time.Time { return time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC) }
	return c, s
}

func TestFetchPriceHistory(t *testing.T) {
	c, _ := newTestClient(t)

	h, err := c.FetchPriceHistory(context.Background(), "AAPL")
	assert.NoError(t, err)
	assert.NoError(t, h.Validate())
	assert.Equal(t, 2, len(h.Bars))

	// Null bars are skipped.
	assert.Equal(t, time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC), h.Bars[0].Date)
	assert.Equal(t, int64(100), h.Bars[0].Volume)

	// The live row folds into its week, keeping the week's first date.
	last := h.Bars[1]
	assert.Equal(t, time.Date(2024, 9, 16, 0, 0, 0, 0, time.UTC), last.Date)
	assert.Equal(t, 23.0, last.High)
	assert.Equal(t, 22.0, last.Close)
	assert.Equal(t, int64(400), last.Volume)
}

func TestFetchPriceHistoryErrors(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.FetchPriceHistory(context.Background(), "ZZZZ")
	assert.True(t, market.IsUnavailable(err))

	_, err = c.FetchPriceHistory(context.Background(), "BUSY")
	assert.True(t, market.IsRetryable(err))
}

func TestFetchProfile(t *testing.T) {
	c, s := newTestClient(t)

	p, err := c.FetchProfile(context.Background(), "AAPL")
	assert.NoError(t, err)
	assert.Equal(t, models.CompanyProfile{
		Symbol:    "AAPL",
		Name:      "Apple Inc.",
		MarketCap: 3512000000000,
		Sector:    "Technology",
		Industry:  "Consumer Electronics",
		Currency:  "USD",
	}, p)

	// The crumb is reused across calls.
	_, err = c.FetchProfile(context.Background(), "AAPL")
	assert.NoError(t, err)
	assert.Equal(t, int32(1), s.crumbs.Load())
}

func TestFetchProfileExpiredCrumb(t *testing.T) {
	c, s := newTestClient(t)
	s.rejectCrumbs.Store(1)

	_, err := c.FetchProfile(context.Background(), "AAPL")
	assert.True(t, market.IsRetryable(err))

	// A retry starts a new session and succeeds.
	p, err := c.FetchProfile(context.Background(), "AAPL")
	assert.NoError(t, err)
	assert.Equal(t, "Apple Inc.", p.Name)
	assert.Equal(t, int32(2), s.crumbs.Load())
}

func TestFetchQuarterlyFinancials(t *testing.T) {
	c, _ := newTestClient(t)

	st, err := c.FetchQuarterlyFinancials(context.Background(), "AAPL")
	assert.NoError(t, err)
	assert.Equal(t, models.Quarterly, st.Granularity)
	assert.Equal(t, 2, len(st.Rows))

	first, second := st.Rows[0], st.Rows[1]
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), first.Period)
	assert.Equal(t, 85777000000.0, *first.TotalRevenue)
	assert.Equal(t, 21448000000.0, *first.NetIncome)

	// Net income has not been reported for the latest quarter.
	assert.Equal(t, 94930000000.0, *second.TotalRevenue)
	assert.True(t, second.NetIncome == nil)
}

func TestFetchAnnualFinancialsEmpty(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.FetchAnnualFinancials(context.Background(), "ZZZZ")
	assert.True(t, market.IsUnavailable(err))
}

func TestParseChartMergesLiveRow(t *testing.T) {
	doc := gjson.Parse(`{"meta":{"gmtoffset":-14400},
		"timestamp":[1726493400,1726689600],
		"indicators":{"quote":[{
			"open":[20,21],"high":[22,23],"low":[17,18],
			"close":[21,22],"volume":[300,400]}]}}`)

	bars := parseChart(doc)
	want := []models.PriceBar{{
		Date:   time.Date(2024, 9, 16, 0, 0, 0, 0, time.UTC),
		Open:   20,
		High:   23,
		Low:    17,
		Close:  22,
		Volume: 400,
	}}
	if diff := cmp.Diff(want, bars); diff != "" {
		t.Errorf("parseChart mismatch (-want +got):\n%s", diff)
	}
}
