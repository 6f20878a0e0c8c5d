package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/mauv0809/stockboard/internal/market"
	"github.com/mauv0809/stockboard/internal/models"
	"github.com/tidwall/gjson"
)

// FetchProfile returns the company profile from the quoteSummary price and
// assetProfile modules.
func (c *Client) FetchProfile(ctx context.Context, symbol string) (models.CompanyProfile, error) {
	crumb, err := c.sessionCrumb(ctx)
	if err != nil {
		return models.CompanyProfile{}, fmt.Errorf("fetching profile for %s: %w", symbol, err)
	}

	q := url.Values{}
	q.Set("modules", "price,assetProfile")
	q.Set("crumb", crumb)
	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s", c.cfg.SummaryURL, escape(symbol), q.Encode())

	doc, err := c.getJSON(ctx, endpoint, "quoteSummary")
	if err != nil {
		if errors.Is(err, errUnauthorized) {
			// Session expired; the next attempt starts a new one.
			c.resetCrumb()
			err = fmt.Errorf("%w: %w", err, market.ErrTransientFetch)
		}
		return models.CompanyProfile{}, fmt.Errorf("fetching profile for %s: %w", symbol, err)
	}

	result := doc.Get("quoteSummary.result.0")
	if !result.Exists() {
		return models.CompanyProfile{}, fmt.Errorf("no profile for %s: %w", symbol, market.ErrDataUnavailable)
	}
	return parseProfile(symbol, result), nil
}

func parseProfile(symbol string, result gjson.Result) models.CompanyProfile {
	price := result.Get("price")
	name := price.Get("longName").String()
	if name == "" {
		name = price.Get("shortName").String()
	}
	return models.CompanyProfile{
		Symbol:    symbol,
		Name:      name,
		MarketCap: price.Get("marketCap.raw").Int(),
		Sector:    result.Get("assetProfile.sector").String(),
		Industry:  result.Get("assetProfile.industry").String(),
		Currency:  price.Get("currency").String(),
	}
}
