// Package views renders the dashboard page as templ components.
package views

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/a-h/templ"
	"github.com/mauv0809/stockboard/internal/dashboard"
	"github.com/mauv0809/stockboard/internal/models"
)

// Section descriptions shown above each chart.
var (
	PriceDescription = []string{
		"Weekly record of the stock's prices, including:",
		"Open: the price at the start of the week.",
		"Close: the price at the end of the week.",
		"High: the highest price reached during the week.",
		"Low: the lowest price recorded during the week.",
		"Volume: the total number of shares traded during the week.",
		"This history supports technical and fundamental analysis, helping investors spot market trends and time buy or sell decisions.",
	}
	RevenueDescription   = "Total Revenue: the gross amount the company earns from its operations, including sales of products and services, before any cost or expense is deducted."
	NetIncomeDescription = "Net Income: what remains after the company deducts all its expenses from total revenue, including operating costs, taxes and interest. It is the actual profit for the period and a key indicator of profitability."
)

// PageData is what the dashboard page needs besides the view itself.
type PageData struct {
	View     *dashboard.View
	Variants []dashboard.Variant
	// Path is the page's own route, used as the form action and for the period links.
	Path string
}

// Page renders the full dashboard page.
func Page(d PageData) templ.Component {
	charts := make(map[string]Chart)
	for _, c := range Charts(d.View) {
		charts[c.ID] = c
	}
	body := templ.Join(
		navigation(d),
		symbolForm(d),
		Header(d.View),
		Notices(d.View.Notices),
		priceSection(charts["price-chart"]),
		financialSection(d, charts["revenue-chart"], charts["net-income-chart"]),
	)
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return layout(d.View).Render(templ.WithChildren(ctx, body), w)
	})
}

// layout wraps its children in the document shell and loads the chart library.
func layout(v *dashboard.View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		children := templ.GetChildren(ctx)
		ctx = templ.ClearChildren(ctx)

		title := pageTitle(v)
		p := &printer{w: w}
		p.printf(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		p.printf(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		p.printf(`<title>%s</title>`, esc(title))
		p.printf(`<link rel="stylesheet" href="/assets/app.css">`)
		for _, src := range libraryScripts(v.ChartLibrary) {
			p.printf(`<script src="%s"></script>`, esc(src))
		}
		p.printf(`</head><body data-chart-library="%s"><main><h1>%s</h1>`, esc(v.ChartLibrary), esc(title))
		if p.err != nil {
			return p.err
		}
		if err := children.Render(ctx, w); err != nil {
			return err
		}
		p.printf(`</main><script src="/assets/charts.js"></script></body></html>`)
		return p.err
	})
}

// Header renders the profile block: name, market cap and sector.
func Header(v *dashboard.View) templ.Component {
	if v.Header == nil {
		return templ.NopComponent
	}
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.printf(`<header class="profile"><h2>%s</h2>`, esc(v.Header.Name))
		p.printf(`<h3>Market Cap: %s</h3>`, esc(v.Header.MarketCap))
		p.printf(`<h3>Sector: %s</h3></header>`, esc(v.Header.Sector))
		return p.err
	})
}

// Notices renders one alert per failed section.
func Notices(notices []dashboard.Notice) templ.Component {
	alerts := make([]templ.Component, len(notices))
	for i, n := range notices {
		alerts[i] = notice(n)
	}
	return templ.Join(alerts...)
}

func notice(n dashboard.Notice) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="notice notice-%s" role="alert" data-section="%s">%s</div>`,
			esc(string(n.Kind)), esc(n.Section), esc(n.Message))
		return err
	})
}

func priceSection(chart Chart) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.printf(`<section id="prices"><h2>Weekly price history</h2>`)
		p.printf(`<p>%s</p><ul>`, esc(PriceDescription[0]))
		for _, line := range PriceDescription[1 : len(PriceDescription)-1] {
			p.printf(`<li>%s</li>`, esc(line))
		}
		p.printf(`</ul><p>%s</p>`, esc(PriceDescription[len(PriceDescription)-1]))
		if p.err != nil {
			return p.err
		}
		if err := chartSlot(chart).Render(ctx, w); err != nil {
			return err
		}
		p.printf(`</section>`)
		return p.err
	})
}

func financialSection(d PageData, revenue, netIncome Chart) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.printf(`<section id="financials"><h2>Revenue</h2>`)
		p.printf(`<p>%s</p><p>%s</p>`, esc(RevenueDescription), esc(NetIncomeDescription))
		if p.err != nil {
			return p.err
		}
		err := templ.Join(periodControl(d), chartSlot(revenue), chartSlot(netIncome)).Render(ctx, w)
		if err != nil {
			return err
		}
		p.printf(`</section>`)
		return p.err
	})
}

func pageTitle(v *dashboard.View) string {
	if v.Title == "" {
		return "Stock Market Dashboard"
	}
	return v.Title
}

func libraryScripts(lib string) []string {
	if lib == dashboard.ChartVegaLite {
		return []string{
			"https://cdn.jsdelivr.net/npm/vega@5",
			"https://cdn.jsdelivr.net/npm/vega-lite@5",
			"https://cdn.jsdelivr.net/npm/vega-embed@6",
		}
	}
	return []string{"https://cdn.plot.ly/plotly-2.35.2.min.js"}
}

func navigation(d PageData) templ.Component {
	if len(d.Variants) < 2 {
		return templ.NopComponent
	}
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.printf(`<nav>`)
		for _, v := range d.Variants {
			class := ""
			if v.Name == d.View.Variant {
				class = ` class="active"`
			}
			p.printf(`<a href="%s"%s>%s</a> `, esc(string(templ.URL("/d/"+url.PathEscape(v.Name)))), class, esc(v.Name))
		}
		p.printf(`</nav>`)
		return p.err
	})
}

func symbolForm(d PageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		v := d.View
		p := &printer{w: w}
		p.printf(`<form method="get" action="%s"><label for="symbol">Stock symbol:</label>`, esc(d.Path))
		p.printf(`<select id="symbol" name="symbol" onchange="this.form.submit()">`)
		for _, s := range v.Symbols {
			selected := ""
			if s == v.Symbol {
				selected = " selected"
			}
			p.printf(`<option value="%s"%s>%s</option>`, esc(s), selected, esc(s))
		}
		p.printf(`</select><input type="hidden" name="period" value="%s">`, esc(v.Period.String()))
		p.printf(`<noscript><button type="submit">Show</button></noscript></form>`)
		return p.err
	})
}

// periodControl renders the Quarterly/Annual segmented control as links.
func periodControl(d PageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		v := d.View
		p := &printer{w: w}
		p.printf(`<nav class="segmented" aria-label="Period">`)
		for _, g := range []models.Granularity{models.Quarterly, models.Annual} {
			q := url.Values{}
			q.Set("symbol", v.Symbol)
			q.Set("period", g.String())
			class := ""
			if g == v.Period {
				class = ` class="active" aria-current="true"`
			}
			label := "Quarterly"
			if g == models.Annual {
				label = "Annual"
			}
			p.printf(`<a href="%s"%s>%s</a>`, esc(d.Path+"?"+q.Encode()), class, label)
		}
		p.printf(`</nav>`)
		return p.err
	})
}

// chartSlot renders the target element and the JSON spec the page script reads.
func chartSlot(c Chart) templ.Component {
	if c.ID == "" {
		return templ.NopComponent
	}
	target := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="chart" id="%s" aria-label="%s"></div>`, esc(c.ID), esc(c.Title))
		return err
	})
	return templ.Join(target, templ.JSONScript("spec-"+c.ID, c.Spec))
}

func esc(s string) string {
	return templ.EscapeString(s)
}

// printer writes formatted HTML and keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
