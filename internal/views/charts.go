package views

import (
	"time"

	"github.com/mauv0809/stockboard/internal/dashboard"
	"github.com/mauv0809/stockboard/internal/models"
	"github.com/mauv0809/stockboard/internal/series"
)

const (
	volumeColor    = "rgba(128,128,128,0.5)"
	netIncomeColor = "green"
)

// Chart is one chart slot on the page: a target element and the spec the
// page script hands to the chart library.
type Chart struct {
	ID    string
	Title string
	Spec  map[string]any
}

// Charts builds the chart specs for every section the view has data for.
func Charts(v *dashboard.View) []Chart {
	var charts []Chart
	vega := v.ChartLibrary == dashboard.ChartVegaLite

	if v.Prices != nil {
		spec := plotlyPrices(*v.Prices)
		if vega {
			spec = vegaPrices(*v.Prices)
		}
		charts = append(charts, Chart{ID: "price-chart", Title: "Weekly price history", Spec: spec})
	}
	if v.Financials != nil {
		axis := "Quarter"
		if v.Period == models.Annual {
			axis = "Year"
		}
		revenue := plotlyBars(v.Revenue, axis, "Total Revenue", "")
		income := plotlyBars(v.NetIncome, axis, "Net Income", netIncomeColor)
		if vega {
			revenue = vegaBars(v.Revenue, axis, "Total Revenue", "")
			income = vegaBars(v.NetIncome, axis, "Net Income", netIncomeColor)
		}
		charts = append(charts,
			Chart{ID: "revenue-chart", Title: "Total Revenue", Spec: revenue},
			Chart{ID: "net-income-chart", Title: "Net Income", Spec: income},
		)
	}
	return charts
}

func dates(ps series.PriceSeries) []string {
	out := make([]string, len(ps.Candles))
	for i, c := range ps.Candles {
		out[i] = c.Date.Format(time.DateOnly)
	}
	return out
}

// plotlyPrices draws candles on the secondary axis over grey volume bars.
func plotlyPrices(ps series.PriceSeries) map[string]any {
	x := dates(ps)
	open := make([]float64, len(ps.Candles))
	high := make([]float64, len(ps.Candles))
	low := make([]float64, len(ps.Candles))
	closes := make([]float64, len(ps.Candles))
	for i, c := range ps.Candles {
		open[i], high[i], low[i], closes[i] = c.Open, c.High, c.Low, c.Close
	}

	candles := map[string]any{
		"type":       "candlestick",
		"showlegend": false,
		"x":          x,
		"open":       open,
		"high":       high,
		"low":        low,
		"close":      closes,
	}
	priceAxis := map[string]any{"title": map[string]any{"text": "Price $"}, "showgrid": true}
	layout := map[string]any{
		"title":  map[string]any{"text": "Weekly price history"},
		"height": 600,
		"xaxis":  map[string]any{"rangeslider": map[string]any{"visible": false}},
		"yaxis":  priceAxis,
	}
	data := []any{}

	if len(ps.Volume) > 0 {
		volume := make([]int64, len(ps.Volume))
		for i, p := range ps.Volume {
			volume[i] = p.Volume
		}
		data = append(data, map[string]any{
			"type":       "bar",
			"showlegend": false,
			"x":          x,
			"y":          volume,
			"marker":     map[string]any{"color": volumeColor},
		})
		candles["yaxis"] = "y2"
		priceAxis["overlaying"] = "y"
		priceAxis["side"] = "right"
		layout["yaxis2"] = priceAxis
		layout["yaxis"] = map[string]any{"title": map[string]any{"text": "Volume $"}, "showgrid": false}
	}

	return map[string]any{"data": append(data, candles), "layout": layout}
}

func plotlyBars(points []series.Point, axis, measure, color string) map[string]any {
	x := make([]string, len(points))
	y := make([]*float64, len(points))
	for i, p := range points {
		x[i], y[i] = p.Label, p.Value
	}
	trace := map[string]any{"type": "bar", "x": x, "y": y}
	if color != "" {
		trace["marker"] = map[string]any{"color": color}
	}
	return map[string]any{
		"data": []any{trace},
		"layout": map[string]any{
			"title": map[string]any{"text": measure},
			"xaxis": map[string]any{"title": map[string]any{"text": axis}, "type": "category"},
			"yaxis": map[string]any{"title": map[string]any{"text": measure}},
		},
	}
}

const vegaSchema = "https://vega.github.io/schema/vega-lite/v5.json"

// vegaPrices layers a high/low rule under an open/close bar, the usual
// Vega-Lite candlestick, with volume on an independent axis when present.
func vegaPrices(ps series.PriceSeries) map[string]any {
	values := make([]map[string]any, len(ps.Candles))
	for i, c := range ps.Candles {
		row := map[string]any{
			"date":  c.Date.Format(time.DateOnly),
			"open":  c.Open,
			"high":  c.High,
			"low":   c.Low,
			"close": c.Close,
		}
		if i < len(ps.Volume) {
			row["volume"] = ps.Volume[i].Volume
		}
		values[i] = row
	}

	x := map[string]any{"field": "date", "type": "temporal", "title": "Date"}
	color := map[string]any{
		"condition": map[string]any{"test": "datum.open < datum.close", "value": "#06982d"},
		"value":     "#ae1325",
	}
	candles := map[string]any{
		"encoding": map[string]any{
			"x":     x,
			"y":     map[string]any{"type": "quantitative", "scale": map[string]any{"zero": false}, "axis": map[string]any{"title": "Price $"}},
			"color": color,
		},
		"layer": []any{
			map[string]any{
				"mark":     "rule",
				"encoding": map[string]any{"y": map[string]any{"field": "low"}, "y2": map[string]any{"field": "high"}},
			},
			map[string]any{
				"mark":     "bar",
				"encoding": map[string]any{"y": map[string]any{"field": "open"}, "y2": map[string]any{"field": "close"}},
			},
		},
	}

	spec := map[string]any{
		"$schema": vegaSchema,
		"title":   "Weekly price history",
		"width":   "container",
		"height":  600,
		"data":    map[string]any{"values": values},
	}
	if len(ps.Volume) == 0 {
		spec["layer"] = []any{candles}
		return spec
	}

	volume := map[string]any{
		"mark": map[string]any{"type": "bar", "color": "grey", "opacity": 0.5},
		"encoding": map[string]any{
			"x": x,
			"y": map[string]any{"field": "volume", "type": "quantitative", "axis": map[string]any{"title": "Volume $", "grid": false}},
		},
	}
	spec["layer"] = []any{volume, candles}
	spec["resolve"] = map[string]any{"scale": map[string]any{"y": "independent"}}
	return spec
}

func vegaBars(points []series.Point, axis, measure, color string) map[string]any {
	values := make([]map[string]any, len(points))
	for i, p := range points {
		values[i] = map[string]any{axis: p.Label, measure: p.Value}
	}
	mark := map[string]any{"type": "bar"}
	if color != "" {
		mark["color"] = color
	}
	return map[string]any{
		"$schema": vegaSchema,
		"width":   "container",
		"data":    map[string]any{"values": values},
		"mark":    mark,
		"encoding": map[string]any{
			"x": map[string]any{"field": axis, "type": "ordinal", "sort": nil},
			"y": map[string]any{"field": measure, "type": "quantitative"},
		},
	}
}
