package series

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mauv0809/stockboard/internal/models"
	"github.com/peterldowns/testy/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLeadingYear(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "dash separated", in: "2024-09-30", want: "2024"},
		{name: "slash separated", in: "2024/09/30", want: "2024"},
		{name: "with clock", in: "2024-09-30 00:00:00", want: "2024"},
		{name: "no separator", in: "2024", want: "2024"},
		{name: "single digit year", in: "5-01-01", want: "5"},
		{name: "leading whitespace", in: "  2023-12-31", want: "2023"},
		{name: "empty", in: "", wantErr: true},
		{name: "non numeric", in: "FY2024", wantErr: true},
	}

	for _, test := range tests {
		got, err := LeadingYear(test.in)
		if test.wantErr {
			if !errors.Is(err, ErrShaping) {
				t.Errorf("%s: expected shaping error, got %v", test.name, err)
			}
			continue
		}
		assert.NoError(t, err)
		if got != test.want {
			t.Errorf("%s: expected %q, got %q", test.name, test.want, got)
		}
	}
}

func TestPeriodLabel(t *testing.T) {
	q, err := PeriodLabel("2024-09-30", models.Quarterly)
	assert.NoError(t, err)
	assert.Equal(t, "2024-09-30", q)

	a, err := PeriodLabel("2024-09-30", models.Annual)
	assert.NoError(t, err)
	assert.Equal(t, "2024", a)

	_, err = PeriodLabel("2024-09-30", models.Granularity(5))
	assert.True(t, errors.Is(err, models.ErrInvalidGranularity))
}

func TestFormatPeriod(t *testing.T) {
	assert.Equal(t, "2024-09-30", FormatPeriod(date(2024, 9, 30)))
	assert.Equal(t, "2024-09-30 16:00:00", FormatPeriod(time.Date(2024, 9, 30, 16, 0, 0, 0, time.UTC)))
}

func TestShapePrices(t *testing.T) {
	h := models.PriceHistory{Symbol: "AAPL", Bars: []models.PriceBar{
		{Date: date(2024, 9, 2), Open: 10, High: 12, Low: 9, Close: 11, Volume: 100},
		{Date: date(2024, 9, 9), Open: 11, High: 13, Low: 10, Close: 12, Volume: 200},
		{Date: date(2024, 9, 16), Open: 12, High: 14, Low: 11, Close: 13, Volume: 300},
	}}

	ps, err := ShapePrices(h)
	assert.NoError(t, err)
	assert.Equal(t, len(h.Bars), len(ps.Candles))
	assert.Equal(t, len(h.Bars), len(ps.Volume))

	// Ensure both series share the date axis and keep ascending order.
	for i := range ps.Candles {
		assert.Equal(t, h.Bars[i].Date, ps.Candles[i].Date)
		assert.Equal(t, h.Bars[i].Date, ps.Volume[i].Date)
		assert.Equal(t, h.Bars[i].Volume, ps.Volume[i].Volume)
		if i > 0 {
			assert.True(t, ps.Candles[i-1].Date.Before(ps.Candles[i].Date))
		}
	}
	want := Candle{Date: date(2024, 9, 9), Open: 11, High: 13, Low: 10, Close: 12}
	if diff := cmp.Diff(want, ps.Candles[1]); diff != "" {
		t.Errorf("candle mismatch (-want +got):\n%s", diff)
	}
}

func TestShapePricesRejectsBadInput(t *testing.T) {
	_, err := ShapePrices(models.PriceHistory{Symbol: "AAPL"})
	assert.True(t, errors.Is(err, ErrShaping))

	_, err = ShapePrices(models.PriceHistory{Symbol: "AAPL", Bars: []models.PriceBar{
		{Date: date(2024, 9, 9)},
		{Date: date(2024, 9, 2)},
	}})
	assert.True(t, errors.Is(err, ErrShaping))
}

func TestShapeFinancialsQuarterly(t *testing.T) {
	revenues := []float64{100, 110, 95, 120}
	periods := []time.Time{date(2023, 12, 31), date(2024, 3, 31), date(2024, 6, 30), date(2024, 9, 30)}
	stmt := models.FinancialStatement{Symbol: "X", Granularity: models.Quarterly}
	for i := range periods {
		stmt.Rows = append(stmt.Rows, models.FinancialRow{Period: periods[i], TotalRevenue: models.Float(revenues[i]), NetIncome: models.Float(revenues[i] / 10)})
	}

	fs, err := ShapeFinancials(stmt)
	assert.NoError(t, err)

	rev := fs.Revenue()
	assert.Equal(t, 4, len(rev))
	for i, p := range rev {
		assert.Equal(t, FormatPeriod(periods[i]), p.Label)
		assert.Equal(t, revenues[i], *p.Value)
	}
	assert.Equal(t, "2024-09-30", rev[3].Label)
	assert.Equal(t, 12.0, *fs.NetIncome()[3].Value)
}

func TestShapeFinancialsAnnualSortsAndLabels(t *testing.T) {
	// Providers often list newest first.
	stmt := models.FinancialStatement{Symbol: "X", Granularity: models.Annual, Rows: []models.FinancialRow{
		{Period: date(2024, 9, 30), TotalRevenue: models.Float(3)},
		{Period: date(2022, 9, 30), TotalRevenue: models.Float(1)},
		{Period: date(2023, 9, 30), TotalRevenue: models.Float(2)},
	}}

	fs, err := ShapeFinancials(stmt)
	assert.NoError(t, err)
	labels := make([]string, len(fs.Points))
	for i, p := range fs.Points {
		labels[i] = p.Label
	}
	if diff := cmp.Diff([]string{"2022", "2023", "2024"}, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, models.Annual, fs.Granularity)

	// Ensure the input statement was not reordered.
	assert.Equal(t, date(2024, 9, 30), stmt.Rows[0].Period)
}

func TestShapeFinancialsPreservesNulls(t *testing.T) {
	stmt := models.FinancialStatement{Symbol: "X", Granularity: models.Quarterly, Rows: []models.FinancialRow{
		{Period: date(2024, 6, 30), TotalRevenue: models.Float(90), NetIncome: models.Float(9)},
		{Period: date(2024, 9, 30), TotalRevenue: models.Float(100)},
		{Period: date(2024, 12, 31)},
	}}

	fs, err := ShapeFinancials(stmt)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(fs.Points))
	assert.True(t, fs.Points[1].NetIncome == nil)
	assert.Equal(t, 100.0, *fs.Points[1].TotalRevenue)
	assert.True(t, fs.Points[2].TotalRevenue == nil)
	assert.True(t, fs.NetIncome()[2].Value == nil)
}

func TestShapeFinancialsEmpty(t *testing.T) {
	_, err := ShapeFinancials(models.FinancialStatement{Symbol: "X", Granularity: models.Annual})
	assert.True(t, errors.Is(err, ErrShaping))
}
