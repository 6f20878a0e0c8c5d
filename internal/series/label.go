package series

import (
	"fmt"
	"strings"
	"time"

	"github.com/mauv0809/stockboard/internal/models"
)

// FormatPeriod renders a period-end timestamp the way it is shown on the
// quarterly axis: the date alone at midnight, date and clock otherwise.
func FormatPeriod(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.DateTime)
}

// PeriodLabel derives the axis label for a stringified period.
// Quarterly keeps the full text; Annual keeps only the leading year token.
func PeriodLabel(raw string, g models.Granularity) (string, error) {
	switch g {
	case models.Quarterly:
		return raw, nil
	case models.Annual:
		return LeadingYear(raw)
	default:
		return "", fmt.Errorf("%w: %d", models.ErrInvalidGranularity, int(g))
	}
}

// LeadingYear returns the run of ASCII digits at the start of s, stopping at
// the first date separator or any other non-digit. Leading whitespace is
// ignored. A string without separators yields its digits unchanged
// ("2024" -> "2024"), and short years are not padded ("5-01-01" -> "5").
// It fails when s does not start with a digit.
func LeadingYear(s string) (string, error) {
	s = strings.TrimLeft(s, " \t")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return "", fmt.Errorf("%w: no leading year in %q", ErrShaping, s)
	}
	return s[:end], nil
}
