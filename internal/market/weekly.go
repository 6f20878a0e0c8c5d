package market

import (
	"sort"

	"github.com/mauv0809/stockboard/internal/models"
)

// AggregateWeekly folds daily bars into one bar per ISO week: first open,
// highest high, lowest low, last close and summed volume. Each weekly bar is
// keyed by its first trading day. Input order does not matter; repeated day
// stamps keep the first row.
func AggregateWeekly(daily []models.PriceBar) []models.PriceBar {
	if len(daily) == 0 {
		return nil
	}
	sorted := make([]models.PriceBar, len(daily))
	copy(sorted, daily)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	weekly := make([]models.PriceBar, 0, len(sorted)/5+1)
	week := sorted[0]
	weekKey := isoWeekKey(week)
	prev := week.Date
	for _, d := range sorted[1:] {
		if d.Date.Equal(prev) {
			continue // duplicate day stamp
		}
		prev = d.Date
		if key := isoWeekKey(d); key != weekKey {
			weekly = append(weekly, week)
			week, weekKey = d, key
			continue
		}
		if d.High > week.High {
			week.High = d.High
		}
		if d.Low < week.Low {
			week.Low = d.Low
		}
		week.Close = d.Close
		week.Volume += d.Volume
	}
	return append(weekly, week)
}

func isoWeekKey(b models.PriceBar) int {
	year, week := b.Date.ISOWeek()
	return year*100 + week
}
