package analytics

import (
	"fmt"
	"sort"
	"time"
)

const dateFormat = "2006-01-02"

// DailyHeatmap buckets readings by calendar date in loc and sums consumption
// per date, ascending. Dates with no readings are omitted; callers needing
// dense buckets zero-fill on their side.
func DailyHeatmap(readings []Reading, loc *time.Location) []DailyBucket {
	byDate := map[string]float64{}
	for _, r := range readings {
		date := r.Timestamp.In(loc).Format(dateFormat)
		byDate[date] += r.Consumption
	}

	buckets := make([]DailyBucket, 0, len(byDate))
	for date, total := range byDate {
		buckets = append(buckets, DailyBucket{Date: date, DailyTotal: total})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Date < buckets[j].Date
	})

	return buckets
}

// DeviceDaily buckets one device's readings by calendar date in loc, summing
// consumption and cost per date, ascending.
func DeviceDaily(readings []Reading, loc *time.Location) []DeviceDay {
	byDate := map[string]*DeviceDay{}
	for _, r := range readings {
		date := r.Timestamp.In(loc).Format(dateFormat)
		d, ok := byDate[date]
		if !ok {
			d = &DeviceDay{Date: date}
			byDate[date] = d
		}
		d.DailyConsumption += r.Consumption
		d.DailyCost += r.Cost
	}

	days := make([]DeviceDay, 0, len(byDate))
	for _, d := range byDate {
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date < days[j].Date
	})

	return days
}

// MonthRange computes calendar-month boundaries in loc from a YYYY-MM string:
// first of the month 00:00:00 through the last day 23:59:59.
func MonthRange(yearMonth string, loc *time.Location) (TimeRange, error) {
	start, err := time.ParseInLocation("2006-01", yearMonth, loc)
	if err != nil {
		return TimeRange{}, fmt.Errorf("invalid month %q (use YYYY-MM): %w", yearMonth, err)
	}
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return TimeRange{Start: start, End: end}, nil
}

// PeriodRange maps a dashboard period name to a concrete time range ending at
// now, evaluated in loc. Unknown periods fall back to today so a bad query
// string never aborts a whole dashboard.
func PeriodRange(period string, now time.Time, loc *time.Location) (string, TimeRange) {
	now = now.In(loc)

	switch period {
	case "week":
		return period, TimeRange{Start: now.AddDate(0, 0, -7), End: now}
	case "month":
		return period, TimeRange{Start: now.AddDate(0, -1, 0), End: now}
	case "today":
	default:
		period = "today"
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return period, TimeRange{Start: dayStart, End: now}
}
