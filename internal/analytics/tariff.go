package analytics

import "time"

// ResolveRate returns the per-kWh rate that applies at t and whether t falls
// in a peak hour. The hour of day is taken in loc, never the process zone,
// so two deployments with the same schedule agree on what "hour 9" means.
func ResolveRate(schedule TariffSchedule, t time.Time, loc *time.Location) (rate float64, isPeak bool) {
	hour := t.In(loc).Hour()
	for _, h := range schedule.PeakHours {
		if h == hour {
			return schedule.PeakRate, true
		}
	}
	return schedule.OffPeakRate, false
}
