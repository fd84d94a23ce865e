package analytics

import "sort"

// DefaultTopLimit is the device ranking size used by the dashboard.
const DefaultTopLimit = 5

// Summarize computes windowed totals over a reading set. An empty set yields
// all-zero totals rather than an error.
func Summarize(readings []Reading) Totals {
	var t Totals
	if len(readings) == 0 {
		return t
	}

	sumWatts := 0.0
	for _, r := range readings {
		t.TotalConsumption += r.Consumption
		t.TotalCost += r.Cost
		sumWatts += r.Watts
		if r.Watts > t.MaxWatts {
			t.MaxWatts = r.Watts
		}
	}
	t.AvgWatts = sumWatts / float64(len(readings))

	return t
}

// TopDevices ranks devices by summed consumption, descending, ties broken by
// ascending device ID, truncated to limit (DefaultTopLimit when limit <= 0).
func TopDevices(readings []Reading, limit int) []DeviceUsage {
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	byDevice := map[string]*DeviceUsage{}
	for _, r := range readings {
		u, ok := byDevice[r.DeviceID]
		if !ok {
			u = &DeviceUsage{DeviceID: r.DeviceID}
			byDevice[r.DeviceID] = u
		}
		u.TotalConsumption += r.Consumption
		u.TotalCost += r.Cost
	}

	ranked := make([]DeviceUsage, 0, len(byDevice))
	for _, u := range byDevice {
		ranked = append(ranked, *u)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalConsumption != ranked[j].TotalConsumption {
			return ranked[i].TotalConsumption > ranked[j].TotalConsumption
		}
		return ranked[i].DeviceID < ranked[j].DeviceID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// RoomBreakdown groups readings by room, summing consumption and cost,
// ordered descending by consumption. No truncation.
func RoomBreakdown(readings []Reading) []RoomUsage {
	byRoom := map[string]*RoomUsage{}
	for _, r := range readings {
		u, ok := byRoom[r.RoomID]
		if !ok {
			u = &RoomUsage{RoomID: r.RoomID}
			byRoom[r.RoomID] = u
		}
		u.TotalConsumption += r.Consumption
		u.TotalCost += r.Cost
	}

	rooms := make([]RoomUsage, 0, len(byRoom))
	for _, u := range byRoom {
		rooms = append(rooms, *u)
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].TotalConsumption != rooms[j].TotalConsumption {
			return rooms[i].TotalConsumption > rooms[j].TotalConsumption
		}
		return rooms[i].RoomID < rooms[j].RoomID
	})

	return rooms
}
