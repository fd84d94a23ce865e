package analytics

import "time"

// TariffSchedule is a user's peak/off-peak rate table.
type TariffSchedule struct {
	PeakRate    float64 `json:"peakRate"`    // cost per kWh during peak hours
	OffPeakRate float64 `json:"offPeakRate"` // cost per kWh off-peak
	PeakHours   []int   `json:"peakHours"`   // hours of day (0-23) billed at the peak rate
}

// Reading is one immutable time-stamped power observation for a device.
// Cost and IsPeakHour are resolved once at ingestion and never recomputed.
type Reading struct {
	ID          string    `json:"id"`
	HomeID      string    `json:"homeId"`
	DeviceID    string    `json:"deviceId"`
	RoomID      string    `json:"roomId"`
	Timestamp   time.Time `json:"timestamp"`
	Consumption float64   `json:"consumption"` // kWh
	Watts       float64   `json:"watts"`       // instantaneous power
	Cost        float64   `json:"cost"`
	IsPeakHour  bool      `json:"isPeakHour"`
}

// TimeRange is an inclusive [Start, End] query window.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Totals is the windowed summary over a reading set.
type Totals struct {
	TotalConsumption float64 `json:"totalConsumption"`
	TotalCost        float64 `json:"totalCost"`
	AvgWatts         float64 `json:"avgWatts"`
	MaxWatts         float64 `json:"maxWatts"`
}

// DeviceUsage is summed consumption and cost for one device.
type DeviceUsage struct {
	DeviceID         string  `json:"deviceId"`
	TotalConsumption float64 `json:"totalConsumption"`
	TotalCost        float64 `json:"totalCost"`
}

// RoomUsage is summed consumption and cost for one room.
type RoomUsage struct {
	RoomID           string  `json:"roomId"`
	TotalConsumption float64 `json:"totalConsumption"`
	TotalCost        float64 `json:"totalCost"`
}

// DailyBucket is one calendar day's summed consumption.
type DailyBucket struct {
	Date       string  `json:"date"` // YYYY-MM-DD
	DailyTotal float64 `json:"dailyTotal"`
}

// DeviceDay is one calendar day of a single device's usage.
type DeviceDay struct {
	Date             string  `json:"date"` // YYYY-MM-DD
	DailyConsumption float64 `json:"dailyConsumption"`
	DailyCost        float64 `json:"dailyCost"`
}

// CarbonFactors are the deployment-region emission constants.
type CarbonFactors struct {
	CO2PerKWh     float64 // kg CO2 emitted per kWh consumed
	KgPerTreeYear float64 // kg CO2 absorbed by one tree per year
}

// CarbonFootprint is the derived emissions summary for a dashboard.
type CarbonFootprint struct {
	CO2Kg           float64 `json:"co2kg"`
	TreesEquivalent float64 `json:"treesEquivalent"`
}
