package tracker

import (
	"time"

	"github.com/nitinshakthi/energy-tracker/internal/analytics"
)

// User is the authenticated principal. Loaded once per request and treated
// as immutable; profile changes go through their own flow.
type User struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	Email     string                   `json:"email"`
	APIKey    string                   `json:"-"`
	Tariff    analytics.TariffSchedule `json:"electricityRate"`
	CreatedAt time.Time                `json:"createdAt"`
}

// DefaultTariff is the schedule applied to users created without an explicit
// one: morning and evening peaks billed at the higher rate.
func DefaultTariff() analytics.TariffSchedule {
	return analytics.TariffSchedule{
		PeakRate:    8.5,
		OffPeakRate: 5.0,
		PeakHours:   []int{9, 10, 11, 18, 19, 20, 21},
	}
}

// DeviceCategory classifies a device for breakdown views.
type DeviceCategory string

const (
	DeviceHVAC          DeviceCategory = "hvac"
	DeviceLighting      DeviceCategory = "lighting"
	DeviceAppliance     DeviceCategory = "appliance"
	DeviceEntertainment DeviceCategory = "entertainment"
	DeviceOther         DeviceCategory = "other"
)

// RoomCategory classifies a room.
type RoomCategory string

const (
	RoomBedroom    RoomCategory = "bedroom"
	RoomKitchen    RoomCategory = "kitchen"
	RoomLivingArea RoomCategory = "living_area"
	RoomBathroom   RoomCategory = "bathroom"
	RoomOther      RoomCategory = "other"
)

// Device belongs to exactly one room and is addressed by its stable ID,
// never by position in the slice.
type Device struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Category DeviceCategory `json:"category"`
	Wattage  float64        `json:"wattage"`
	IsActive bool           `json:"isActive"`
}

// Room is an ordered element of a home's ownership tree.
type Room struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Category RoomCategory `json:"category"`
	Devices  []Device     `json:"devices"`
}

// Home is exclusively owned by one user. Every operation touching a home or
// its descendants verifies that ownership first.
type Home struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Rooms     []Room    `json:"rooms"`
	CreatedAt time.Time `json:"createdAt"`
}

// AlertType is what triggered a notification.
type AlertType string

const (
	AlertAnomaly        AlertType = "anomaly"
	AlertRecommendation AlertType = "recommendation"
	AlertThreshold      AlertType = "threshold"
)

// Severity grades an alert.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Alert is an immutable-once-created notification. Only the IsRead flag ever
// changes, through an explicit acknowledgement.
type Alert struct {
	ID             string    `json:"id"`
	HomeID         string    `json:"homeId"`
	Type           AlertType `json:"type"`
	Severity       Severity  `json:"severity"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Recommendation string    `json:"recommendation,omitempty"`
	IsRead         bool      `json:"isRead"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ReadingPayload is the validated input for one reading submission.
// A nil Timestamp means "now".
type ReadingPayload struct {
	DeviceID    string     `json:"deviceId"`
	RoomID      string     `json:"roomId"`
	Consumption float64    `json:"consumption"`
	Watts       float64    `json:"watts"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// HomeInput is the validated input for creating or updating a home.
type HomeInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// RoomInput adds a room to a home.
type RoomInput struct {
	Name     string       `json:"name"`
	Category RoomCategory `json:"category"`
}

// DeviceInput adds a device to a room.
type DeviceInput struct {
	Name     string         `json:"name"`
	Category DeviceCategory `json:"category"`
	Wattage  float64        `json:"wattage"`
}

// DashboardSnapshot is derived fresh per request from reading and alert
// data; it is never persisted or cached.
type DashboardSnapshot struct {
	Period          string                    `json:"period"`
	DateRange       analytics.TimeRange       `json:"dateRange"`
	Totals          analytics.Totals          `json:"totals"`
	TopDevices      []analytics.DeviceUsage   `json:"topDevices"`
	RoomBreakdown   []analytics.RoomUsage     `json:"roomBreakdown"`
	Alerts          []Alert                   `json:"alerts"`
	CarbonFootprint analytics.CarbonFootprint `json:"carbonFootprint"`
}

// DeviceSeries is the per-day history for one device.
type DeviceSeries struct {
	DeviceID  string                `json:"deviceId"`
	Period    string                `json:"period"`
	DailyData []analytics.DeviceDay `json:"dailyData"`
}
