package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nitinshakthi/energy-tracker/internal/analytics"
)

const (
	defaultAlertLimit   = 5
	defaultDeviceDays   = 7
	latestReadingsLimit = 50
)

// Store is the persistence surface the tracker needs. Implementations must
// support concurrent readers and appenders, return ErrNotFound for missing
// records, and make InsertReadings all-or-nothing.
type Store interface {
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByAPIKey(ctx context.Context, apiKey string) (*User, error)

	CreateHome(ctx context.Context, home *Home) error
	SaveHome(ctx context.Context, home *Home) error
	GetHome(ctx context.Context, id string) (*Home, error)
	ListHomes(ctx context.Context, userID string) ([]Home, error)
	DeleteHome(ctx context.Context, id string) error

	InsertReadings(ctx context.Context, readings []analytics.Reading) error
	ReadingsInRange(ctx context.Context, homeID string, rng analytics.TimeRange) ([]analytics.Reading, error)
	DeviceReadingsInRange(ctx context.Context, homeID, deviceID string, rng analytics.TimeRange) ([]analytics.Reading, error)
	LatestReadings(ctx context.Context, homeID string, limit int) ([]analytics.Reading, error)

	GetAlert(ctx context.Context, id string) (*Alert, error)
	UnreadAlerts(ctx context.Context, homeID string, limit int) ([]Alert, error)
	MarkAlertRead(ctx context.Context, id string) error
}

// Config carries the deployment constants the tracker computes with.
type Config struct {
	// Location fixes the zone for hour-of-day tariff lookups and "today"
	// boundaries. Never the ambient process zone.
	Location *time.Location
	// Carbon holds the regional emission factors.
	Carbon analytics.CarbonFactors
}

// Tracker is the energy-analytics core: ingestion, rollups, dashboards.
// It is stateless per request; all state lives in the store.
type Tracker struct {
	store  Store
	loc    *time.Location
	carbon analytics.CarbonFactors
	now    func() time.Time
}

// New creates a tracker. A nil Location defaults to UTC; zero carbon factors
// default to the stock constants.
func New(store Store, cfg Config) *Tracker {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	carbon := cfg.Carbon
	if carbon.CO2PerKWh == 0 {
		carbon.CO2PerKWh = analytics.DefaultCO2PerKWh
	}
	if carbon.KgPerTreeYear == 0 {
		carbon.KgPerTreeYear = analytics.DefaultKgPerTreeYear
	}
	return &Tracker{store: store, loc: loc, carbon: carbon, now: time.Now}
}

// Authenticate resolves an API key to its user.
func (t *Tracker) Authenticate(ctx context.Context, apiKey string) (*User, error) {
	user, err := t.store.GetUserByAPIKey(ctx, apiKey)
	if errors.Is(err, ErrNotFound) {
		return nil, forbidden()
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return user, nil
}

// ownedHome loads a home and enforces ownership. A missing home and a home
// owned by someone else are indistinguishable to the caller.
func (t *Tracker) ownedHome(ctx context.Context, homeID string, principal *User) (*Home, error) {
	home, err := t.store.GetHome(ctx, homeID)
	if errors.Is(err, ErrNotFound) {
		return nil, forbidden()
	}
	if err != nil {
		return nil, unavailable(err)
	}
	if home.UserID != principal.ID {
		return nil, forbidden()
	}
	return home, nil
}

// buildReading validates a payload and freezes tariff, cost and peak flag
// into an immutable reading.
func (t *Tracker) buildReading(homeID string, principal *User, p ReadingPayload) (analytics.Reading, *Error) {
	if p.DeviceID == "" {
		return analytics.Reading{}, invalidf("deviceId", "deviceId is required")
	}
	if p.RoomID == "" {
		return analytics.Reading{}, invalidf("roomId", "roomId is required")
	}
	if p.Consumption < 0 {
		return analytics.Reading{}, invalidf("consumption", "consumption must not be negative")
	}
	if p.Watts < 0 {
		return analytics.Reading{}, invalidf("watts", "watts must not be negative")
	}

	ts := t.now().In(t.loc)
	if p.Timestamp != nil {
		ts = p.Timestamp.In(t.loc)
	}

	rate, isPeak := analytics.ResolveRate(principal.Tariff, ts, t.loc)

	return analytics.Reading{
		ID:          uuid.NewString(),
		HomeID:      homeID,
		DeviceID:    p.DeviceID,
		RoomID:      p.RoomID,
		Timestamp:   ts,
		Consumption: p.Consumption,
		Watts:       p.Watts,
		Cost:        p.Consumption * rate,
		IsPeakHour:  isPeak,
	}, nil
}

// IngestReading validates, prices and persists a single reading.
func (t *Tracker) IngestReading(ctx context.Context, homeID string, principal *User, p ReadingPayload) (*analytics.Reading, error) {
	if _, err := t.ownedHome(ctx, homeID, principal); err != nil {
		return nil, err
	}

	reading, verr := t.buildReading(homeID, principal, p)
	if verr != nil {
		return nil, verr
	}

	if err := t.store.InsertReadings(ctx, []analytics.Reading{reading}); err != nil {
		return nil, unavailable(err)
	}
	return &reading, nil
}

// IngestBatch persists a batch atomically: every element is validated and
// tariffed on its own timestamp before anything is written, so one bad
// element means zero inserts. Readings come back in submission order.
func (t *Tracker) IngestBatch(ctx context.Context, homeID string, principal *User, payloads []ReadingPayload) ([]analytics.Reading, error) {
	if _, err := t.ownedHome(ctx, homeID, principal); err != nil {
		return nil, err
	}
	if len(payloads) == 0 {
		return nil, invalidf("readings", "readings must not be empty")
	}

	readings := make([]analytics.Reading, 0, len(payloads))
	for i, p := range payloads {
		reading, verr := t.buildReading(homeID, principal, p)
		if verr != nil {
			verr.Message = fmt.Sprintf("readings[%d]: %s", i, verr.Message)
			return nil, verr
		}
		readings = append(readings, reading)
	}

	if err := t.store.InsertReadings(ctx, readings); err != nil {
		return nil, unavailable(err)
	}
	return readings, nil
}

// IngestDeviceReading ingests a broker-delivered reading on behalf of the
// home's owner. The broker sits inside the deployment, so the home's
// existence is the trust boundary here, not an API key.
func (t *Tracker) IngestDeviceReading(ctx context.Context, homeID string, p ReadingPayload) (*analytics.Reading, error) {
	home, err := t.store.GetHome(ctx, homeID)
	if errors.Is(err, ErrNotFound) {
		return nil, invalidf("homeId", "unknown home")
	}
	if err != nil {
		return nil, unavailable(err)
	}

	owner, err := t.store.GetUser(ctx, home.UserID)
	if err != nil {
		return nil, unavailable(err)
	}

	reading, verr := t.buildReading(homeID, owner, p)
	if verr != nil {
		return nil, verr
	}
	if err := t.store.InsertReadings(ctx, []analytics.Reading{reading}); err != nil {
		return nil, unavailable(err)
	}
	return &reading, nil
}

// LatestReadings returns the most recent readings for a home, newest first.
func (t *Tracker) LatestReadings(ctx context.Context, homeID string, principal *User) ([]analytics.Reading, error) {
	if _, err := t.ownedHome(ctx, homeID, principal); err != nil {
		return nil, err
	}
	readings, err := t.store.LatestReadings(ctx, homeID, latestReadingsLimit)
	if err != nil {
		return nil, unavailable(err)
	}
	return readings, nil
}

// Dashboard composes totals, device ranking, room breakdown, unread alerts
// and the carbon summary for one home and period. Readings and alerts are
// fetched concurrently; the three rollups are computed from the single
// fetched slice so they cannot diverge. Any sub-call failure aborts the
// whole composition.
func (t *Tracker) Dashboard(ctx context.Context, homeID string, principal *User, period string) (*DashboardSnapshot, error) {
	if _, err := t.ownedHome(ctx, homeID, principal); err != nil {
		return nil, err
	}

	period, rng := analytics.PeriodRange(period, t.now(), t.loc)

	var (
		wg          sync.WaitGroup
		readings    []analytics.Reading
		alerts      []Alert
		readingsErr error
		alertsErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		readings, readingsErr = t.store.ReadingsInRange(ctx, homeID, rng)
	}()
	go func() {
		defer wg.Done()
		alerts, alertsErr = t.store.UnreadAlerts(ctx, homeID, defaultAlertLimit)
	}()
	wg.Wait()

	if readingsErr != nil {
		return nil, unavailable(readingsErr)
	}
	if alertsErr != nil {
		return nil, unavailable(alertsErr)
	}
	if alerts == nil {
		alerts = []Alert{}
	}

	totals := analytics.Summarize(readings)

	return &DashboardSnapshot{
		Period:          period,
		DateRange:       rng,
		Totals:          totals,
		TopDevices:      analytics.TopDevices(readings, analytics.DefaultTopLimit),
		RoomBreakdown:   analytics.RoomBreakdown(readings),
		Alerts:          alerts,
		CarbonFootprint: analytics.Footprint(totals.TotalConsumption, t.carbon),
	}, nil
}

// Heatmap returns the sparse daily consumption series for a calendar month.
func (t *Tracker) Heatmap(ctx context.Context, homeID string, principal *User, yearMonth string) ([]analytics.DailyBucket, error) {
	if _, err := t.ownedHome(ctx, homeID, principal); err != nil {
		return nil, err
	}

	rng, err := analytics.MonthRange(yearMonth, t.loc)
	if err != nil {
		return nil, invalidf("month", "month must be in YYYY-MM format")
	}

	readings, err := t.store.ReadingsInRange(ctx, homeID, rng)
	if err != nil {
		return nil, unavailable(err)
	}
	return analytics.DailyHeatmap(readings, t.loc), nil
}

// DeviceAnalytics returns the per-day consumption/cost series for one device
// over the last N days (default 7).
func (t *Tracker) DeviceAnalytics(ctx context.Context, homeID string, principal *User, deviceID string, days int) (*DeviceSeries, error) {
	if _, err := t.ownedHome(ctx, homeID, principal); err != nil {
		return nil, err
	}
	if deviceID == "" {
		return nil, invalidf("deviceId", "deviceId is required")
	}
	if days <= 0 {
		days = defaultDeviceDays
	}

	now := t.now().In(t.loc)
	rng := analytics.TimeRange{Start: now.AddDate(0, 0, -days), End: now}

	readings, err := t.store.DeviceReadingsInRange(ctx, homeID, deviceID, rng)
	if err != nil {
		return nil, unavailable(err)
	}

	return &DeviceSeries{
		DeviceID:  deviceID,
		Period:    fmt.Sprintf("Last %d days", days),
		DailyData: analytics.DeviceDaily(readings, t.loc),
	}, nil
}

// UnreadAlerts returns the newest unread alerts for a home.
func (t *Tracker) UnreadAlerts(ctx context.Context, homeID string, principal *User, limit int) ([]Alert, error) {
	if _, err := t.ownedHome(ctx, homeID, principal); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultAlertLimit
	}
	alerts, err := t.store.UnreadAlerts(ctx, homeID, limit)
	if err != nil {
		return nil, unavailable(err)
	}
	if alerts == nil {
		alerts = []Alert{}
	}
	return alerts, nil
}

// AcknowledgeAlert flips an alert to read after verifying the caller owns
// the home it belongs to.
func (t *Tracker) AcknowledgeAlert(ctx context.Context, alertID string, principal *User) error {
	alert, err := t.store.GetAlert(ctx, alertID)
	if errors.Is(err, ErrNotFound) {
		return forbidden()
	}
	if err != nil {
		return unavailable(err)
	}
	if _, err := t.ownedHome(ctx, alert.HomeID, principal); err != nil {
		return err
	}
	if err := t.store.MarkAlertRead(ctx, alertID); err != nil {
		return unavailable(err)
	}
	return nil
}
