package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitinshakthi/energy-tracker/internal/analytics"
	"github.com/nitinshakthi/energy-tracker/internal/store"
	"github.com/nitinshakthi/energy-tracker/internal/tracker"
)

type testEnv struct {
	server *httptest.Server
	store  *store.Store
	home   *tracker.Home
	apiKey string
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewStore(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	user := &tracker.User{
		ID:     uuid.NewString(),
		Name:   "Nitin",
		Email:  "nitin@example.com",
		APIKey: "good-key",
		Tariff: analytics.TariffSchedule{PeakRate: 8.5, OffPeakRate: 5.0, PeakHours: []int{9, 18}},
	}
	require.NoError(t, st.CreateUser(ctx, user))

	home := &tracker.Home{ID: uuid.NewString(), UserID: user.ID, Name: "Flat 4B", Rooms: []tracker.Room{}}
	require.NoError(t, st.CreateHome(ctx, home))

	stranger := &tracker.User{
		ID:     uuid.NewString(),
		Name:   "Someone Else",
		Email:  "else@example.com",
		APIKey: "stranger-key",
		Tariff: analytics.TariffSchedule{PeakRate: 8.5, OffPeakRate: 5.0},
	}
	require.NoError(t, st.CreateUser(ctx, stranger))

	tr := tracker.New(st, tracker.Config{Location: time.UTC})
	srv := httptest.NewServer(NewServer(tr).Handler())
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, store: st, home: home, apiKey: "good-key"}
}

func (e *testEnv) do(t *testing.T, method, path, apiKey string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, into interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func TestAuthRequired(t *testing.T) {
	env := setup(t)

	resp := env.do(t, "GET", "/api/homes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, "GET", "/api/homes", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateReading(t *testing.T) {
	env := setup(t)

	ts := time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)
	resp := env.do(t, "POST", "/api/readings", env.apiKey, map[string]interface{}{
		"homeId":      env.home.ID,
		"deviceId":    "ac-1",
		"roomId":      "bedroom",
		"consumption": 2.0,
		"watts":       1500.0,
		"timestamp":   ts,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var reading analytics.Reading
	decode(t, resp, &reading)
	assert.Equal(t, 17.0, reading.Cost)
	assert.True(t, reading.IsPeakHour)
	assert.NotEmpty(t, reading.ID)
}

func TestCreateReadingValidation(t *testing.T) {
	env := setup(t)

	resp := env.do(t, "POST", "/api/readings", env.apiKey, map[string]interface{}{
		"homeId":      env.home.ID,
		"deviceId":    "ac-1",
		"roomId":      "bedroom",
		"consumption": -2.0,
		"watts":       100.0,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "consumption", body["field"])
}

func TestOwnershipReturnsForbidden(t *testing.T) {
	env := setup(t)

	paths := []struct {
		method string
		path   string
		body   interface{}
	}{
		{"POST", "/api/readings", map[string]interface{}{"homeId": env.home.ID, "deviceId": "d", "roomId": "r", "consumption": 1.0, "watts": 1.0}},
		{"GET", "/api/analytics/dashboard/" + env.home.ID, nil},
		{"GET", "/api/analytics/heatmap/" + env.home.ID + "?month=2025-06", nil},
		{"GET", "/api/analytics/device/" + env.home.ID + "/ac-1", nil},
		{"GET", "/api/readings/latest/" + env.home.ID, nil},
		{"GET", "/api/alerts/" + env.home.ID, nil},
		{"GET", "/api/homes/" + env.home.ID, nil},
	}

	for _, p := range paths {
		resp := env.do(t, p.method, p.path, "stranger-key", p.body)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, "%s %s", p.method, p.path)
		resp.Body.Close()
	}
}

func TestBatchAtomicity(t *testing.T) {
	env := setup(t)

	resp := env.do(t, "POST", "/api/readings/batch", env.apiKey, map[string]interface{}{
		"homeId": env.home.ID,
		"readings": []map[string]interface{}{
			{"deviceId": "a", "roomId": "r", "consumption": 1.0, "watts": 10.0},
			{"deviceId": "", "roomId": "r", "consumption": 1.0, "watts": 10.0},
		},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, "GET", "/api/readings/latest/"+env.home.ID, env.apiKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var readings []analytics.Reading
	decode(t, resp, &readings)
	assert.Empty(t, readings, "failed batch must leave no readings visible")
}

func TestDashboard(t *testing.T) {
	env := setup(t)

	ts := time.Now().UTC().Add(-time.Hour)
	resp := env.do(t, "POST", "/api/readings/batch", env.apiKey, map[string]interface{}{
		"homeId": env.home.ID,
		"readings": []map[string]interface{}{
			{"deviceId": "deviceA", "roomId": "bedroom", "consumption": 3.0, "watts": 100.0, "timestamp": ts},
			{"deviceId": "deviceB", "roomId": "kitchen", "consumption": 5.0, "watts": 300.0, "timestamp": ts},
			{"deviceId": "deviceA", "roomId": "bedroom", "consumption": 1.0, "watts": 200.0, "timestamp": ts},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, "GET", "/api/analytics/dashboard/"+env.home.ID+"?period=week", env.apiKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap tracker.DashboardSnapshot
	decode(t, resp, &snap)

	assert.Equal(t, "week", snap.Period)
	assert.Equal(t, 9.0, snap.Totals.TotalConsumption)
	require.Len(t, snap.TopDevices, 2)
	assert.Equal(t, "deviceB", snap.TopDevices[0].DeviceID)
	assert.Equal(t, 4.5, snap.CarbonFootprint.CO2Kg)
	assert.NotNil(t, snap.Alerts)
}

func TestHeatmapRejectsBadMonth(t *testing.T) {
	env := setup(t)

	resp := env.do(t, "GET", "/api/analytics/heatmap/"+env.home.ID+"?month=notamonth", env.apiKey, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "month", body["field"])
}

func TestDeviceAnalyticsRejectsBadDays(t *testing.T) {
	env := setup(t)

	resp := env.do(t, "GET", "/api/analytics/device/"+env.home.ID+"/ac-1?days=soon", env.apiKey, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, "GET", "/api/analytics/device/"+env.home.ID+"/ac-1", env.apiKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var series tracker.DeviceSeries
	decode(t, resp, &series)
	assert.Equal(t, "Last 7 days", series.Period)
}

func TestHomeTreeEndpoints(t *testing.T) {
	env := setup(t)

	resp := env.do(t, "POST", "/api/homes", env.apiKey, map[string]string{"name": "Villa", "address": "42 Lake Rd"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var home tracker.Home
	decode(t, resp, &home)

	resp = env.do(t, "POST", "/api/homes/"+home.ID+"/rooms", env.apiKey, map[string]string{"name": "Kitchen", "category": "kitchen"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &home)
	require.Len(t, home.Rooms, 1)

	roomID := home.Rooms[0].ID
	resp = env.do(t, "POST", "/api/homes/"+home.ID+"/rooms/"+roomID+"/devices", env.apiKey,
		map[string]interface{}{"name": "Fridge", "category": "appliance", "wattage": 150.0})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &home)
	require.Len(t, home.Rooms[0].Devices, 1)
	assert.Equal(t, "Fridge", home.Rooms[0].Devices[0].Name)
}

func TestAcknowledgeAlert(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	alert := &tracker.Alert{
		ID: uuid.NewString(), HomeID: env.home.ID, Type: tracker.AlertThreshold,
		Severity: tracker.SeverityHigh, Title: "High usage", Message: "Usage spiked",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, env.store.InsertAlert(ctx, alert))

	resp := env.do(t, "GET", "/api/alerts/"+env.home.ID, env.apiKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var alerts []tracker.Alert
	decode(t, resp, &alerts)
	require.Len(t, alerts, 1)

	resp = env.do(t, "PUT", "/api/alerts/"+alert.ID+"/read", "stranger-key", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, "PUT", "/api/alerts/"+alert.ID+"/read", env.apiKey, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, "GET", "/api/alerts/"+env.home.ID, env.apiKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &alerts)
	assert.Empty(t, alerts)
}
