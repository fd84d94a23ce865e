package analytics

import (
	"testing"
	"time"
)

func TestDailyHeatmap(t *testing.T) {
	day1 := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 20, 22, 0, 0, 0, time.UTC)

	readings := []Reading{
		{DeviceID: "a", RoomID: "r", Timestamp: day2, Consumption: 1.5},
		{DeviceID: "a", RoomID: "r", Timestamp: day1, Consumption: 2.0},
		{DeviceID: "b", RoomID: "r", Timestamp: day1.Add(5 * time.Hour), Consumption: 0.5},
	}

	got := DailyHeatmap(readings, time.UTC)

	// Readings on two dates produce exactly two entries, ascending.
	if len(got) != 2 {
		t.Fatalf("got %d buckets, want 2", len(got))
	}
	if got[0].Date != "2025-06-03" || got[0].DailyTotal != 2.5 {
		t.Errorf("first bucket = %+v, want 2025-06-03 with 2.5", got[0])
	}
	if got[1].Date != "2025-06-20" || got[1].DailyTotal != 1.5 {
		t.Errorf("second bucket = %+v, want 2025-06-20 with 1.5", got[1])
	}
}

func TestDeviceDaily(t *testing.T) {
	day := time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC)

	readings := []Reading{
		{DeviceID: "ac", RoomID: "r", Timestamp: day, Consumption: 1.0, Cost: 8.5},
		{DeviceID: "ac", RoomID: "r", Timestamp: day.Add(2 * time.Hour), Consumption: 2.0, Cost: 10.0},
	}

	got := DeviceDaily(readings, time.UTC)

	if len(got) != 1 {
		t.Fatalf("got %d days, want 1", len(got))
	}
	if got[0].DailyConsumption != 3.0 || got[0].DailyCost != 18.5 {
		t.Errorf("day = %+v, want 3.0 kWh / 18.5 cost", got[0])
	}
}

func TestMonthRange(t *testing.T) {
	tests := []struct {
		name      string
		yearMonth string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{
			name:      "thirty day month",
			yearMonth: "2025-06",
			wantStart: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC),
		},
		{
			name:      "february leap year",
			yearMonth: "2024-02",
			wantStart: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC),
		},
		{name: "malformed", yearMonth: "June 2025", wantErr: true},
		{name: "empty", yearMonth: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MonthRange(tt.yearMonth, time.UTC)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.yearMonth)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Start.Equal(tt.wantStart) || !got.End.Equal(tt.wantEnd) {
				t.Errorf("range = %v..%v, want %v..%v", got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestPeriodRange(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		period     string
		wantPeriod string
		wantStart  time.Time
	}{
		{name: "today", period: "today", wantPeriod: "today", wantStart: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)},
		{name: "week", period: "week", wantPeriod: "week", wantStart: now.AddDate(0, 0, -7)},
		{name: "month", period: "month", wantPeriod: "month", wantStart: now.AddDate(0, -1, 0)},
		{name: "unknown falls back to today", period: "fortnight", wantPeriod: "today", wantStart: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)},
		{name: "empty falls back to today", period: "", wantPeriod: "today", wantStart: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			period, rng := PeriodRange(tt.period, now, time.UTC)
			if period != tt.wantPeriod {
				t.Errorf("period = %q, want %q", period, tt.wantPeriod)
			}
			if !rng.Start.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", rng.Start, tt.wantStart)
			}
			if !rng.End.Equal(now) {
				t.Errorf("end = %v, want %v", rng.End, now)
			}
		})
	}
}
