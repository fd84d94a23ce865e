package analytics

import (
	"testing"
	"time"
)

func readingAt(device, room string, kwh, watts, cost float64) Reading {
	return Reading{
		HomeID:      "home-1",
		DeviceID:    device,
		RoomID:      room,
		Timestamp:   time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		Consumption: kwh,
		Watts:       watts,
		Cost:        cost,
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		readings []Reading
		want     Totals
	}{
		{
			name:     "empty set yields zero totals, not an error",
			readings: nil,
			want:     Totals{},
		},
		{
			name: "sums consumption and cost, averages and maxes watts",
			readings: []Reading{
				readingAt("ac", "bedroom", 2.0, 1500, 17.0),
				readingAt("fridge", "kitchen", 1.0, 150, 5.0),
				readingAt("tv", "living", 0.5, 90, 2.5),
			},
			want: Totals{TotalConsumption: 3.5, TotalCost: 24.5, AvgWatts: 580, MaxWatts: 1500},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.readings)
			if got != tt.want {
				t.Errorf("Summarize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTopDevices(t *testing.T) {
	readings := []Reading{
		readingAt("deviceA", "r1", 3, 100, 15),
		readingAt("deviceB", "r1", 5, 200, 25),
		readingAt("deviceA", "r1", 1, 100, 5),
	}

	got := TopDevices(readings, 2)

	if len(got) != 2 {
		t.Fatalf("got %d devices, want 2", len(got))
	}
	if got[0].DeviceID != "deviceB" || got[0].TotalConsumption != 5 {
		t.Errorf("top device = %+v, want deviceB with 5 kWh", got[0])
	}
	if got[1].DeviceID != "deviceA" || got[1].TotalConsumption != 4 {
		t.Errorf("second device = %+v, want deviceA with 4 kWh", got[1])
	}
}

func TestTopDevicesTieBreak(t *testing.T) {
	readings := []Reading{
		readingAt("zeta", "r1", 2, 50, 10),
		readingAt("alpha", "r1", 2, 50, 10),
	}

	got := TopDevices(readings, 0) // 0 means default limit

	if len(got) != 2 {
		t.Fatalf("got %d devices, want 2", len(got))
	}
	// Equal consumption: ascending device ID keeps the ranking deterministic.
	if got[0].DeviceID != "alpha" || got[1].DeviceID != "zeta" {
		t.Errorf("tie order = [%s, %s], want [alpha, zeta]", got[0].DeviceID, got[1].DeviceID)
	}
}

func TestTopDevicesTruncates(t *testing.T) {
	readings := []Reading{}
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		readings = append(readings, readingAt(id, "r1", 1, 10, 5))
	}

	if got := TopDevices(readings, 0); len(got) != DefaultTopLimit {
		t.Errorf("got %d devices, want default limit %d", len(got), DefaultTopLimit)
	}
}

func TestRoomBreakdown(t *testing.T) {
	readings := []Reading{
		readingAt("ac", "bedroom", 4, 1500, 20),
		readingAt("fridge", "kitchen", 6, 150, 30),
		readingAt("light", "bedroom", 1, 60, 5),
	}

	got := RoomBreakdown(readings)

	if len(got) != 2 {
		t.Fatalf("got %d rooms, want 2", len(got))
	}
	if got[0].RoomID != "kitchen" || got[0].TotalConsumption != 6 {
		t.Errorf("top room = %+v, want kitchen with 6 kWh", got[0])
	}
	if got[1].RoomID != "bedroom" || got[1].TotalConsumption != 5 || got[1].TotalCost != 25 {
		t.Errorf("second room = %+v, want bedroom with 5 kWh / 25 cost", got[1])
	}
}

func TestFootprint(t *testing.T) {
	got := Footprint(10, DefaultCarbonFactors())

	if got.CO2Kg != 5.00 {
		t.Errorf("CO2Kg = %v, want 5.00", got.CO2Kg)
	}
	if got.TreesEquivalent != 0.2 {
		t.Errorf("TreesEquivalent = %v, want 0.2", got.TreesEquivalent)
	}
}
