package telemetry

import (
	"testing"
	"time"
)

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantHome   string
		wantDevice string
		wantErr    bool
	}{
		{
			name:       "full message",
			payload:    `{"homeId":"home-1","deviceId":"meter-1","roomId":"kitchen","consumption":1.5,"watts":900,"timestamp":"2025-06-15T09:30:00Z"}`,
			wantHome:   "home-1",
			wantDevice: "meter-1",
		},
		{
			name:       "timestamp omitted",
			payload:    `{"homeId":"home-1","deviceId":"meter-1","roomId":"kitchen","consumption":0.2,"watts":150}`,
			wantHome:   "home-1",
			wantDevice: "meter-1",
		},
		{name: "missing home", payload: `{"deviceId":"meter-1","roomId":"kitchen","consumption":1}`, wantErr: true},
		{name: "not json", payload: `consumption=1.5`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			homeID, p, err := decodeMessage([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if homeID != tt.wantHome {
				t.Errorf("homeID = %q, want %q", homeID, tt.wantHome)
			}
			if p.DeviceID != tt.wantDevice {
				t.Errorf("deviceID = %q, want %q", p.DeviceID, tt.wantDevice)
			}
		})
	}
}

func TestDecodeMessageKeepsTimestamp(t *testing.T) {
	payload := `{"homeId":"h","deviceId":"d","roomId":"r","consumption":1,"watts":10,"timestamp":"2025-06-15T03:15:00Z"}`

	_, p, err := decodeMessage([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Timestamp == nil {
		t.Fatal("timestamp dropped")
	}
	want := time.Date(2025, 6, 15, 3, 15, 0, 0, time.UTC)
	if !p.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", p.Timestamp, want)
	}
}
