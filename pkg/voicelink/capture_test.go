package voicelink

import (
	"testing"

	"github.com/gordonklaus/portaudio"
)

func TestSelectCaptureDevice(t *testing.T) {
	devices := []*portaudio.DeviceInfo{
		{Name: "speakers", MaxInputChannels: 0, MaxOutputChannels: 2},
		{Name: "mic", MaxInputChannels: 1},
	}

	tests := []struct {
		name    string
		id      int
		want    string
		errCode string
	}{
		{"valid input device", 1, "mic", ""},
		{"output-only device", 0, "", ErrCodeDeviceUnavailable},
		{"negative id", -1, "", ErrCodeDeviceUnavailable},
		{"id out of range", 2, "", ErrCodeDeviceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device, err := selectCaptureDevice(devices, tt.id, 1)
			if tt.errCode != "" {
				if !IsErrorCode(err, tt.errCode) {
					t.Fatalf("expected %s, got %v", tt.errCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if device.Name != tt.want {
				t.Fatalf("expected device %q, got %q", tt.want, device.Name)
			}
		})
	}
}
