package voicelink

import (
	"testing"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("VOICELINK_WS_ENDPOINT", "")
	t.Setenv("VOICELINK_MAX_RECONNECT_ATTEMPTS", "")
	t.Setenv("VOICELINK_RECONNECT_DELAY", "")
	t.Setenv("VOICELINK_USE_TOKEN_AUTH", "")

	c := NewConfig()
	if c.WsEndpoint != "ws://localhost:8768" {
		t.Fatalf("unexpected default endpoint %q", c.WsEndpoint)
	}
	if c.MaxReconnectAttempts != 3 {
		t.Fatalf("unexpected default reconnect attempts %d", c.MaxReconnectAttempts)
	}
	if c.ReconnectDelay != 1.0 {
		t.Fatalf("unexpected default reconnect delay %v", c.ReconnectDelay)
	}
	if c.UseTokenAuth {
		t.Fatal("token auth should default off")
	}
}

func TestNewConfigEnvOverrides(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(*Config) bool
	}{
		{"endpoint", "VOICELINK_WS_ENDPOINT", "wss://voice.example.com/ws",
			func(c *Config) bool { return c.WsEndpoint == "wss://voice.example.com/ws" }},
		{"max reconnect", "VOICELINK_MAX_RECONNECT_ATTEMPTS", "7",
			func(c *Config) bool { return c.MaxReconnectAttempts == 7 }},
		{"reconnect delay", "VOICELINK_RECONNECT_DELAY", "0.25",
			func(c *Config) bool { return c.ReconnectDelay == 0.25 }},
		{"token auth", "VOICELINK_USE_TOKEN_AUTH", "true",
			func(c *Config) bool { return c.UseTokenAuth }},
		{"debug websocket", "VOICELINK_DEBUG_WEBSOCKET", "true",
			func(c *Config) bool { return c.DebugWebsocket }},
		{"bad int keeps default", "VOICELINK_MAX_RECONNECT_ATTEMPTS", "lots",
			func(c *Config) bool { return c.MaxReconnectAttempts == 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if !tt.check(NewConfig()) {
				t.Fatalf("override %s=%s not applied", tt.key, tt.value)
			}
		})
	}
}

func TestAudioConfigDefaults(t *testing.T) {
	ac := NewAudioConfig()
	if ac.CaptureRate != 16000 || ac.PlaybackRate != 24000 {
		t.Fatalf("unexpected rates %d/%d", ac.CaptureRate, ac.PlaybackRate)
	}
	if ac.Channels != 1 || ac.BlockSize != 4096 {
		t.Fatalf("unexpected geometry channels=%d block=%d", ac.Channels, ac.BlockSize)
	}
	if ac.CaptureGain != DefaultCaptureGain {
		t.Fatalf("unexpected default gain %v", ac.CaptureGain)
	}
}

func TestLoadAudioConfigFromEnv(t *testing.T) {
	ac := NewAudioConfig()

	t.Setenv("VOICELINK_CAPTURE_GAIN", "2.5")
	t.Setenv("VOICELINK_AUDIO_DEVICE_ID", "3")
	LoadAudioConfigFromEnv(ac)

	if ac.CaptureGain != 2.5 {
		t.Fatalf("expected gain 2.5, got %v", ac.CaptureGain)
	}
	if ac.DeviceID == nil || *ac.DeviceID != 3 {
		t.Fatal("expected device id 3")
	}

	// Non-positive gain is rejected, keeping the previous value.
	t.Setenv("VOICELINK_CAPTURE_GAIN", "-1")
	LoadAudioConfigFromEnv(ac)
	if ac.CaptureGain != 2.5 {
		t.Fatalf("negative gain must not apply, got %v", ac.CaptureGain)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		issues int
	}{
		{"valid defaults", func(c *Config) {}, 0},
		{"bad scheme", func(c *Config) { c.WsEndpoint = "http://x" }, 1},
		{"zero attempts", func(c *Config) { c.MaxReconnectAttempts = 0 }, 1},
		{"negative delay", func(c *Config) { c.ReconnectDelay = -1 }, 1},
		{"token auth without key", func(c *Config) { c.UseTokenAuth = true }, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VOICELINK_API_KEY", "")
			c := &Config{
				WsEndpoint:           "ws://localhost:8768",
				MaxReconnectAttempts: 3,
				ReconnectDelay:       1.0,
			}
			tt.mutate(c)
			if got := len(c.Validate()); got != tt.issues {
				t.Fatalf("expected %d issues, got %d: %v", tt.issues, got, c.Validate())
			}
		})
	}
}
