package voicelink

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AudioConfig holds the fixed audio geometry of the streaming engine.
// Capture runs at 16 kHz mono; inbound playback frames arrive at 24 kHz.
// The rate asymmetry is part of the wire contract.
type AudioConfig struct {
	CaptureRate  int
	PlaybackRate int
	Channels     int
	BlockSize    int
	CaptureGain  float64
	DeviceID     *int
}

func NewAudioConfig() *AudioConfig {
	return &AudioConfig{
		CaptureRate:  16000,
		PlaybackRate: 24000,
		Channels:     1,
		BlockSize:    4096,
		CaptureGain:  DefaultCaptureGain,
	}
}

type Config struct {
	WsEndpoint           string            `json:"ws_endpoint"`
	Headers              map[string]string `json:"headers,omitempty"`
	UseTokenAuth         bool              `json:"use_token_auth"`
	MaxReconnectAttempts int               `json:"max_reconnect_attempts"`
	ReconnectDelay       float64           `json:"reconnect_delay"`
	DebugWebsocket       bool              `json:"debug_websocket"`
	DebugAudio           bool              `json:"debug_audio"`
}

func NewConfig() *Config {
	c := &Config{
		WsEndpoint:           "ws://localhost:8768",
		Headers:              make(map[string]string),
		UseTokenAuth:         false,
		MaxReconnectAttempts: 3,
		ReconnectDelay:       1.0,
	}
	c.loadFromEnv()
	return c
}

func (c *Config) loadFromEnv() {
	_ = godotenv.Load()

	if endpoint := os.Getenv("VOICELINK_WS_ENDPOINT"); endpoint != "" {
		c.WsEndpoint = endpoint
	}
	if maxReconnect := os.Getenv("VOICELINK_MAX_RECONNECT_ATTEMPTS"); maxReconnect != "" {
		if val, err := strconv.Atoi(maxReconnect); err == nil {
			c.MaxReconnectAttempts = val
		}
	}
	if delay := os.Getenv("VOICELINK_RECONNECT_DELAY"); delay != "" {
		if val, err := strconv.ParseFloat(delay, 64); err == nil {
			c.ReconnectDelay = val
		}
	}
	c.UseTokenAuth = os.Getenv("VOICELINK_USE_TOKEN_AUTH") == "true"
	c.DebugWebsocket = os.Getenv("VOICELINK_DEBUG_WEBSOCKET") == "true"
	c.DebugAudio = os.Getenv("VOICELINK_DEBUG_AUDIO") == "true"
}

// LoadAudioConfigFromEnv applies VOICELINK_* overrides to an audio config.
func LoadAudioConfigFromEnv(ac *AudioConfig) {
	if gain := os.Getenv("VOICELINK_CAPTURE_GAIN"); gain != "" {
		if val, err := strconv.ParseFloat(gain, 64); err == nil && val > 0 {
			ac.CaptureGain = val
		}
	}
	if deviceIDStr := os.Getenv("VOICELINK_AUDIO_DEVICE_ID"); deviceIDStr != "" {
		if deviceID, err := strconv.Atoi(deviceIDStr); err == nil {
			ac.DeviceID = &deviceID
		}
	}
}

// Validate returns a list of configuration issues, empty when valid.
func (c *Config) Validate() []string {
	issues := []string{}

	if !strings.HasPrefix(c.WsEndpoint, "ws://") && !strings.HasPrefix(c.WsEndpoint, "wss://") {
		issues = append(issues, fmt.Sprintf("invalid websocket endpoint: %s", c.WsEndpoint))
	}
	if c.MaxReconnectAttempts < 1 {
		issues = append(issues, "max_reconnect_attempts must be at least 1")
	}
	if c.ReconnectDelay < 0 {
		issues = append(issues, "reconnect_delay must not be negative")
	}
	if c.UseTokenAuth && os.Getenv("VOICELINK_API_KEY") == "" {
		issues = append(issues, "VOICELINK_API_KEY environment variable not set")
	}

	return issues
}
