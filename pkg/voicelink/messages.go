package voicelink

import (
	"encoding/json"
	"fmt"
)

// Wire protocol tags. One JSON message per event, tagged by "type".
const (
	TagSync        = "sync"
	TagToggleMic   = "toggle_mic"
	TagToggleCam   = "toggle_cam"
	TagToggleThink = "toggle_think"
	TagShowFeed    = "show_feed"
	TagText        = "text"
	TagAudio       = "audio"
	TagVideoFrame  = "video_frame"
	TagStatus      = "status"
	TagConnection  = "connection"
	TagVolume      = "volume"
	TagResponse    = "response"
)

// Envelope is the tagged wire message. Each tag uses only its own fields;
// the rest stay at their zero value and are omitted when marshalling.
type Envelope struct {
	Type        string          `json:"type"`
	Enabled     *bool           `json:"enabled,omitempty"`
	Text        string          `json:"text,omitempty"`
	AudioBase64 string          `json:"audio_base64,omitempty"`
	FrameBase64 string          `json:"frame_base64,omitempty"`
	Connected   *bool           `json:"connected,omitempty"`
	MicOn       *bool           `json:"mic_on,omitempty"`
	CamOn       *bool           `json:"cam_on,omitempty"`
	Status      string          `json:"status,omitempty"`
	Level       *float64        `json:"level,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// ParseMessage decodes a raw inbound message. Unparsable payloads yield a
// MALFORMED_FRAME error so the caller can drop the message without crashing.
func ParseMessage(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, NewMalformedFrameError(fmt.Sprintf("unparsable message: %v", err))
	}
	return &env, nil
}

// Outbound message builders.

func SyncMessage() *Envelope {
	return &Envelope{Type: TagSync}
}

func ToggleMicMessage(enabled bool) *Envelope {
	return &Envelope{Type: TagToggleMic, Enabled: &enabled}
}

func ToggleCamMessage(enabled bool) *Envelope {
	return &Envelope{Type: TagToggleCam, Enabled: &enabled}
}

func ToggleThinkMessage(enabled bool) *Envelope {
	return &Envelope{Type: TagToggleThink, Enabled: &enabled}
}

func ShowFeedMessage() *Envelope {
	return &Envelope{Type: TagShowFeed}
}

func TextMessage(text string) *Envelope {
	return &Envelope{Type: TagText, Text: text}
}

func AudioMessage(audioBase64 string) *Envelope {
	return &Envelope{Type: TagAudio, AudioBase64: audioBase64}
}

func VideoFrameMessage(frameBase64 string) *Envelope {
	return &Envelope{Type: TagVideoFrame, FrameBase64: frameBase64}
}
