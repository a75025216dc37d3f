package voicelink

import "time"

// ConnectionState enum
type ConnectionState string

const (
	Disconnected ConnectionState = "disconnected"
	Connecting   ConnectionState = "connecting"
	Connected    ConnectionState = "connected"
)

// StreamError carries a machine-readable code alongside the message.
type StreamError struct {
	Message   string
	Code      string
	Timestamp float64
	Details   map[string]interface{}
}

func (e *StreamError) Error() string {
	return e.Message
}

func NewStreamError(message, code string) *StreamError {
	return &StreamError{
		Message:   message,
		Code:      code,
		Timestamp: float64(time.Now().UnixMilli()),
	}
}

// SocketToken is a short-lived bearer token for the transport layer.
type SocketToken struct {
	Token     string
	ExpiresAt int64 // Unix timestamp in milliseconds
}

// Handler types
type MessageHandler func(*Envelope)
type ConnectionHandler func(ConnectionState)
type ErrorHandler func(*StreamError)
type VolumeHandler func(float64)
type TextHandler func(string)

// FrameSink receives encoded capture frames for transmission. Implementations
// must not block: a sink that cannot accept a frame drops it and returns false.
type FrameSink interface {
	SendFrame(audioBase64 string) bool
}
