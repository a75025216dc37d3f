package voicelink

// Error codes as constants
const (
	ErrCodeDeviceUnavailable = "DEVICE_UNAVAILABLE"
	ErrCodeMalformedFrame    = "MALFORMED_FRAME"
	ErrCodeTransport         = "TRANSPORT_ERROR"
	ErrCodeConnectionFailed  = "CONNECTION_FAILED"
	ErrCodeNotConnected      = "NOT_CONNECTED"
	ErrCodeConfigInvalid     = "CONFIG_INVALID"
	ErrCodeTokenFailed       = "TOKEN_FAILED"
	ErrCodeFileSource        = "FILE_SOURCE_ERROR"
	ErrCodeUnknown           = "UNKNOWN_ERROR"
)

func NewDeviceError(message string) *StreamError {
	return NewStreamError(message, ErrCodeDeviceUnavailable)
}

func NewMalformedFrameError(message string) *StreamError {
	return NewStreamError(message, ErrCodeMalformedFrame)
}

func NewTransportError(message string) *StreamError {
	return NewStreamError(message, ErrCodeTransport)
}

func NewConnectionError(message string) *StreamError {
	return NewStreamError(message, ErrCodeConnectionFailed)
}

func NewConfigError(message string) *StreamError {
	return NewStreamError(message, ErrCodeConfigInvalid)
}

// WrapError converts any error to a StreamError with the given code.
func WrapError(err error, code string) *StreamError {
	if err == nil {
		return nil
	}
	return NewStreamError(err.Error(), code)
}

// AddDetail attaches extra context to an existing error.
func (e *StreamError) AddDetail(key string, value interface{}) *StreamError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code string) bool {
	se, ok := err.(*StreamError)
	if !ok {
		return false
	}
	return se.Code == code
}
