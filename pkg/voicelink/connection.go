package voicelink

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// audioWriteTimeout bounds how long an audio frame write may hold the
// transport. Capture drops frames rather than stall behind backpressure.
const audioWriteTimeout = 50 * time.Millisecond

// ConnectionManager owns the message socket lifecycle and routes inbound
// messages to the playback scheduler and registered observers. It is the
// only component that mutates ConnectionState.
type ConnectionManager struct {
	config    *Config
	scheduler *PlaybackScheduler
	capture   *CaptureEngine
	logger    *Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	state     ConnectionState
	sessionID string

	writeMu sync.Mutex

	hmu                sync.Mutex
	nextHandlerID      int
	messageHandlers    map[int]MessageHandler
	connectionHandlers map[int]ConnectionHandler
	errorHandlers      map[int]ErrorHandler
	textHandlers       map[int]TextHandler
	volumeHandlers     map[int]VolumeHandler
}

func NewConnectionManager(config *Config, scheduler *PlaybackScheduler, capture *CaptureEngine) *ConnectionManager {
	if config == nil {
		config = NewConfig()
	}
	return &ConnectionManager{
		config:             config,
		scheduler:          scheduler,
		capture:            capture,
		state:              Disconnected,
		logger:             GetGlobalLogger().WithComponent("ConnectionManager"),
		messageHandlers:    make(map[int]MessageHandler),
		connectionHandlers: make(map[int]ConnectionHandler),
		errorHandlers:      make(map[int]ErrorHandler),
		textHandlers:       make(map[int]TextHandler),
		volumeHandlers:     make(map[int]VolumeHandler),
	}
}

// AttachCapture binds the capture engine the manager starts and stops.
// Separate from the constructor because capture sinks its frames back into
// the manager.
func (cm *ConnectionManager) AttachCapture(capture *CaptureEngine) {
	cm.mu.Lock()
	cm.capture = capture
	cm.mu.Unlock()
}

// State returns the current connection state.
func (cm *ConnectionManager) State() ConnectionState {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.state
}

// Connect opens the transport. Any prior connection is closed and its
// session cleaned up first, so the manager never double-connects and a
// stale playback timeline cannot leak into the new session. Dial failures
// are retried up to the configured attempt count; presence is announced
// with a sync message as soon as the transport opens.
func (cm *ConnectionManager) Connect() error {
	cm.closeCurrent()
	cm.cleanup()
	cm.setState(Connecting)

	var lastErr error
	for attempt := 0; attempt < cm.config.MaxReconnectAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(cm.config.ReconnectDelay * float64(time.Second)))
		}

		conn, err := cm.dial()
		if err != nil {
			lastErr = err
			if cm.config.DebugWebsocket {
				cm.logger.WithError(err).Debugf("Connection attempt %d failed", attempt+1)
			}
			continue
		}

		cm.mu.Lock()
		cm.conn = conn
		cm.sessionID = uuid.NewString()
		cm.mu.Unlock()

		if err := cm.writeJSON(conn, SyncMessage(), 0); err != nil {
			conn.Close()
			cm.mu.Lock()
			cm.conn = nil
			cm.mu.Unlock()
			lastErr = err
			continue
		}

		go cm.readLoop(conn)
		cm.setState(Connected)
		cm.logger.WithField("session_id", cm.sessionID).
			WithField("endpoint", cm.config.WsEndpoint).
			Info("Connected")
		return nil
	}

	cm.setState(Disconnected)
	connErr := NewConnectionError(fmt.Sprintf("failed to connect after %d attempts: %v",
		cm.config.MaxReconnectAttempts, lastErr))
	cm.handleError(connErr)
	return connErr
}

func (cm *ConnectionManager) dial() (*websocket.Conn, error) {
	header := make(http.Header)
	if cm.config.UseTokenAuth {
		token, err := MintSocketToken()
		if err != nil {
			return nil, err
		}
		header.Set("Authorization", "Bearer "+token.Token)
	}
	for k, v := range cm.config.Headers {
		header.Set(k, v)
	}

	conn, _, err := websocket.DefaultDialer.Dial(cm.config.WsEndpoint, header)
	return conn, err
}

// Resync requests an authoritative status re-announcement without touching
// the transport. Distinct from Connect on purpose.
func (cm *ConnectionManager) Resync() error {
	return cm.Send(SyncMessage())
}

// Disconnect closes the transport on user request. Idempotent; always ends
// in Disconnected with full cleanup.
func (cm *ConnectionManager) Disconnect() {
	cm.closeCurrent()
	cm.teardown()
}

// closeCurrent closes the socket if one exists, without state transitions.
func (cm *ConnectionManager) closeCurrent() {
	cm.mu.Lock()
	conn := cm.conn
	cm.conn = nil
	cm.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// cleanup stops capture and flushes the playback timeline. Runs on every
// session end, including the implicit one when Connect replaces a live
// session.
func (cm *ConnectionManager) cleanup() {
	if cm.capture != nil {
		cm.capture.Stop()
	}
	if cm.scheduler != nil {
		cm.scheduler.Reset()
	}
}

// teardown runs the cleanup shared by every exit path and reports
// Disconnected.
func (cm *ConnectionManager) teardown() {
	cm.cleanup()
	cm.setState(Disconnected)
}

func (cm *ConnectionManager) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			cm.mu.Lock()
			stale := cm.conn != conn
			cm.conn = nil
			cm.mu.Unlock()
			if stale {
				// A newer connection replaced this one; nothing to clean up.
				return
			}
			cm.handleError(WrapError(err, ErrCodeTransport))
			cm.teardown()
			return
		}
		cm.dispatch(raw)
	}
}

// dispatch classifies one inbound message by tag and routes it. Unknown tags
// are ignored; malformed payloads are dropped with an error report.
func (cm *ConnectionManager) dispatch(raw []byte) {
	env, err := ParseMessage(raw)
	if err != nil {
		cm.handleError(err.(*StreamError))
		return
	}

	if cm.config.DebugWebsocket {
		cm.logger.WithField("tag", env.Type).Debug("Message received")
	}

	switch env.Type {
	case TagAudio:
		if cm.config.DebugAudio {
			cm.logger.WithField("frame_bytes", len(env.AudioBase64)).Debug("Audio frame received")
		}
		if cm.scheduler != nil {
			// Enqueue reports malformed frames through its own handlers.
			_ = cm.scheduler.Enqueue(env.AudioBase64)
		}

	case TagStatus:
		if env.Connected != nil {
			cm.applyRemoteStatus(*env.Connected)
		}

	case TagConnection:
		cm.applyRemoteStatus(env.Status == "connected")

	case TagText:
		cm.emitText(env.Text)

	case TagVolume:
		if env.Level != nil {
			// Diagnostic only; never overrides the local meters.
			cm.emitVolume(*env.Level)
		}

	case TagResponse:
		cm.logger.WithField("bytes", len(env.Data)).Debug("Opaque server payload")

	default:
		// Unknown but well-formed tags are a protocol extension, not an error.
	}

	cm.emitMessage(env)
}

// applyRemoteStatus applies an authoritative status announcement. A positive
// status confirms Connected; a negative one tears the session down the same
// way a transport close does.
func (cm *ConnectionManager) applyRemoteStatus(connected bool) {
	if connected {
		cm.setState(Connected)
	} else {
		cm.closeCurrent()
		cm.teardown()
	}
}

// setState transitions the state machine and notifies observers. Self
// transitions are silently ignored, so observers only ever see changes.
// Entering Connected starts the capture engine; the device open happens off
// this callback path.
func (cm *ConnectionManager) setState(state ConnectionState) {
	cm.mu.Lock()
	if cm.state == state {
		cm.mu.Unlock()
		return
	}
	cm.state = state
	cm.mu.Unlock()

	cm.logger.LogConnectionEvent("state_change", state)

	if state == Connected && cm.capture != nil {
		go func() {
			// Start failure is reported through the capture error handlers;
			// the session stays up for playback and text.
			_ = cm.capture.Start()
		}()
	}

	cm.hmu.Lock()
	handlers := make([]ConnectionHandler, 0, len(cm.connectionHandlers))
	for _, h := range cm.connectionHandlers {
		handlers = append(handlers, h)
	}
	cm.hmu.Unlock()
	for _, h := range handlers {
		h(state)
	}
}

// Send transmits one control message. A no-op (with NOT_CONNECTED) unless
// the state is Connected.
func (cm *ConnectionManager) Send(env *Envelope) error {
	cm.mu.Lock()
	conn := cm.conn
	state := cm.state
	cm.mu.Unlock()

	if state != Connected || conn == nil {
		return NewStreamError("not connected", ErrCodeNotConnected)
	}
	if err := cm.writeJSON(conn, env, 0); err != nil {
		cm.handleError(WrapError(err, ErrCodeTransport))
		return err
	}
	return nil
}

// SendFrame implements FrameSink for the capture engine. It must never
// block the capture path: when the transport is busy or absent the frame is
// dropped and false is returned.
func (cm *ConnectionManager) SendFrame(audioBase64 string) bool {
	cm.mu.Lock()
	conn := cm.conn
	state := cm.state
	cm.mu.Unlock()

	if state != Connected || conn == nil {
		return false
	}
	if !cm.writeMu.TryLock() {
		if cm.config.DebugAudio {
			cm.logger.Debug("Transport busy, audio frame dropped")
		}
		return false
	}
	defer cm.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(audioWriteTimeout))
	err := conn.WriteJSON(AudioMessage(audioBase64))
	conn.SetWriteDeadline(time.Time{})
	return err == nil
}

func (cm *ConnectionManager) writeJSON(conn *websocket.Conn, env *Envelope, timeout time.Duration) error {
	cm.writeMu.Lock()
	defer cm.writeMu.Unlock()
	if timeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(timeout))
		defer conn.SetWriteDeadline(time.Time{})
	}
	return conn.WriteJSON(env)
}

func (cm *ConnectionManager) emitMessage(env *Envelope) {
	cm.hmu.Lock()
	handlers := make([]MessageHandler, 0, len(cm.messageHandlers))
	for _, h := range cm.messageHandlers {
		handlers = append(handlers, h)
	}
	cm.hmu.Unlock()
	for _, h := range handlers {
		h(env)
	}
}

func (cm *ConnectionManager) emitText(text string) {
	cm.hmu.Lock()
	handlers := make([]TextHandler, 0, len(cm.textHandlers))
	for _, h := range cm.textHandlers {
		handlers = append(handlers, h)
	}
	cm.hmu.Unlock()
	for _, h := range handlers {
		h(text)
	}
}

func (cm *ConnectionManager) emitVolume(level float64) {
	cm.hmu.Lock()
	handlers := make([]VolumeHandler, 0, len(cm.volumeHandlers))
	for _, h := range cm.volumeHandlers {
		handlers = append(handlers, h)
	}
	cm.hmu.Unlock()
	for _, h := range handlers {
		h(level)
	}
}

func (cm *ConnectionManager) handleError(err *StreamError) {
	cm.logger.LogStreamError(err)
	cm.hmu.Lock()
	handlers := make([]ErrorHandler, 0, len(cm.errorHandlers))
	for _, h := range cm.errorHandlers {
		handlers = append(handlers, h)
	}
	cm.hmu.Unlock()
	for _, h := range handlers {
		h(err)
	}
}

// AddMessageHandler registers an observer for every inbound message.
func (cm *ConnectionManager) AddMessageHandler(handler MessageHandler) func() {
	cm.hmu.Lock()
	id := cm.nextHandlerID
	cm.nextHandlerID++
	cm.messageHandlers[id] = handler
	cm.hmu.Unlock()
	return func() {
		cm.hmu.Lock()
		delete(cm.messageHandlers, id)
		cm.hmu.Unlock()
	}
}

// AddConnectionHandler registers an observer for state transitions.
func (cm *ConnectionManager) AddConnectionHandler(handler ConnectionHandler) func() {
	cm.hmu.Lock()
	id := cm.nextHandlerID
	cm.nextHandlerID++
	cm.connectionHandlers[id] = handler
	cm.hmu.Unlock()
	return func() {
		cm.hmu.Lock()
		delete(cm.connectionHandlers, id)
		cm.hmu.Unlock()
	}
}

// AddErrorHandler registers an observer for transport and protocol errors.
func (cm *ConnectionManager) AddErrorHandler(handler ErrorHandler) func() {
	cm.hmu.Lock()
	id := cm.nextHandlerID
	cm.nextHandlerID++
	cm.errorHandlers[id] = handler
	cm.hmu.Unlock()
	return func() {
		cm.hmu.Lock()
		delete(cm.errorHandlers, id)
		cm.hmu.Unlock()
	}
}

// AddTextHandler registers an observer for remote text messages.
func (cm *ConnectionManager) AddTextHandler(handler TextHandler) func() {
	cm.hmu.Lock()
	id := cm.nextHandlerID
	cm.nextHandlerID++
	cm.textHandlers[id] = handler
	cm.hmu.Unlock()
	return func() {
		cm.hmu.Lock()
		delete(cm.textHandlers, id)
		cm.hmu.Unlock()
	}
}

// AddVolumeHandler registers an observer for remote-reported volume levels.
func (cm *ConnectionManager) AddVolumeHandler(handler VolumeHandler) func() {
	cm.hmu.Lock()
	id := cm.nextHandlerID
	cm.nextHandlerID++
	cm.volumeHandlers[id] = handler
	cm.hmu.Unlock()
	return func() {
		cm.hmu.Lock()
		delete(cm.volumeHandlers, id)
		cm.hmu.Unlock()
	}
}
