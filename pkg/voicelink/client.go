package voicelink

import (
	"github.com/gordonklaus/portaudio"
)

// Client assembles the streaming engine: capture, playback scheduling and
// the connection manager, behind one handle. All wire traffic and device
// ownership stays inside the engine; callers interact through messages and
// observer registration.
type Client struct {
	config      *Config
	audioConfig *AudioConfig
	manager     *ConnectionManager
	capture     *CaptureEngine
	scheduler   *PlaybackScheduler
	output      *OutputDevice
	logger      *Logger
}

// NewClient initializes the audio host layer and wires the engine together.
// The microphone and speaker devices themselves are acquired lazily, on
// connect and on the first inbound frame respectively.
func NewClient(config *Config, audioConfig *AudioConfig) (*Client, error) {
	if config == nil {
		config = NewConfig()
	}
	if audioConfig == nil {
		audioConfig = NewAudioConfig()
		LoadAudioConfigFromEnv(audioConfig)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, WrapError(err, ErrCodeDeviceUnavailable)
	}

	scheduler := NewPlaybackScheduler(audioConfig)
	manager := NewConnectionManager(config, scheduler, nil)
	capture := NewCaptureEngine(audioConfig, manager)
	manager.AttachCapture(capture)

	output := NewOutputDevice(audioConfig, scheduler)
	scheduler.AttachOutput(output)

	return &Client{
		config:      config,
		audioConfig: audioConfig,
		manager:     manager,
		capture:     capture,
		scheduler:   scheduler,
		output:      output,
		logger:      GetGlobalLogger().WithComponent("Client"),
	}, nil
}

// Connect opens the transport and, once connected, starts capture.
func (c *Client) Connect() error {
	return c.manager.Connect()
}

// Disconnect closes the transport and stops all streaming.
func (c *Client) Disconnect() {
	c.manager.Disconnect()
}

// Resync asks the remote peer to re-announce its status without
// reconnecting.
func (c *Client) Resync() error {
	return c.manager.Resync()
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	return c.manager.State()
}

// SendText sends a user-authored text message.
func (c *Client) SendText(text string) error {
	return c.manager.Send(TextMessage(text))
}

// ToggleMic requests the remote mic state and mirrors it locally: the
// capture engine only runs while the mic is enabled and the link is up.
func (c *Client) ToggleMic(enabled bool) error {
	err := c.manager.Send(ToggleMicMessage(enabled))
	if enabled {
		if c.manager.State() == Connected {
			if serr := c.capture.Start(); serr != nil && err == nil {
				err = serr
			}
		}
	} else {
		c.capture.Stop()
	}
	return err
}

// ToggleCam requests the remote camera state.
func (c *Client) ToggleCam(enabled bool) error {
	return c.manager.Send(ToggleCamMessage(enabled))
}

// ToggleThink requests think-dialogue mode.
func (c *Client) ToggleThink(enabled bool) error {
	return c.manager.Send(ToggleThinkMessage(enabled))
}

// ShowFeed requests the camera feed display.
func (c *Client) ShowFeed() error {
	return c.manager.Send(ShowFeedMessage())
}

// SendVideoFrame sends one encoded video frame. Opaque to this engine.
func (c *Client) SendVideoFrame(frameBase64 string) error {
	return c.manager.Send(VideoFrameMessage(frameBase64))
}

// StreamFile streams a WAV file through the capture path at realtime pace.
func (c *Client) StreamFile(path string) error {
	source := NewFileSource(c.audioConfig, c.manager)
	return source.Stream(path)
}

// CaptureStats returns a snapshot of capture-side statistics.
func (c *Client) CaptureStats() StreamStatsSnapshot {
	return c.capture.Stats()
}

// AddMessageHandler observes every inbound message.
func (c *Client) AddMessageHandler(handler MessageHandler) func() {
	return c.manager.AddMessageHandler(handler)
}

// AddConnectionHandler observes connection state changes.
func (c *Client) AddConnectionHandler(handler ConnectionHandler) func() {
	return c.manager.AddConnectionHandler(handler)
}

// AddTextHandler observes remote text messages.
func (c *Client) AddTextHandler(handler TextHandler) func() {
	return c.manager.AddTextHandler(handler)
}

// AddCaptureVolumeHandler observes the local microphone activity level.
func (c *Client) AddCaptureVolumeHandler(handler VolumeHandler) func() {
	return c.capture.AddVolumeHandler(handler)
}

// AddPlaybackVolumeHandler observes the decoded playback activity level;
// a 0 marks the idle state.
func (c *Client) AddPlaybackVolumeHandler(handler VolumeHandler) func() {
	return c.scheduler.AddVolumeHandler(handler)
}

// AddRemoteVolumeHandler observes remote-reported diagnostic levels.
func (c *Client) AddRemoteVolumeHandler(handler VolumeHandler) func() {
	return c.manager.AddVolumeHandler(handler)
}

// AddErrorHandler observes errors from every engine component.
func (c *Client) AddErrorHandler(handler ErrorHandler) func() {
	removeConn := c.manager.AddErrorHandler(handler)
	removeCapture := c.capture.AddErrorHandler(handler)
	removeSched := c.scheduler.AddErrorHandler(handler)
	return func() {
		removeConn()
		removeCapture()
		removeSched()
	}
}

// Cleanup releases every held resource. The client is not usable afterward.
func (c *Client) Cleanup() {
	c.manager.Disconnect()
	c.output.Close()
	if err := portaudio.Terminate(); err != nil {
		c.logger.WithError(err).Warn("Failed to terminate PortAudio")
	}
	c.logger.Info("Client cleaned up")
}
