package voicelink

import (
	"sync"

	"github.com/gordonklaus/portaudio"
)

// OutputDevice owns the playback sink: a mono portaudio output stream at the
// inbound frame rate whose callback pulls rendered samples from the
// scheduler. Opened lazily on the first enqueued frame, released on Close.
type OutputDevice struct {
	config    *AudioConfig
	scheduler *PlaybackScheduler
	logger    *Logger

	mu      sync.Mutex
	stream  *portaudio.Stream
	started bool
	closed  bool
}

func NewOutputDevice(config *AudioConfig, scheduler *PlaybackScheduler) *OutputDevice {
	if config == nil {
		config = NewAudioConfig()
	}
	return &OutputDevice{
		config:    config,
		scheduler: scheduler,
		logger:    GetGlobalLogger().WithComponent("OutputDevice"),
	}
}

// EnsureStarted opens and starts the output stream if not already running.
func (od *OutputDevice) EnsureStarted() error {
	od.mu.Lock()
	defer od.mu.Unlock()

	if od.started || od.closed {
		return nil
	}

	stream, err := portaudio.OpenDefaultStream(
		0, od.config.Channels, float64(od.config.PlaybackRate), od.config.BlockSize,
		func(out []float32) {
			od.mu.Lock()
			closed := od.closed
			od.mu.Unlock()
			if closed {
				// Late callback after Close; leave silence.
				for i := range out {
					out[i] = 0
				}
				return
			}
			od.scheduler.RenderBlock(out)
		})
	if err != nil {
		return WrapError(err, ErrCodeDeviceUnavailable)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return WrapError(err, ErrCodeDeviceUnavailable)
	}

	od.stream = stream
	od.started = true
	od.logger.WithField("sample_rate", od.config.PlaybackRate).Info("Playback output started")
	return nil
}

// Close stops and releases the output stream. Idempotent. The stream is
// stopped outside the lock because Stop waits for the render callback, and
// the callback takes the same lock.
func (od *OutputDevice) Close() {
	od.mu.Lock()
	if od.closed {
		od.mu.Unlock()
		return
	}
	od.closed = true
	stream := od.stream
	od.stream = nil
	od.started = false
	od.mu.Unlock()

	if stream != nil {
		if err := stream.Stop(); err != nil {
			od.logger.WithError(err).Warn("Failed to stop output stream")
		}
		if err := stream.Close(); err != nil {
			od.logger.WithError(err).Warn("Failed to close output stream")
		}
	}

	od.logger.Info("Playback output closed")
}
