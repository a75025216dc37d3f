package voicelink

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// CaptureEngine owns the microphone and produces the outbound frame stream.
// Each captured block yields one volume sample and one encoded audio frame,
// in arrival order. The realtime callback never blocks: when the processing
// side has not drained the previous block, the new block is dropped.
type CaptureEngine struct {
	config *AudioConfig
	meter  *VolumeMeter
	sink   FrameSink
	stats  *StreamStats
	logger *Logger

	stream  *portaudio.Stream
	blocks  chan []float32
	done    chan struct{}
	running bool
	mu      sync.Mutex

	hmu            sync.Mutex
	nextHandlerID  int
	volumeHandlers map[int]VolumeHandler
	errorHandlers  map[int]ErrorHandler
}

func NewCaptureEngine(config *AudioConfig, sink FrameSink) *CaptureEngine {
	if config == nil {
		config = NewAudioConfig()
	}
	return &CaptureEngine{
		config:         config,
		meter:          NewVolumeMeter(config.CaptureGain),
		sink:           sink,
		stats:          NewStreamStats(),
		logger:         GetGlobalLogger().WithComponent("CaptureEngine"),
		volumeHandlers: make(map[int]VolumeHandler),
		errorHandlers:  make(map[int]ErrorHandler),
	}
}

// Start acquires the capture device and begins delivering blocks. Reports
// DEVICE_UNAVAILABLE through the error handlers when no input device can be
// opened; the engine then simply never delivers frames.
func (ce *CaptureEngine) Start() error {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	if ce.running {
		return nil
	}

	// Most recent in-flight block only. A full channel means the processing
	// goroutine is behind, and the realtime callback drops instead of waiting.
	ce.blocks = make(chan []float32, 1)
	ce.done = make(chan struct{})
	blocks := ce.blocks
	done := ce.done

	stream, err := ce.openStream(func(in []float32) {
		select {
		case <-done:
			// Late callback after teardown; must be a no-op.
			return
		default:
		}
		block := make([]float32, len(in))
		copy(block, in)
		select {
		case blocks <- block:
		default:
			ce.stats.AddDropped(1)
		}
	})
	if err != nil {
		close(ce.done)
		ce.blocks = nil
		devErr := WrapError(err, ErrCodeDeviceUnavailable)
		ce.handleError(devErr)
		return devErr
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		close(ce.done)
		ce.blocks = nil
		devErr := WrapError(err, ErrCodeDeviceUnavailable)
		ce.handleError(devErr)
		return devErr
	}

	ce.stream = stream
	ce.running = true
	ce.stats.Reset()
	go ce.processBlocks(blocks, done)

	ce.logger.WithField("sample_rate", ce.config.CaptureRate).
		WithField("block_size", ce.config.BlockSize).
		Info("Capture started")
	return nil
}

// selectCaptureDevice picks the configured device from the host list and
// checks it can capture the requested channel count.
func selectCaptureDevice(devices []*portaudio.DeviceInfo, id, channels int) (*portaudio.DeviceInfo, error) {
	if id < 0 || id >= len(devices) {
		return nil, NewDeviceError(fmt.Sprintf("audio device %d not found", id))
	}
	device := devices[id]
	if device.MaxInputChannels < channels {
		return nil, NewDeviceError(fmt.Sprintf("device %q supports %d input channels, requested %d",
			device.Name, device.MaxInputChannels, channels))
	}
	return device, nil
}

// openStream opens the configured capture device, or the host default when
// no device id is set.
func (ce *CaptureEngine) openStream(callback func([]float32)) (*portaudio.Stream, error) {
	if ce.config.DeviceID == nil {
		return portaudio.OpenDefaultStream(
			ce.config.Channels, 0, float64(ce.config.CaptureRate), ce.config.BlockSize, callback)
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	device, err := selectCaptureDevice(devices, *ce.config.DeviceID, ce.config.Channels)
	if err != nil {
		return nil, err
	}

	params := portaudio.LowLatencyParameters(device, nil)
	params.Input.Channels = ce.config.Channels
	params.SampleRate = float64(ce.config.CaptureRate)
	params.FramesPerBuffer = ce.config.BlockSize
	return portaudio.OpenStream(params, callback)
}

// processBlocks handles volume metering, encoding and handoff off the
// realtime callback path, preserving block order.
func (ce *CaptureEngine) processBlocks(blocks <-chan []float32, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case block := <-blocks:
			level := ce.meter.Level(block)
			ce.emitVolume(level)
			ce.stats.AddBlock(len(block), level)

			frame := EncodeFrame(block)
			if ce.sink != nil && !ce.sink.SendFrame(frame) {
				ce.stats.AddDropped(1)
			}
		}
	}
}

// Stop releases the capture device. Idempotent: stopping twice, or stopping
// when never started, is a no-op.
func (ce *CaptureEngine) Stop() {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	if !ce.running {
		return
	}
	ce.running = false
	close(ce.done)

	if err := ce.stream.Stop(); err != nil {
		ce.logger.WithError(err).Warn("Failed to stop capture stream")
	}
	if err := ce.stream.Close(); err != nil {
		ce.logger.WithError(err).Warn("Failed to close capture stream")
	}
	ce.stream = nil
	ce.blocks = nil

	ce.logger.Info("Capture stopped")
}

// IsRunning reports whether the capture device is currently delivering blocks.
func (ce *CaptureEngine) IsRunning() bool {
	ce.mu.Lock()
	defer ce.mu.Unlock()
	return ce.running
}

// Stats returns a snapshot of capture statistics.
func (ce *CaptureEngine) Stats() StreamStatsSnapshot {
	return ce.stats.Snapshot()
}

func (ce *CaptureEngine) emitVolume(level float64) {
	ce.hmu.Lock()
	handlers := make([]VolumeHandler, 0, len(ce.volumeHandlers))
	for _, h := range ce.volumeHandlers {
		handlers = append(handlers, h)
	}
	ce.hmu.Unlock()
	for _, h := range handlers {
		h(level)
	}
}

func (ce *CaptureEngine) handleError(err *StreamError) {
	ce.logger.LogStreamError(err)
	ce.hmu.Lock()
	handlers := make([]ErrorHandler, 0, len(ce.errorHandlers))
	for _, h := range ce.errorHandlers {
		handlers = append(handlers, h)
	}
	ce.hmu.Unlock()
	for _, h := range handlers {
		h(err)
	}
}

// AddVolumeHandler registers a handler for capture volume samples and
// returns a function that removes it.
func (ce *CaptureEngine) AddVolumeHandler(handler VolumeHandler) func() {
	ce.hmu.Lock()
	id := ce.nextHandlerID
	ce.nextHandlerID++
	ce.volumeHandlers[id] = handler
	ce.hmu.Unlock()

	return func() {
		ce.hmu.Lock()
		delete(ce.volumeHandlers, id)
		ce.hmu.Unlock()
	}
}

// AddErrorHandler registers an error handler and returns a remover.
func (ce *CaptureEngine) AddErrorHandler(handler ErrorHandler) func() {
	ce.hmu.Lock()
	id := ce.nextHandlerID
	ce.nextHandlerID++
	ce.errorHandlers[id] = handler
	ce.hmu.Unlock()

	return func() {
		ce.hmu.Lock()
		delete(ce.errorHandlers, id)
		ce.hmu.Unlock()
	}
}
