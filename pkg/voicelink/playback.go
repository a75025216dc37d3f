package voicelink

import (
	"sync"
)

// OutputClock is the playback time base, in seconds. The scheduler and its
// cursor share this single clock so comparisons never drift.
type OutputClock interface {
	Now() float64
}

// sampleClock advances as samples are rendered to the output device, which
// keeps scheduling arithmetic exact: one unit, one writer.
type sampleClock struct {
	mu      sync.Mutex
	samples int64
	rate    float64
}

func (c *sampleClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(c.samples) / c.rate
}

func (c *sampleClock) nowSamples() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samples
}

func (c *sampleClock) advance(n int) {
	c.mu.Lock()
	c.samples += int64(n)
	c.mu.Unlock()
}

// outputStarter lazily acquires the playback device. Implemented by
// OutputDevice; nil in tests, which drive RenderBlock directly.
type outputStarter interface {
	EnsureStarted() error
}

// playbackEntry is one scheduled buffer on the gapless timeline.
type playbackEntry struct {
	block       []float32
	start       float64 // seconds on the output clock
	startSample int64
}

// PlaybackScheduler realizes a gapless, ordered timeline from inbound frames.
// Frames are decoded, scheduled at max(cursor, now), and mixed into the
// output by RenderBlock. The active set is handle-indexed so completion can
// remove entries without iterator invalidation.
type PlaybackScheduler struct {
	config *AudioConfig
	clock  *sampleClock
	meter  *VolumeMeter
	device outputStarter
	logger *Logger

	mu           sync.Mutex
	entries      map[int]*playbackEntry
	nextHandle   int
	nextCursor   float64
	deviceFailed bool

	hmu            sync.Mutex
	nextHandlerID  int
	volumeHandlers map[int]VolumeHandler
	errorHandlers  map[int]ErrorHandler
}

func NewPlaybackScheduler(config *AudioConfig) *PlaybackScheduler {
	if config == nil {
		config = NewAudioConfig()
	}
	return &PlaybackScheduler{
		config:         config,
		clock:          &sampleClock{rate: float64(config.PlaybackRate)},
		meter:          NewVolumeMeter(1),
		logger:         GetGlobalLogger().WithComponent("PlaybackScheduler"),
		entries:        make(map[int]*playbackEntry),
		volumeHandlers: make(map[int]VolumeHandler),
		errorHandlers:  make(map[int]ErrorHandler),
	}
}

// AttachOutput binds the real audio sink. The device is opened lazily on the
// first enqueued frame so construction never blocks on device acquisition.
func (ps *PlaybackScheduler) AttachOutput(device outputStarter) {
	ps.mu.Lock()
	ps.device = device
	ps.mu.Unlock()
}

// Clock exposes the scheduler's time base as a read accessor.
func (ps *PlaybackScheduler) Clock() OutputClock {
	return ps.clock
}

// Enqueue decodes an inbound frame and schedules it on the timeline.
// A malformed frame is dropped and reported without disturbing the cursor
// or the active set. Successive buffers never overlap: each starts at the
// later of the cursor and the current output time.
func (ps *PlaybackScheduler) Enqueue(frame string) error {
	block, err := DecodeFrame(frame)
	if err != nil {
		ps.handleError(err.(*StreamError))
		return err
	}

	// Device open may block briefly; keep it outside the timeline lock so it
	// never stalls the render callback.
	ps.mu.Lock()
	device := ps.device
	failed := ps.deviceFailed
	ps.mu.Unlock()
	if device != nil && !failed {
		if derr := device.EnsureStarted(); derr != nil {
			// Reported once; the timeline keeps accepting frames but stays
			// silent until a device becomes available.
			ps.mu.Lock()
			ps.deviceFailed = true
			ps.mu.Unlock()
			ps.handleError(NewDeviceError("playback device unavailable"))
		}
	}

	ps.mu.Lock()
	now := ps.clock.Now()
	start := ps.nextCursor
	if now > start {
		start = now
	}

	handle := ps.nextHandle
	ps.nextHandle++
	ps.entries[handle] = &playbackEntry{
		block:       block,
		start:       start,
		startSample: int64(start*ps.clock.rate + 0.5),
	}
	ps.nextCursor = start + float64(len(block))/ps.clock.rate
	ps.mu.Unlock()

	ps.emitVolume(ps.meter.Level(block))
	return nil
}

// RenderBlock mixes every active entry into out for the next len(out)
// samples and advances the clock. It is invoked by the output device
// callback at the device cadence (and directly by tests).
func (ps *PlaybackScheduler) RenderBlock(out []float32) {
	for i := range out {
		out[i] = 0
	}

	base := ps.clock.nowSamples()
	end := base + int64(len(out))

	ps.mu.Lock()
	var finished []int
	for handle, e := range ps.entries {
		if e.startSample >= end {
			continue
		}
		from := e.startSample - base // may be negative for already-playing entries
		for i := int64(0); i < int64(len(e.block)); i++ {
			pos := from + i
			if pos < 0 {
				continue
			}
			if pos >= int64(len(out)) {
				break
			}
			out[pos] += e.block[i]
		}
		if e.startSample+int64(len(e.block)) <= end {
			finished = append(finished, handle)
		}
	}
	for _, handle := range finished {
		delete(ps.entries, handle)
	}
	becameIdle := len(finished) > 0 && len(ps.entries) == 0
	ps.mu.Unlock()

	ps.clock.advance(len(out))

	if becameIdle {
		ps.emitVolume(0)
	}
}

// Reset stops all active entries and re-bases the cursor at the current
// output time, so a stale timeline cannot leak into a new session.
func (ps *PlaybackScheduler) Reset() {
	ps.mu.Lock()
	hadEntries := len(ps.entries) > 0
	ps.entries = make(map[int]*playbackEntry)
	ps.nextCursor = ps.clock.Now()
	ps.mu.Unlock()

	if hadEntries {
		ps.emitVolume(0)
	}
	ps.logger.Debug("Playback timeline reset")
}

// ActiveCount returns the size of the active set.
func (ps *PlaybackScheduler) ActiveCount() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.entries)
}

// NextCursor returns the end of the scheduled timeline, in seconds.
func (ps *PlaybackScheduler) NextCursor() float64 {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.nextCursor
}

func (ps *PlaybackScheduler) emitVolume(level float64) {
	ps.hmu.Lock()
	handlers := make([]VolumeHandler, 0, len(ps.volumeHandlers))
	for _, h := range ps.volumeHandlers {
		handlers = append(handlers, h)
	}
	ps.hmu.Unlock()
	for _, h := range handlers {
		h(level)
	}
}

func (ps *PlaybackScheduler) handleError(err *StreamError) {
	ps.logger.LogStreamError(err)
	ps.hmu.Lock()
	handlers := make([]ErrorHandler, 0, len(ps.errorHandlers))
	for _, h := range ps.errorHandlers {
		handlers = append(handlers, h)
	}
	ps.hmu.Unlock()
	for _, h := range handlers {
		h(err)
	}
}

// AddVolumeHandler registers a handler for playback volume samples and
// returns a remover. A 0 level signals the idle state.
func (ps *PlaybackScheduler) AddVolumeHandler(handler VolumeHandler) func() {
	ps.hmu.Lock()
	id := ps.nextHandlerID
	ps.nextHandlerID++
	ps.volumeHandlers[id] = handler
	ps.hmu.Unlock()

	return func() {
		ps.hmu.Lock()
		delete(ps.volumeHandlers, id)
		ps.hmu.Unlock()
	}
}

// AddErrorHandler registers an error handler and returns a remover.
func (ps *PlaybackScheduler) AddErrorHandler(handler ErrorHandler) func() {
	ps.hmu.Lock()
	id := ps.nextHandlerID
	ps.nextHandlerID++
	ps.errorHandlers[id] = handler
	ps.hmu.Unlock()

	return func() {
		ps.hmu.Lock()
		delete(ps.errorHandlers, id)
		ps.hmu.Unlock()
	}
}
