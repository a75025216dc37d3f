package voicelink

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// FileSource streams a WAV file through the same sink path as live capture,
// block by block at realtime pace. Useful for driving a session without a
// microphone.
type FileSource struct {
	config *AudioConfig
	meter  *VolumeMeter
	sink   FrameSink
	logger *Logger

	// OnVolume, when set, receives the metered level of each sent block.
	OnVolume VolumeHandler
}

func NewFileSource(config *AudioConfig, sink FrameSink) *FileSource {
	if config == nil {
		config = NewAudioConfig()
	}
	return &FileSource{
		config: config,
		meter:  NewVolumeMeter(config.CaptureGain),
		sink:   sink,
		logger: GetGlobalLogger().WithComponent("FileSource"),
	}
}

// Stream reads the file and pushes fixed-size blocks to the sink, sleeping
// one block duration between sends. Frames the sink cannot take are dropped,
// matching live capture semantics.
func (fs *FileSource) Stream(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return WrapError(err, ErrCodeFileSource)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return NewStreamError(fmt.Sprintf("not a valid WAV file: %s", path), ErrCodeFileSource)
	}

	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		return WrapError(err, ErrCodeFileSource)
	}

	bitDepth := int(decoder.BitDepth)
	if pcm.SourceBitDepth > 0 {
		bitDepth = pcm.SourceBitDepth
	}
	scale := float32(int64(1) << (bitDepth - 1))

	samples := make([]float32, len(pcm.Data))
	for i, v := range pcm.Data {
		samples[i] = float32(v) / scale
	}

	fs.logger.WithField("path", path).
		WithField("samples", len(samples)).
		WithField("sample_rate", decoder.SampleRate).
		Info("Streaming file")

	blockDuration := time.Duration(float64(fs.config.BlockSize) / float64(fs.config.CaptureRate) * float64(time.Second))

	for start := 0; start < len(samples); start += fs.config.BlockSize {
		end := start + fs.config.BlockSize
		if end > len(samples) {
			end = len(samples)
		}
		block := samples[start:end]

		if fs.OnVolume != nil {
			fs.OnVolume(fs.meter.Level(block))
		}
		if fs.sink != nil && !fs.sink.SendFrame(EncodeFrame(block)) {
			fs.logger.Debug("Sink busy, frame dropped")
		}

		time.Sleep(blockDuration)
	}
	return nil
}
