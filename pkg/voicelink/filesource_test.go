package voicelink

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

type collectingSink struct {
	mu     sync.Mutex
	frames []string
}

func (s *collectingSink) SendFrame(audioBase64 string) bool {
	s.mu.Lock()
	s.frames = append(s.frames, audioBase64)
	s.mu.Unlock()
	return true
}

// writeTestWav writes a mono 16-bit sine wave and returns its path.
func writeTestWav(t *testing.T, samples int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer f.Close()

	data := make([]int, samples)
	for i := range data {
		data[i] = int(10000 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	return path
}

func TestStreamDeliversAllSamples(t *testing.T) {
	// Small block size keeps the realtime pacing sleeps short.
	config := NewAudioConfig()
	config.BlockSize = 512

	path := writeTestWav(t, 1200)
	sink := &collectingSink{}
	fsrc := NewFileSource(config, sink)

	var mu sync.Mutex
	volumes := 0
	fsrc.OnVolume = func(float64) {
		mu.Lock()
		volumes++
		mu.Unlock()
	}

	if err := fsrc.Stream(path); err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.frames) != 3 {
		t.Fatalf("expected 3 blocks for 1200 samples at block size 512, got %d", len(sink.frames))
	}

	total := 0
	for _, frame := range sink.frames {
		block, err := DecodeFrame(frame)
		if err != nil {
			t.Fatalf("sink received a malformed frame: %v", err)
		}
		total += len(block)
	}
	if total != 1200 {
		t.Fatalf("expected 1200 samples delivered, got %d", total)
	}

	mu.Lock()
	defer mu.Unlock()
	if volumes != 3 {
		t.Fatalf("expected one volume callback per block, got %d", volumes)
	}
}

func TestStreamPreservesSampleValues(t *testing.T) {
	config := NewAudioConfig()
	config.BlockSize = 512

	path := writeTestWav(t, 512)
	sink := &collectingSink{}
	if err := NewFileSource(config, sink).Stream(path); err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	block, err := DecodeFrame(sink.frames[0])
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	for i := 0; i < 8; i++ {
		want := float32(int(10000*math.Sin(2*math.Pi*440*float64(i)/16000))) / 32768
		if diff := float64(block[i] - want); math.Abs(diff) > 1.0/32768 {
			t.Fatalf("sample %d drifted: want %v, got %v", i, want, block[i])
		}
	}
}

func TestStreamMissingFile(t *testing.T) {
	fsrc := NewFileSource(NewAudioConfig(), &collectingSink{})
	if err := fsrc.Stream(filepath.Join(t.TempDir(), "absent.wav")); !IsErrorCode(err, ErrCodeFileSource) {
		t.Fatalf("expected FILE_SOURCE_ERROR, got %v", err)
	}
}

func TestStreamRejectsNonWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.wav")
	if err := os.WriteFile(path, []byte("definitely not RIFF"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	fsrc := NewFileSource(NewAudioConfig(), &collectingSink{})
	if err := fsrc.Stream(path); !IsErrorCode(err, ErrCodeFileSource) {
		t.Fatalf("expected FILE_SOURCE_ERROR, got %v", err)
	}
}
