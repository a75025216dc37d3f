package voicelink

import (
	"math"
	"testing"
)

func TestLevelSilence(t *testing.T) {
	meter := NewVolumeMeter(DefaultCaptureGain)
	block := make([]float32, 4096)
	if level := meter.Level(block); level != 0 {
		t.Fatalf("expected 0 for silence, got %g", level)
	}
}

func TestLevelSingleSpike(t *testing.T) {
	meter := NewVolumeMeter(DefaultCaptureGain)
	block := make([]float32, 4096)
	block[0] = 1.0

	want := math.Sqrt(1.0/4096) * DefaultCaptureGain
	got := meter.Level(block)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %g, got %g", want, got)
	}
}

func TestLevelGainScaling(t *testing.T) {
	block := []float32{0.5, -0.5, 0.5, -0.5}
	unit := NewVolumeMeter(1).Level(block)
	scaled := NewVolumeMeter(3).Level(block)
	if math.Abs(scaled-3*unit) > 1e-9 {
		t.Fatalf("gain 3 should scale level by 3: got %g vs %g", scaled, unit)
	}
}

func TestLevelNeverNegative(t *testing.T) {
	meter := NewVolumeMeter(1)
	if level := meter.Level([]float32{-0.9, -0.1, -0.5}); level < 0 {
		t.Fatalf("level must be non-negative, got %g", level)
	}
	if level := meter.Level(nil); level != 0 {
		t.Fatalf("empty block must report 0, got %g", level)
	}
}

func TestZeroGainFallsBackToUnity(t *testing.T) {
	meter := NewVolumeMeter(0)
	if meter.Gain != 1 {
		t.Fatalf("expected unity gain fallback, got %g", meter.Gain)
	}
}
