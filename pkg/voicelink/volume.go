package voicelink

import "math"

// DefaultCaptureGain compensates for typically quiet microphone input.
const DefaultCaptureGain = 5.0

// VolumeMeter derives a UI activity level from a block of samples.
type VolumeMeter struct {
	Gain float64
}

func NewVolumeMeter(gain float64) *VolumeMeter {
	if gain <= 0 {
		gain = 1
	}
	return &VolumeMeter{Gain: gain}
}

// Level returns the root-mean-square of the block scaled by the meter gain.
// Always >= 0; an empty block reports 0.
func (m *VolumeMeter) Level(block []float32) float64 {
	if len(block) == 0 {
		return 0
	}
	var sum float64
	for _, s := range block {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum/float64(len(block))) * m.Gain
}
