package voicelink

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// Codec converts between normalized float32 sample blocks and the wire
// representation: 16-bit signed little-endian PCM, base64-framed.

const pcmScale = 32768

// EncodeFrame converts a block of normalized samples to a base64 PCM16 frame.
// Samples outside [-1, 1] are clamped before quantization.
func EncodeFrame(block []float32) string {
	buf := make([]byte, len(block)*2)
	for i, s := range block {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int32(s * pcmScale)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v)))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeFrame converts a base64 PCM16 frame back to normalized samples.
// Returns a MALFORMED_FRAME error on invalid base64 or an odd byte count;
// the caller is expected to drop the frame and continue.
func DecodeFrame(frame string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(frame)
	if err != nil {
		return nil, NewMalformedFrameError(fmt.Sprintf("invalid base64 framing: %v", err))
	}
	if len(raw)%2 != 0 {
		return nil, NewMalformedFrameError(fmt.Sprintf("odd PCM16 payload length %d", len(raw)))
	}
	block := make([]float32, len(raw)/2)
	for i := range block {
		v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		block[i] = float32(v) / pcmScale
	}
	return block, nil
}
