package voicelink

import (
	"encoding/base64"
	"math"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	block := make([]float32, 512)
	for i := range block {
		block[i] = float32(math.Sin(float64(i) * 0.1))
	}

	decoded, err := DecodeFrame(EncodeFrame(block))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(decoded) != len(block) {
		t.Fatalf("expected %d samples, got %d", len(block), len(decoded))
	}
	for i := range block {
		diff := math.Abs(float64(block[i]) - float64(decoded[i]))
		if diff > 1.0/32768 {
			t.Fatalf("sample %d: diff %g exceeds quantization bound", i, diff)
		}
	}
}

func TestEncodeClampsOutOfRange(t *testing.T) {
	decoded, err := DecodeFrame(EncodeFrame([]float32{2.0, -2.0, 1.0, -1.0}))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded[0] != decoded[2] {
		t.Errorf("2.0 and 1.0 should clamp to the same value, got %g and %g", decoded[0], decoded[2])
	}
	if decoded[1] != decoded[3] {
		t.Errorf("-2.0 and -1.0 should clamp to the same value, got %g and %g", decoded[1], decoded[3])
	}
	if decoded[3] != -1.0 {
		t.Errorf("expected -1.0, got %g", decoded[3])
	}
}

func TestDecodeRejectsOddLength(t *testing.T) {
	frame := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	if _, err := DecodeFrame(frame); !IsErrorCode(err, ErrCodeMalformedFrame) {
		t.Fatalf("expected MALFORMED_FRAME, got %v", err)
	}
}

func TestDecodeRejectsInvalidBase64(t *testing.T) {
	if _, err := DecodeFrame("!!not base64!!"); !IsErrorCode(err, ErrCodeMalformedFrame) {
		t.Fatalf("expected MALFORMED_FRAME, got %v", err)
	}
}

func TestEncodeEmptyBlock(t *testing.T) {
	decoded, err := DecodeFrame(EncodeFrame(nil))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(decoded) != 0 {
		t.Fatalf("expected empty block, got %d samples", len(decoded))
	}
}
