package audio

import (
	"fmt"
	"math"
)

// EncodePCM converts normalized floating-point samples into 16-bit signed
// little-endian PCM bytes. Samples outside [-1.0, 1.0] are clamped, never
// wrapped. The output is always exactly 2*len(samples) bytes.
func EncodePCM(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		v := int16(math.Round(s * 32767))
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}

// DecodePCM converts 16-bit signed little-endian PCM bytes back into
// normalized floating-point samples. The input length must be even.
func DecodePCM(data []byte) ([]float64, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("PCM data length must be even, got %d bytes", len(data))
	}
	samples := make([]float64, len(data)/2)
	for i := range samples {
		v := int16(data[2*i]) | int16(data[2*i+1])<<8
		samples[i] = float64(v) / 32767
	}
	return samples, nil
}

// Silence returns n samples of digital silence. Used to build the short
// priming burst that triggers the remote service to begin a turn.
func Silence(n int) []float64 {
	return make([]float64, n)
}
