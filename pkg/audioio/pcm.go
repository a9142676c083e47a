package audioio

import (
	"encoding/binary"
	"math"
)

// Resample converts mono PCM between rates by linear interpolation. Speech
// is the only thing that goes through it, so no filtering is applied.
// Invalid rates and equal rates return samples unchanged.
func Resample(samples []int16, fromRate, toRate int) []int16 {
	if len(samples) == 0 || fromRate <= 0 || toRate <= 0 || fromRate == toRate {
		return samples
	}

	n := int(int64(len(samples)) * int64(toRate) / int64(fromRate))
	out := make([]int16, n)
	step := float64(fromRate) / float64(toRate)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = samples[last]
			continue
		}
		a, b := float64(samples[j]), float64(samples[j+1])
		out[i] = int16(a + (pos-float64(j))*(b-a))
	}
	return out
}

// Downmix averages interleaved frames of the given channel count into mono.
// A trailing partial frame is dropped.
func Downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	mono := make([]int16, len(samples)/channels)
	for i := range mono {
		var sum int32
		for _, s := range samples[i*channels : (i+1)*channels] {
			sum += int32(s)
		}
		mono[i] = int16(sum / int32(channels))
	}
	return mono
}

// BytesToSamples decodes little-endian PCM16. An odd trailing byte is ignored.
func BytesToSamples(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	return out
}

// SamplesToBytes encodes samples as little-endian PCM16.
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, 0, 2*len(samples))
	for _, s := range samples {
		out = binary.LittleEndian.AppendUint16(out, uint16(s))
	}
	return out
}

// RMS is the root mean square of samples, from 0 to 32767. The speech
// detector compares it against its energy threshold.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
