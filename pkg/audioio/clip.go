package audioio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"time"
)

// Clip is a captured utterance: mono PCM16 at SampleRate.
type Clip struct {
	Samples    []int16
	SampleRate int
}

// Duration returns the clip length.
func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// Resampled returns a copy of the clip at rate.
func (c *Clip) Resampled(rate int) *Clip {
	return &Clip{Samples: Resample(c.Samples, c.SampleRate, rate), SampleRate: rate}
}

// WAV returns the clip wrapped in a RIFF/WAVE container.
func (c *Clip) WAV() []byte {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer cannot fail.
	_ = WriteWAV(&buf, SamplesToBytes(c.Samples), c.SampleRate)
	return buf.Bytes()
}

// WriteWAV writes little-endian PCM16 mono audio to out as a WAV stream.
func WriteWAV(out io.Writer, pcm []byte, sampleRate int) error {
	const (
		numChannels   = 1
		bitsPerSample = 16
		audioFormat   = 1 // PCM
	)
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	dataSize := uint32(len(pcm))
	header := struct {
		Riff          [4]byte
		Size          uint32
		Wave          [4]byte
		Fmt           [4]byte
		FmtSize       uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Data          [4]byte
		DataSize      uint32
	}{
		Riff:          [4]byte{'R', 'I', 'F', 'F'},
		Size:          36 + dataSize,
		Wave:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   audioFormat,
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * numChannels * bitsPerSample / 8),
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataSize,
	}

	w := bufio.NewWriter(out)
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	if _, err := w.Write(pcm); err != nil {
		return err
	}
	return w.Flush()
}
