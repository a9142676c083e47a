package audioio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// Sound is decoded PCM16 ready for playback. Samples are interleaved when
// Channels is 2.
type Sound struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames.
func (s *Sound) Frames() int {
	if s == nil || s.Channels <= 0 {
		return 0
	}
	return len(s.Samples) / s.Channels
}

// Duration returns the playback length.
func (s *Sound) Duration() time.Duration {
	if s == nil || s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(s.Frames()) * time.Second / time.Duration(s.SampleRate)
}

// DecodeMP3 decodes an entire MP3 stream. The result is always stereo.
func DecodeMP3(r io.Reader) (*Sound, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}

	var pcm bytes.Buffer
	if _, err := io.Copy(&pcm, dec); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}

	return &Sound{
		Samples:    BytesToSamples(pcm.Bytes()),
		SampleRate: dec.SampleRate(),
		Channels:   2,
	}, nil
}

// LoadMP3File decodes the MP3 file at path.
func LoadMP3File(path string) (*Sound, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := DecodeMP3(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
