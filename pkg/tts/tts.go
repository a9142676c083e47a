// Package tts turns a character's lines into audio.
//
// Every character on the phone has its own voice, so the voice is picked
// per call, not per provider. ElevenLabs is reached over HTTP streaming or
// a one-utterance websocket, and Google Cloud Text-to-Speech serves as the
// fallback. A Chain tries providers in order behind the same Provider
// interface:
//
//	p, _ := tts.NewElevenLabs(tts.WithAPIKey(key), tts.WithVoice(tts.OperatorVoice))
//	stream, _ := p.Stream(ctx, tts.ResolveVoice("anna"), "Hold the line.")
//	defer stream.Close()
//	sink.PlayMP3(ctx, tts.NewReader(stream))
package tts

import (
	"context"
	"io"
	"time"
)

// Provider synthesizes speech. An empty voiceID means the provider's
// configured default voice.
type Provider interface {
	// Synthesize returns the whole utterance at once.
	Synthesize(ctx context.Context, voiceID, text string) (*AudioResult, error)
	// Stream returns audio as it is produced, so playback can start early.
	Stream(ctx context.Context, voiceID, text string) (AudioStream, error)
	Health(ctx context.Context) error
	Close() error
}

// AudioStream yields encoded audio chunks. Read returns nil, nil at the
// end; the caller always closes the stream.
type AudioStream interface {
	Read() ([]byte, error)
	Close() error
	Format() AudioFormat
}

// AudioResult is one synthesized utterance.
type AudioResult struct {
	Audio     []byte
	Format    AudioFormat
	CharCount int
	// Latency is the time until the whole utterance was received.
	Latency time.Duration
}

// AudioFormat describes encoded audio.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
}

func (f AudioFormat) IsMP3() bool {
	return f.Encoding == EncodingMP3
}

// Encoding names an output format the way ElevenLabs does.
type Encoding string

const (
	EncodingPCM16 Encoding = "pcm_16000"
	EncodingPCM22 Encoding = "pcm_22050"
	EncodingPCM24 Encoding = "pcm_24000"
	EncodingPCM44 Encoding = "pcm_44100"
	EncodingMP3   Encoding = "mp3_44100_128"
)

// VoiceSettings tune ElevenLabs voices; each value runs from 0 to 1.
// Lower stability sounds more expressive.
type VoiceSettings struct {
	Stability       float64
	SimilarityBoost float64
	Style           float64
	SpeakerBoost    bool
}

func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{Stability: 0.5, SimilarityBoost: 0.75, SpeakerBoost: true}
}

// SampleRateFromEncoding returns the rate implied by enc. Unknown
// encodings are assumed to be 44.1 kHz.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingPCM16:
		return 16000
	case EncodingPCM22:
		return 22050
	case EncodingPCM24:
		return 24000
	}
	return 44100
}

// NewReader adapts an AudioStream to io.Reader. Closing the stream remains
// the caller's job.
func NewReader(s AudioStream) io.Reader {
	return &streamReader{stream: s}
}

type streamReader struct {
	stream  AudioStream
	pending []byte
	done    bool
}

func (r *streamReader) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		if r.done {
			return 0, io.EOF
		}
		chunk, err := r.stream.Read()
		if err != nil {
			return 0, err
		}
		if chunk == nil {
			r.done = true
			continue
		}
		r.pending = chunk
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// NewBufferStream serves already synthesized audio as a single chunk.
func NewBufferStream(data []byte, format AudioFormat) AudioStream {
	return &bufferStream{data: data, format: format}
}

type bufferStream struct {
	data   []byte
	format AudioFormat
}

func (s *bufferStream) Read() ([]byte, error) {
	chunk := s.data
	s.data = nil
	if len(chunk) == 0 {
		return nil, nil
	}
	return chunk, nil
}

func (s *bufferStream) Close() error        { return nil }
func (s *bufferStream) Format() AudioFormat { return s.format }
