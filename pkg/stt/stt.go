// Package stt provides speech-to-text recognizers for captured utterances.
//
// Two backends are supported: OpenAI Whisper (the default) and Google Cloud
// Speech-to-Text. Every failure is classified into one of two sentinels so
// callers can decide how to react without knowing the backend:
//
//   - ErrUnavailable: the service could not be reached or refused the request
//   - ErrAmbiguous: the service answered but found no plausible speech
//
// Example usage:
//
//	rec, _ := stt.NewWhisper(stt.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	text, err := rec.Transcribe(ctx, clip)
//	switch {
//	case errors.Is(err, stt.ErrAmbiguous):
//	    // ask the caller to repeat
//	case errors.Is(err, stt.ErrUnavailable):
//	    // log and carry on
//	}
package stt

import (
	"context"

	"github.com/teslashibe/go-rotary/pkg/audioio"
)

// Recognizer transcribes a single utterance.
type Recognizer interface {
	// Transcribe returns the recognized text. An empty string with a nil
	// error means the service heard nothing it could write down.
	Transcribe(ctx context.Context, clip *audioio.Clip) (string, error)

	// Name identifies the backend in logs.
	Name() string
}
