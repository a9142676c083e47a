// Package voice speaks on the phone line.
//
// A Voice turns text into audio with a tts.Provider and plays it through an
// audioio.Sink, blocking until the handset has heard the whole utterance.
// Synthesis and playback failures are logged and dropped: a lost sentence
// never ends a call.
//
//	v := voice.New(provider, sink, voice.DefaultConfig(), logger)
//	v.Speak(ctx, tts.OperatorVoice, "Please dial a single digit to proceed.")
//
// Dial tones are decoded once at startup with LoadTones and played with
// PlayTone before a call connects.
package voice
