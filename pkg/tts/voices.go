package tts

// ElevenLabs voices used by the phone.
const (
	// OperatorVoice answers the phone and reads the directory.
	OperatorVoice = "qHR09fcvu6SoDtFzqFvm" // Ryan, articulate and friendly
)

// ElevenLabsVoices maps friendly preset names to ElevenLabs voice IDs.
// Use ResolveVoice to look up a voice by name or pass through raw IDs.
var ElevenLabsVoices = map[string]string{
	"operator": OperatorVoice,
	"ryan":     OperatorVoice,
	"anna":     "6z4qitu552uH4K9c5vrj", // cute, calming narrator
	"ethan":    "g5CIjZEefAph4nQFvHAz", // creepy whisper
	"rachel":   "21m00Tcm4TlvDq8ikWAM", // American female, calm
	"adam":     "pNInz6obpgDQGcFmaJgB", // American male, deep
}

// ResolveVoice returns the voice ID for a preset name,
// or the input unchanged if it's already a voice ID.
func ResolveVoice(name string) string {
	if id, ok := ElevenLabsVoices[name]; ok {
		return id
	}
	return name // Assume it's already a voice ID
}

// IsPreset returns true if the name is a known preset.
func IsPreset(name string) bool {
	_, ok := ElevenLabsVoices[name]
	return ok
}
