package voice

import (
	"log/slog"

	"github.com/teslashibe/go-rotary/pkg/audioio"
	"github.com/teslashibe/go-rotary/pkg/directory"
)

// Tones holds decoded dial tones keyed by digit.
type Tones map[int]*audioio.Sound

// LoadTones decodes the dial tone of every assigned role. Missing or
// unreadable files are warned about and skipped so the call still connects.
func LoadTones(dir *directory.Directory, logger *slog.Logger) Tones {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "voice.tones")

	tones := make(Tones)
	for _, e := range dir.Entries() {
		if e.Role.DialTone == "" {
			continue
		}
		sound, err := audioio.LoadMP3File(e.Role.DialTone)
		if err != nil {
			logger.Warn("dial tone unavailable", "digit", e.Digit, "file", e.Role.DialTone, "error", err)
			continue
		}
		tones[e.Digit] = sound
		logger.Debug("dial tone loaded", "digit", e.Digit, "duration", sound.Duration())
	}
	return tones
}

// Get returns the tone for digit, or nil when there is none.
func (t Tones) Get(digit int) *audioio.Sound {
	return t[digit]
}
