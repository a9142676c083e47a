package phone

import (
	"strings"
	"sync"

	"github.com/teslashibe/go-rotary/pkg/inference"
)

// Speaker identifies who said a turn.
type Speaker string

const (
	SpeakerSystem    Speaker = "system"
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one line of a conversation.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Transcript is the ordered record of one call. It is safe to read from
// other goroutines while the call appends to it.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds a turn.
func (t *Transcript) Append(speaker Speaker, text string) Turn {
	turn := Turn{Speaker: speaker, Text: text}
	t.mu.Lock()
	t.turns = append(t.turns, turn)
	t.mu.Unlock()
	return turn
}

// DropLast removes the most recent turn if it was said by speaker.
func (t *Transcript) DropLast(speaker Speaker) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.turns)
	if n == 0 || t.turns[n-1].Speaker != speaker {
		return false
	}
	t.turns = t.turns[:n-1]
	return true
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Turns returns a copy of the turns.
func (t *Transcript) Turns() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Messages returns the chat messages for the whole conversation, led by the
// system prompt when it is not empty.
func (t *Transcript) Messages(systemPrompt string) []inference.Message {
	turns := t.Turns()
	msgs := make([]inference.Message, 0, len(turns)+1)
	if systemPrompt != "" {
		msgs = append(msgs, inference.NewSystemMessage(systemPrompt))
	}
	for _, turn := range turns {
		msgs = append(msgs, inference.Message{Role: inference.Role(turn.Speaker), Content: turn.Text})
	}
	return msgs
}

// UserText joins everything the caller said, one turn per line.
func (t *Transcript) UserText() string {
	var lines []string
	for _, turn := range t.Turns() {
		if turn.Speaker == SpeakerUser {
			lines = append(lines, turn.Text)
		}
	}
	return strings.Join(lines, "\n")
}
