package phone

import (
	"testing"

	"github.com/teslashibe/go-rotary/pkg/inference"
)

func TestTranscriptMessages(t *testing.T) {
	tr := NewTranscript()
	tr.Append(SpeakerUser, "Alice")
	tr.Append(SpeakerAssistant, "Hello Alice.")
	tr.Append(SpeakerUser, "Who are you?")

	msgs := tr.Messages("You are the devil.")
	want := []inference.Message{
		inference.NewSystemMessage("You are the devil."),
		inference.NewUserMessage("Alice"),
		inference.NewAssistantMessage("Hello Alice."),
		inference.NewUserMessage("Who are you?"),
	}
	if len(msgs) != len(want) {
		t.Fatalf("Messages() = %+v", msgs)
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Errorf("Messages()[%d] = %+v, want %+v", i, msgs[i], want[i])
		}
	}

	if got := tr.Messages(""); len(got) != 3 {
		t.Errorf("Messages(\"\") len = %d, want 3", len(got))
	}
	if got := tr.UserText(); got != "Alice\nWho are you?" {
		t.Errorf("UserText() = %q", got)
	}
}

func TestTranscriptDropLast(t *testing.T) {
	tr := NewTranscript()
	if tr.DropLast(SpeakerUser) {
		t.Error("DropLast() on empty transcript = true")
	}

	tr.Append(SpeakerUser, "hi")
	tr.Append(SpeakerAssistant, "hello")
	if tr.DropLast(SpeakerUser) {
		t.Error("DropLast(user) removed an assistant turn")
	}
	if !tr.DropLast(SpeakerAssistant) || tr.Len() != 1 {
		t.Errorf("DropLast(assistant) left %d turns", tr.Len())
	}
}

func TestTranscriptTurnsIsCopy(t *testing.T) {
	tr := NewTranscript()
	tr.Append(SpeakerUser, "hi")
	turns := tr.Turns()
	turns[0].Text = "changed"
	if tr.Turns()[0].Text != "hi" {
		t.Error("Turns() exposed internal storage")
	}
}
