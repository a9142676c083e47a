package phone

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teslashibe/go-rotary/pkg/inference"
)

// PromptMode selects how a transcript is sent to the chat service.
type PromptMode string

const (
	// PromptTranscript sends the system prompt followed by every turn.
	PromptTranscript PromptMode = "transcript"
	// PromptConcatenated sends the system prompt and a single user message
	// holding everything the caller said.
	PromptConcatenated PromptMode = "concatenated"
)

// ParsePromptMode validates a mode name.
func ParsePromptMode(s string) (PromptMode, error) {
	switch m := PromptMode(strings.ToLower(strings.TrimSpace(s))); m {
	case PromptTranscript, PromptConcatenated:
		return m, nil
	case "":
		return PromptTranscript, nil
	default:
		return "", fmt.Errorf("phone: unknown prompt mode %q", s)
	}
}

// Chat turns a transcript into the character's next line.
type Chat struct {
	provider inference.Provider
	mode     PromptMode
	logger   *slog.Logger
}

// NewChat creates a Chat. An empty mode means PromptTranscript.
func NewChat(provider inference.Provider, mode PromptMode, logger *slog.Logger) *Chat {
	if logger == nil {
		logger = slog.Default()
	}
	if mode == "" {
		mode = PromptTranscript
	}
	return &Chat{
		provider: provider,
		mode:     mode,
		logger:   logger.With("component", "phone.chat"),
	}
}

// Reply sends the conversation so far and returns the trimmed answer.
// An empty answer is an error.
func (c *Chat) Reply(ctx context.Context, t *Transcript, systemPrompt string) (string, error) {
	req := &inference.ChatRequest{Messages: c.messages(t, systemPrompt)}
	c.logger.Debug("sending transcript", "mode", c.mode, "messages", len(req.Messages))

	resp, err := c.provider.Chat(ctx, req)
	if err != nil {
		return "", err
	}

	reply := strings.TrimSpace(resp.Message.Content)
	if reply == "" {
		return "", inference.ErrEmptyReply
	}
	c.logger.Debug("completion", "finish_reason", resp.FinishReason, "tokens", resp.Usage.TotalTokens)
	return reply, nil
}

func (c *Chat) messages(t *Transcript, systemPrompt string) []inference.Message {
	if c.mode != PromptConcatenated {
		return t.Messages(systemPrompt)
	}
	var msgs []inference.Message
	if systemPrompt != "" {
		msgs = append(msgs, inference.NewSystemMessage(systemPrompt))
	}
	return append(msgs, inference.NewUserMessage(t.UserText()))
}
