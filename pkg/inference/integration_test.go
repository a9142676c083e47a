//go:build integration

package inference

import (
	"cmp"
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

// go test -tags=integration ./pkg/inference/...

func TestOpenAILive(t *testing.T) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		t.Skip("OPENAI_API_KEY not set")
	}
	c, err := NewClient(WithAPIKey(key))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}

	// A character prompt the way a call starts: system, then the caller.
	resp, err := c.Chat(ctx, &ChatRequest{Messages: []Message{
		NewSystemMessage("You are a telephone operator in 1952. Reply in one short sentence."),
		NewUserMessage("Hello?"),
	}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	t.Logf("%q in %s (%d tokens)", resp.Message.Content, resp.Latency, resp.Usage.TotalTokens)
	if strings.TrimSpace(resp.Message.Content) == "" || resp.Message.Role != RoleAssistant {
		t.Errorf("unexpected reply %+v", resp.Message)
	}
}

// Any OpenAI-compatible server, e.g. a local Ollama.
func TestCompatibleServerLive(t *testing.T) {
	base := os.Getenv("OLLAMA_BASE_URL")
	if base == "" {
		t.Skip("OLLAMA_BASE_URL not set")
	}
	c, err := NewClient(WithBaseURL(base), WithModel(cmp.Or(os.Getenv("OLLAMA_MODEL"), "llama3")))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := c.Chat(ctx, &ChatRequest{Messages: []Message{NewUserMessage("Hi")}}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
}
