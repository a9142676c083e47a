// Package inference asks a chat model for a character's next line.
//
// A Provider takes the ordered conversation and returns one assistant
// message. Client speaks to any OpenAI-compatible endpoint through go-openai,
// Chain falls back from one provider to the next, and Mock serves tests.
//
//	client, _ := inference.NewClient(
//	    inference.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    inference.WithModel("gpt-3.5-turbo"),
//	)
//	defer client.Close()
//
//	resp, _ := client.Chat(ctx, &inference.ChatRequest{
//	    Messages: []inference.Message{
//	        inference.NewSystemMessage("You are God."),
//	        inference.NewUserMessage("Alice"),
//	    },
//	})
package inference

import (
	"context"
	"time"
)

// Provider is the chat-completion interface.
type Provider interface {
	// Chat returns the assistant's reply to req.Messages.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Health checks connectivity and credentials.
	Health(ctx context.Context) error

	Close() error
}

// Role is who a message is attributed to.
type Role string

const (
	RoleSystem    Role = "system" // character instructions
	RoleUser      Role = "user"   // the caller
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ChatRequest is one completion request. Zero Model, MaxTokens and
// Temperature fall back to the provider's configuration.
type ChatRequest struct {
	Messages    []Message
	Model       string
	MaxTokens   int
	Temperature float64
}

// ChatResponse is the model's reply.
type ChatResponse struct {
	Message      Message
	FinishReason string
	Usage        Usage
	Model        string

	// Latency is the wall time of the request, retries included.
	Latency time.Duration
}

// Usage is the token accounting reported by the service.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
