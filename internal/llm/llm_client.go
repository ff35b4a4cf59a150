package llm

import (
	"context"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is one chat-completion call. MaxTokens <= 0 leaves the
// provider default.
type ChatRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// LLMClient is the chat-completion boundary. Implementations make exactly
// one upstream call per Chat.
type LLMClient interface {
	Ping(ctx context.Context) error
	Chat(ctx context.Context, req ChatRequest) (string, error)
	// Name is the provider tag reported to callers ("groq", "openai", ...).
	Name() string
	ModelID() string
}

// System builds the usual two-message request: instruction plus user text.
func System(instruction, userText string, temperature float64) ChatRequest {
	return ChatRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: instruction},
			{Role: RoleUser, Content: userText},
		},
		Temperature: temperature,
	}
}

// StripCodeFence removes a surrounding markdown fence (``` or ```json)
// that models add even when asked for bare JSON.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	// language tag on the opening line
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimLeft(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
