package adapter

import "context"

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// AIServiceAdapter is the port for short LLM completions.
type AIServiceAdapter interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// CountTokens returns prompt tokens for the provided messages
	// (best-effort when the provider has no exact counter).
	CountTokens(ctx context.Context, messages []Message) (int, error)

	// Chat returns only the assistant text.
	Chat(ctx context.Context, messages []Message) (string, error)
}
