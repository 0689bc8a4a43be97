package ai

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"padel-telegram-notifier/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAIAdapter)(nil)

// NoopAIAdapter answers locally for dev runs without provider keys.
type NoopAIAdapter struct {
	log *zerolog.Logger
}

func NewNoopAIAdapter(logger *zerolog.Logger) *NoopAIAdapter {
	return &NoopAIAdapter{log: logger}
}

func (a *NoopAIAdapter) Name() string { return "noop" }

func (a *NoopAIAdapter) CountTokens(ctx context.Context, messages []adapter.Message) (int, error) {
	n := 0
	for _, m := range messages {
		n += tokensPerMessage + estimateTokens(m.Content)
	}
	return n, nil
}

func (a *NoopAIAdapter) Chat(ctx context.Context, messages []adapter.Message) (string, error) {
	// Simulate processing and respect ctx
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	a.log.Debug().Int("messages", len(messages)).Msg("[noop-ai] chat")
	return "What do you call a padel player who never misses? Fictional.", nil
}
