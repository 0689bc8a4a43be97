package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"padel-telegram-notifier/internal/domain/ports/adapter"
	"padel-telegram-notifier/internal/infra/logging"
	"padel-telegram-notifier/internal/infra/metrics"
)

// Compile-time check
var _ JokeUseCase = (*jokeUC)(nil)

const jokeSystemPrompt = "You are the light-hearted assistant of a padel club. " +
	"Answer the member's message with one short, friendly joke, preferably about padel. " +
	"Keep it under three sentences."

type JokeUseCase interface {
	// Reply never fails; provider errors degrade to a fixed placeholder.
	Reply(ctx context.Context, text string) string
}

type jokeUC struct {
	ai              adapter.AIServiceAdapter
	tr              Translator
	maxPromptTokens int
	timeout         time.Duration
	log             *zerolog.Logger
}

func NewJokeUseCase(ai adapter.AIServiceAdapter, tr Translator, maxPromptTokens int, timeout time.Duration, logger *zerolog.Logger) *jokeUC {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &jokeUC{ai: ai, tr: tr, maxPromptTokens: maxPromptTokens, timeout: timeout, log: logger}
}

func (j *jokeUC) Reply(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if text == "" || j.ai == nil {
		metrics.IncJoke("empty")
		return j.tr.T("joke_fallback")
	}
	log := logging.With(ctx, j.log)

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	msgs := j.prompt(ctx, text)
	reply, err := j.ai.Chat(ctx, msgs)
	if err != nil {
		log.Warn().Err(err).Str("provider", j.ai.Name()).Msg("joke generation failed")
		metrics.IncJoke("error")
		return j.tr.T("joke_fallback")
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		metrics.IncJoke("empty")
		return j.tr.T("joke_fallback")
	}
	metrics.IncJoke("ok")
	return reply
}

// prompt builds the message list, shortening the user text when it exceeds
// the prompt budget.
func (j *jokeUC) prompt(ctx context.Context, text string) []adapter.Message {
	build := func(t string) []adapter.Message {
		return []adapter.Message{
			{Role: "system", Content: jokeSystemPrompt},
			{Role: "user", Content: t},
		}
	}
	msgs := build(text)
	if j.maxPromptTokens <= 0 {
		return msgs
	}
	n, err := j.ai.CountTokens(ctx, msgs)
	if err != nil || n <= j.maxPromptTokens {
		return msgs
	}
	runes := []rune(text)
	keep := len(runes) * j.maxPromptTokens / n
	if keep < 1 {
		keep = 1
	}
	return build(string(runes[:keep]))
}
