package ai

import (
	"context"
	"errors"
	"strings"

	"padel-telegram-notifier/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*FallbackAIAdapter)(nil)

// FallbackAIAdapter asks providers in order until one returns a non-empty
// reply.
type FallbackAIAdapter struct {
	providers []adapter.AIServiceAdapter
}

// NewFallbackAIAdapter skips nil providers. It returns nil when none are left
// so callers can substitute a noop adapter.
func NewFallbackAIAdapter(providers ...adapter.AIServiceAdapter) *FallbackAIAdapter {
	var ps []adapter.AIServiceAdapter
	for _, p := range providers {
		if p != nil {
			ps = append(ps, p)
		}
	}
	if len(ps) == 0 {
		return nil
	}
	return &FallbackAIAdapter{providers: ps}
}

func (f *FallbackAIAdapter) Name() string {
	names := make([]string, 0, len(f.providers))
	for _, p := range f.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, ">")
}

// CountTokens uses the first provider that can count.
func (f *FallbackAIAdapter) CountTokens(ctx context.Context, messages []adapter.Message) (int, error) {
	var errs []error
	for _, p := range f.providers {
		n, err := p.CountTokens(ctx, messages)
		if err == nil {
			return n, nil
		}
		errs = append(errs, err)
	}
	return 0, errors.Join(errs...)
}

func (f *FallbackAIAdapter) Chat(ctx context.Context, messages []adapter.Message) (string, error) {
	var errs []error
	for _, p := range f.providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		reply, err := p.Chat(ctx, messages)
		if err == nil && strings.TrimSpace(reply) != "" {
			return reply, nil
		}
		if err == nil {
			err = errors.New(p.Name() + ": empty reply")
		}
		errs = append(errs, err)
	}
	return "", errors.Join(errs...)
}
