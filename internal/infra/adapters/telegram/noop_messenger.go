package telegram

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"padel-telegram-notifier/internal/domain/ports/adapter"
)

var _ Client = (*NoopMessenger)(nil)

// NoopMessenger logs instead of calling Telegram. Used with -dev.
type NoopMessenger struct {
	log    *zerolog.Logger
	nextID int64
}

func NewNoopMessenger(logger *zerolog.Logger) *NoopMessenger {
	return &NoopMessenger{log: logger, nextID: 1000}
}

func (n *NoopMessenger) Ensure(ctx context.Context) error { return nil }

func (n *NoopMessenger) Send(ctx context.Context, chatID int64, content adapter.MessageContent) (int64, error) {
	id := atomic.AddInt64(&n.nextID, 1)
	n.log.Info().Int64("chat_id", chatID).Int64("message_id", id).Str("text", content.Text).Msg("[noop-telegram] send")
	return id, nil
}

func (n *NoopMessenger) Edit(ctx context.Context, chatID, messageID int64, content adapter.MessageContent) error {
	n.log.Info().Int64("chat_id", chatID).Int64("message_id", messageID).Str("text", content.Text).Msg("[noop-telegram] edit")
	return nil
}

func (n *NoopMessenger) Delete(ctx context.Context, chatID, messageID int64) error {
	n.log.Info().Int64("chat_id", chatID).Int64("message_id", messageID).Msg("[noop-telegram] delete")
	return nil
}

func (n *NoopMessenger) Reply(ctx context.Context, chatID int64, text string) error {
	n.log.Info().Int64("chat_id", chatID).Str("text", text).Msg("[noop-telegram] reply")
	return nil
}

func (n *NoopMessenger) AnswerCallback(ctx context.Context, callbackID, text string) error {
	n.log.Info().Str("callback_id", callbackID).Str("text", text).Msg("[noop-telegram] answer callback")
	return nil
}
