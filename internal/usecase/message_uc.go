package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"padel-telegram-notifier/internal/domain"
	"padel-telegram-notifier/internal/domain/ports/adapter"
	"padel-telegram-notifier/internal/domain/ports/repository"
	"padel-telegram-notifier/internal/infra/logging"
)

// Compile-time check
var _ MessageUseCase = (*messageUC)(nil)

// MessageUseCase addresses booking messages by their chat coordinates.
type MessageUseCase interface {
	// RefreshByMessage reconciles the booking announced by (chatID, messageID).
	// Returns domain.ErrMessageNotFound when no record points at the message.
	RefreshByMessage(ctx context.Context, chatID, messageID int64) (*SyncResult, error)

	// DeleteMessage removes the message from the platform, then best-effort
	// marks the local record deleted. Only the platform call can fail it.
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

type messageUC struct {
	records   repository.MessageRecordRepository
	messenger adapter.Messenger
	sync      SyncUseCase
	log       *zerolog.Logger
}

func NewMessageUseCase(records repository.MessageRecordRepository, messenger adapter.Messenger, sync SyncUseCase, logger *zerolog.Logger) *messageUC {
	return &messageUC{records: records, messenger: messenger, sync: sync, log: logger}
}

func (m *messageUC) RefreshByMessage(ctx context.Context, chatID, messageID int64) (*SyncResult, error) {
	if chatID == 0 || messageID == 0 {
		return nil, domain.ErrInvalidArgument
	}
	rec, err := m.records.FindByMessage(ctx, repository.NoTX, chatID, messageID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find message record: %w", err)
	}
	return m.sync.Reconcile(ctx, rec.BookingID)
}

func (m *messageUC) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	if chatID == 0 || messageID == 0 {
		return domain.ErrInvalidArgument
	}
	ctx = logging.WithChatID(ctx, chatID)
	log := logging.With(ctx, m.log)

	if err := m.messenger.Delete(ctx, chatID, messageID); err != nil {
		if adapter.KindOf(err) != adapter.ErrorKindNotFound {
			return err
		}
		log.Info().Int64("message_id", messageID).Msg("message already gone")
	}

	// The platform side is done; a failed local write only leaves a stale
	// association that the next reconcile ignores.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultPersistTimeout)
	defer cancel()
	if err := m.records.MarkDeletedByMessage(pctx, repository.NoTX, chatID, messageID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Error().Err(err).Int64("message_id", messageID).Msg("failed to mark message record deleted")
	}
	return nil
}
