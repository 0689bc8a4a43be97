package repository

import (
	"context"
	"time"

	"padel-telegram-notifier/internal/domain/model"
)

type MessageRecordRepository interface {
	// Lock takes the per-booking mutual-exclusion scope. It is held until tx
	// ends and must be called before Get when the caller intends to write.
	Lock(ctx context.Context, tx Tx, bookingID string) error

	// Get returns domain.ErrNotFound when the booking was never posted.
	Get(ctx context.Context, tx Tx, bookingID string) (*model.MessageRecord, error)

	// Upsert writes rec only if the stored content hash equals
	// expectedPriorHash ("" matches a missing row). Otherwise it returns
	// domain.ErrConflict.
	Upsert(ctx context.Context, tx Tx, rec *model.MessageRecord, expectedPriorHash string) error

	FindByMessage(ctx context.Context, tx Tx, chatID, messageID int64) (*model.MessageRecord, error)
	MarkDeletedByMessage(ctx context.Context, tx Tx, chatID, messageID int64) error
	MarkStale(ctx context.Context, tx Tx, bookingID string) error

	// Touch records that a posted message was verified unchanged at at.
	// Records in any other status are left alone.
	Touch(ctx context.Context, tx Tx, bookingID string, at time.Time) error

	// ListStale returns records the sweep should reconcile: stale and absent
	// ones first, then posted records whose last sync is older than olderThan.
	ListStale(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.MessageRecord, error)
}
