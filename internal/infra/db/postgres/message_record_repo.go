package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"padel-telegram-notifier/internal/domain"
	"padel-telegram-notifier/internal/domain/model"
	"padel-telegram-notifier/internal/domain/ports/repository"
)

var _ repository.MessageRecordRepository = (*MessageRecordRepo)(nil)

type MessageRecordRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRecordRepo(pool *pgxpool.Pool) *MessageRecordRepo {
	return &MessageRecordRepo{pool: pool}
}

const messageRecordColumns = `booking_id, chat_id, message_id, content_hash, status, last_synced_at, created_at, updated_at`

// Lock takes a transaction-scoped advisory lock keyed by the booking id. It
// requires a real transaction; on the pool it would be released immediately.
func (r *MessageRecordRepo) Lock(ctx context.Context, tx repository.Tx, bookingID string) error {
	ptx, ok := tx.(pgx.Tx)
	if !ok {
		return domain.ErrInvalidExecContext
	}
	if _, err := ptx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1));`, bookingID); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

func (r *MessageRecordRepo) Get(ctx context.Context, tx repository.Tx, bookingID string) (*model.MessageRecord, error) {
	q := `SELECT ` + messageRecordColumns + ` FROM message_records WHERE booking_id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, bookingID)
	if err != nil {
		return nil, err
	}
	return scanMessageRecord(row)
}

func (r *MessageRecordRepo) Upsert(ctx context.Context, tx repository.Tx, rec *model.MessageRecord, expectedPriorHash string) error {
	lastSynced := rec.LastSyncedAt
	if lastSynced.IsZero() {
		lastSynced = time.Now()
	}

	var q string
	args := []interface{}{rec.BookingID, rec.ChatID, rec.MessageID, rec.ContentHash, string(rec.Status), lastSynced}
	if expectedPriorHash == "" {
		// A missing row or a cleared one (empty hash) may be written.
		q = `
INSERT INTO message_records (` + messageRecordColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()), NOW())
ON CONFLICT (booking_id) DO UPDATE SET
  chat_id = EXCLUDED.chat_id,
  message_id = EXCLUDED.message_id,
  content_hash = EXCLUDED.content_hash,
  status = EXCLUDED.status,
  last_synced_at = EXCLUDED.last_synced_at,
  updated_at = NOW()
WHERE message_records.content_hash = '';`
		args = append(args, nullTime(rec.CreatedAt))
	} else {
		q = `
UPDATE message_records SET
  chat_id = $2,
  message_id = $3,
  content_hash = $4,
  status = $5,
  last_synced_at = $6,
  updated_at = NOW()
WHERE booking_id = $1 AND content_hash = $7;`
		args = append(args, expectedPriorHash)
	}

	tag, err := execSQL(ctx, r.pool, tx, q, args...)
	if err != nil {
		return fmt.Errorf("upsert message record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *MessageRecordRepo) FindByMessage(ctx context.Context, tx repository.Tx, chatID, messageID int64) (*model.MessageRecord, error) {
	q := `SELECT ` + messageRecordColumns + ` FROM message_records
WHERE chat_id = $1 AND message_id = $2 AND message_id <> 0
ORDER BY updated_at DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, chatID, messageID)
	if err != nil {
		return nil, err
	}
	return scanMessageRecord(row)
}

func (r *MessageRecordRepo) MarkDeletedByMessage(ctx context.Context, tx repository.Tx, chatID, messageID int64) error {
	const q = `
UPDATE message_records SET status = 'deleted', updated_at = NOW()
WHERE chat_id = $1 AND message_id = $2 AND message_id <> 0;`
	tag, err := execSQL(ctx, r.pool, tx, q, chatID, messageID)
	if err != nil {
		return fmt.Errorf("mark deleted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkStale flags a posted record for the sweep. Records in any other status
// are left alone.
func (r *MessageRecordRepo) MarkStale(ctx context.Context, tx repository.Tx, bookingID string) error {
	const q = `
UPDATE message_records SET status = 'stale', updated_at = NOW()
WHERE booking_id = $1 AND status = 'posted';`
	if _, err := execSQL(ctx, r.pool, tx, q, bookingID); err != nil {
		return fmt.Errorf("mark stale: %w", err)
	}
	return nil
}

func (r *MessageRecordRepo) Touch(ctx context.Context, tx repository.Tx, bookingID string, at time.Time) error {
	const q = `
UPDATE message_records SET last_synced_at = $2, updated_at = NOW()
WHERE booking_id = $1 AND status = 'posted';`
	if _, err := execSQL(ctx, r.pool, tx, q, bookingID, at); err != nil {
		return fmt.Errorf("touch: %w", err)
	}
	return nil
}

// ListStale orders records that are known to need work ahead of posted ones
// that are merely due for a check, so the latter cannot fill the batch.
func (r *MessageRecordRepo) ListStale(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.MessageRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + messageRecordColumns + ` FROM message_records
WHERE status IN ('stale', 'absent') OR (status = 'posted' AND last_synced_at < $1)
ORDER BY (status = 'posted'), last_synced_at
LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale: %w", err)
	}
	defer rows.Close()

	var out []*model.MessageRecord
	for rows.Next() {
		rec, err := scanMessageRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanMessageRecord(row pgx.Row) (*model.MessageRecord, error) {
	var (
		rec    model.MessageRecord
		status string
	)
	err := row.Scan(&rec.BookingID, &rec.ChatID, &rec.MessageID, &rec.ContentHash, &status,
		&rec.LastSyncedAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: message record: %v", domain.ErrReadDatabaseRow, err)
	}
	rec.Status = model.MessageStatus(status)
	return &rec, nil
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
