package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"padel-telegram-notifier/internal/domain"
	"padel-telegram-notifier/internal/domain/model"
	"padel-telegram-notifier/internal/domain/ports/adapter"
	"padel-telegram-notifier/internal/domain/ports/repository"
	"padel-telegram-notifier/internal/infra/logging"
	"padel-telegram-notifier/internal/infra/metrics"
)

// Compile-time check
var _ SyncUseCase = (*syncUC)(nil)

type SyncAction string

const (
	SyncActionNone     SyncAction = "none"
	SyncActionCreate   SyncAction = "create"
	SyncActionEdit     SyncAction = "edit"
	SyncActionRecreate SyncAction = "recreate" // edit hit not_found, posted again
	SyncActionDelete   SyncAction = "delete"
	SyncActionRestore  SyncAction = "restore" // stale record already matched, status reset
)

type SyncResult struct {
	BookingID   string     `json:"bookingId"`
	Action      SyncAction `json:"action"`
	ChatID      int64      `json:"chatId,omitempty"`
	MessageID   int64      `json:"messageId,omitempty"`
	ContentHash string     `json:"contentHash,omitempty"`
}

type SyncStage string

const (
	// SyncStageExternal: the platform call failed, nothing changed locally.
	// Retrying the whole reconcile is safe.
	SyncStageExternal SyncStage = "external"
	// SyncStagePersistence: the platform call succeeded but the record was
	// not written. Do not repeat the platform call blindly; the next
	// reconcile re-derives state and recovers through the hash/not-found path.
	SyncStagePersistence SyncStage = "persistence"
)

// SyncError reports which half of a reconcile completed.
type SyncError struct {
	BookingID string
	Stage     SyncStage
	Action    SyncAction
	Kind      adapter.ErrorKind // platform error kind for the external stage
	MessageID int64             // message confirmed on the platform, if any
	Err       error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("reconcile booking %s: %s %s failed: %v", e.BookingID, e.Action, e.Stage, e.Err)
}

// Unwrap exposes both the stage sentinel and the cause to errors.Is/As.
func (e *SyncError) Unwrap() []error {
	return []error{e.sentinel(), e.Err}
}

func (e *SyncError) sentinel() error {
	switch {
	case e.Stage == SyncStagePersistence:
		return domain.ErrPersistence
	case e.Kind.Retryable():
		return domain.ErrTransientUpstream
	default:
		return domain.ErrUpstream
	}
}

type SyncUseCase interface {
	// Reconcile brings the channel message of bookingID in line with the
	// current booking snapshot.
	Reconcile(ctx context.Context, bookingID string) (*SyncResult, error)
}

const (
	defaultSyncTimeout    = 20 * time.Second
	defaultPersistTimeout = 5 * time.Second
)

type SyncOptions struct {
	ChatID         int64         // channel that receives new booking messages
	Timeout        time.Duration // bound for the whole reconcile transaction
	PersistTimeout time.Duration // bound for writes after a confirmed platform call
}

type syncUC struct {
	bookings  repository.BookingRepository
	records   repository.MessageRecordRepository
	tm        repository.TransactionManager
	messenger adapter.Messenger
	renderer  *BookingRenderer
	opts      SyncOptions
	log       *zerolog.Logger
	now       func() time.Time
}

func NewSyncUseCase(
	bookings repository.BookingRepository,
	records repository.MessageRecordRepository,
	tm repository.TransactionManager,
	messenger adapter.Messenger,
	renderer *BookingRenderer,
	opts SyncOptions,
	logger *zerolog.Logger,
) *syncUC {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSyncTimeout
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaultPersistTimeout
	}
	return &syncUC{
		bookings:  bookings,
		records:   records,
		tm:        tm,
		messenger: messenger,
		renderer:  renderer,
		opts:      opts,
		log:       logger,
		now:       time.Now,
	}
}

// attempt carries what one reconcile has done so far.
type attempt struct {
	bookingID string
	tx        repository.Tx
	// txCtx is detached from caller cancellation so that writes after a
	// confirmed platform call still land when the caller goes away.
	txCtx        context.Context
	action       SyncAction
	prior        *model.MessageRecord
	externalDone bool
	messageID    int64
}

func (s *syncUC) Reconcile(ctx context.Context, bookingID string) (*SyncResult, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return nil, domain.ErrInvalidArgument
	}
	ctx = logging.WithBookingID(ctx, bookingID)
	log := logging.With(ctx, s.log)
	defer logging.TraceDuration(log, "SyncUC.Reconcile")()
	start := time.Now()

	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.Timeout)
	defer cancel()
	callCtx, cancelCall := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancelCall()

	at := &attempt{bookingID: bookingID, action: SyncActionNone}
	var res *SyncResult
	err := s.tm.WithTx(txCtx, pgx.TxOptions{}, func(txCtx context.Context, tx repository.Tx) error {
		at.tx, at.txCtx = tx, txCtx
		r, err := s.reconcileLocked(callCtx, at)
		res = r
		return err
	})

	if err != nil {
		var se *SyncError
		if !errors.As(err, &se) && at.externalDone {
			// The platform call went through but the commit did not.
			se = &SyncError{BookingID: bookingID, Stage: SyncStagePersistence, Action: at.action, MessageID: at.messageID, Err: err}
			err = se
		}
		s.afterFailure(ctx, at, err)
		metrics.ObserveSync(string(at.action), resultLabel(err), time.Since(start))
		return nil, err
	}

	metrics.ObserveSync(string(res.Action), "ok", time.Since(start))
	if res.Action != SyncActionNone {
		log.Info().Str("action", string(res.Action)).Int64("message_id", res.MessageID).Msg("booking message reconciled")
	}
	return res, nil
}

func (s *syncUC) reconcileLocked(ctx context.Context, at *attempt) (*SyncResult, error) {
	if err := s.records.Lock(at.txCtx, at.tx, at.bookingID); err != nil {
		return nil, fmt.Errorf("lock message record: %w", err)
	}
	snap, err := s.bookings.GetSnapshot(at.txCtx, at.tx, at.bookingID)
	if err != nil {
		return nil, err
	}
	rec, err := s.records.Get(at.txCtx, at.tx, at.bookingID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		rec = nil
	case err != nil:
		return nil, fmt.Errorf("load message record: %w", err)
	}
	at.prior = rec

	if snap.Booking.IsCancelled() {
		if !rec.HasLiveMessage() {
			if rec != nil && rec.Status == model.MessageStatusAbsent {
				// A create was pending; the sweep has nothing left to post.
				retired := *rec
				retired.Status = model.MessageStatusDeleted
				retired.LastSyncedAt = s.now()
				if err := s.persist(at, &retired, rec.ContentHash); err != nil {
					return nil, err
				}
			}
			return s.noop(rec, at.bookingID), nil
		}
		at.action = SyncActionDelete
		return s.deleteMessage(ctx, at, rec)
	}

	content := s.renderer.Render(snap)
	hash := HashContent(content)
	switch {
	case !rec.HasLiveMessage():
		at.action = SyncActionCreate
		return s.createMessage(ctx, at, rec, content, hash)
	case rec.ContentHash != hash:
		at.action = SyncActionEdit
		return s.editMessage(ctx, at, rec, content, hash)
	case rec.Status == model.MessageStatusStale:
		at.action = SyncActionRestore
		restored := *rec
		restored.Status = model.MessageStatusPosted
		restored.LastSyncedAt = s.now()
		if err := s.persist(at, &restored, rec.ContentHash); err != nil {
			return nil, err
		}
		return resultFor(at.bookingID, SyncActionRestore, &restored), nil
	default:
		// Verified in sync; keeps the record out of the next sweep.
		if err := s.records.Touch(at.txCtx, at.tx, at.bookingID, s.now()); err != nil {
			return nil, fmt.Errorf("touch message record: %w", err)
		}
		return s.noop(rec, at.bookingID), nil
	}
}

func (s *syncUC) createMessage(ctx context.Context, at *attempt, rec *model.MessageRecord, content adapter.MessageContent, hash string) (*SyncResult, error) {
	chatID := s.opts.ChatID
	// Never retried here: a timed-out send may still have posted.
	msgID, err := s.messenger.Send(ctx, chatID, content)
	if err != nil {
		return nil, s.externalErr(at, err)
	}
	at.externalDone, at.messageID = true, msgID

	now := s.now()
	next := &model.MessageRecord{
		BookingID:    at.bookingID,
		ChatID:       chatID,
		MessageID:    msgID,
		ContentHash:  hash,
		Status:       model.MessageStatusPosted,
		LastSyncedAt: now,
		CreatedAt:    now,
	}
	prior := ""
	if rec != nil {
		prior = rec.ContentHash
		next.CreatedAt = rec.CreatedAt
	}
	if err := s.persist(at, next, prior); err != nil {
		return nil, err
	}
	return resultFor(at.bookingID, at.action, next), nil
}

func (s *syncUC) editMessage(ctx context.Context, at *attempt, rec *model.MessageRecord, content adapter.MessageContent, hash string) (*SyncResult, error) {
	err := s.retryOnce(ctx, func(ctx context.Context) error {
		return s.messenger.Edit(ctx, rec.ChatID, rec.MessageID, content)
	})
	if adapter.KindOf(err) == adapter.ErrorKindNotFound {
		// Deleted out-of-band: forget the old message and post a fresh one.
		logging.With(ctx, s.log).Warn().Int64("message_id", rec.MessageID).Msg("booking message vanished; posting again")
		cleared := *rec
		cleared.MessageID = 0
		cleared.ContentHash = ""
		cleared.Status = model.MessageStatusAbsent
		cleared.LastSyncedAt = s.now()
		if err := s.persist(at, &cleared, rec.ContentHash); err != nil {
			return nil, err
		}
		at.action = SyncActionRecreate
		return s.createMessage(ctx, at, &cleared, content, hash)
	}
	if err != nil {
		return nil, s.externalErr(at, err)
	}
	at.externalDone, at.messageID = true, rec.MessageID

	next := *rec
	next.ContentHash = hash
	next.Status = model.MessageStatusPosted
	next.LastSyncedAt = s.now()
	if err := s.persist(at, &next, rec.ContentHash); err != nil {
		return nil, err
	}
	return resultFor(at.bookingID, SyncActionEdit, &next), nil
}

func (s *syncUC) deleteMessage(ctx context.Context, at *attempt, rec *model.MessageRecord) (*SyncResult, error) {
	err := s.retryOnce(ctx, func(ctx context.Context) error {
		return s.messenger.Delete(ctx, rec.ChatID, rec.MessageID)
	})
	if err != nil && adapter.KindOf(err) != adapter.ErrorKindNotFound {
		// Leave the record untouched: the message may still exist.
		return nil, s.externalErr(at, err)
	}
	at.externalDone, at.messageID = true, rec.MessageID

	next := *rec
	next.Status = model.MessageStatusDeleted
	next.LastSyncedAt = s.now()
	if err := s.persist(at, &next, rec.ContentHash); err != nil {
		return nil, err
	}
	return resultFor(at.bookingID, SyncActionDelete, &next), nil
}

// retryOnce repeats fn immediately once for transient failures. Only used
// for idempotent calls (edit, delete). The platform client does not honour
// ctx, so the retry is skipped unless a second call as slow as the first
// still leaves PersistTimeout before the deadline.
func (s *syncUC) retryOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	if adapter.KindOf(err) != adapter.ErrorKindTransient || ctx.Err() != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < time.Since(start)+s.opts.PersistTimeout {
		logging.With(ctx, s.log).Debug().Err(err).Msg("no time left for a retry")
		return err
	}
	return fn(ctx)
}

func (s *syncUC) persist(at *attempt, rec *model.MessageRecord, expectedPriorHash string) error {
	pctx, cancel := context.WithTimeout(at.txCtx, s.opts.PersistTimeout)
	defer cancel()
	rec.UpdatedAt = s.now()
	if err := s.records.Upsert(pctx, at.tx, rec, expectedPriorHash); err != nil {
		return &SyncError{
			BookingID: at.bookingID,
			Stage:     SyncStagePersistence,
			Action:    at.action,
			MessageID: at.messageID,
			Err:       err,
		}
	}
	return nil
}

func (s *syncUC) externalErr(at *attempt, err error) error {
	return &SyncError{
		BookingID: at.bookingID,
		Stage:     SyncStageExternal,
		Action:    at.action,
		Kind:      adapter.KindOf(err),
		Err:       err,
	}
}

func (s *syncUC) afterFailure(ctx context.Context, at *attempt, err error) {
	log := logging.With(ctx, s.log)
	var se *SyncError
	if !errors.As(err, &se) {
		if !errors.Is(err, domain.ErrBookingNotFound) {
			log.Error().Err(err).Msg("reconcile failed")
		}
		return
	}
	if se.Stage == SyncStagePersistence {
		log.Error().Err(err).Str("action", string(se.Action)).Int64("message_id", se.MessageID).
			Msg("platform call succeeded but message record was not persisted")
		return
	}
	log.Warn().Err(err).Str("action", string(se.Action)).Str("kind", string(se.Kind)).Msg("platform call failed")
	if !se.Kind.Retryable() {
		return
	}
	// Leave a marker the sweep can find. Both writes are conditional, so a
	// reconcile that got in after the lock was released wins.
	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PersistTimeout)
	defer cancel()
	switch {
	case at.prior.HasLiveMessage() && at.prior.Status == model.MessageStatusPosted:
		if err := s.records.MarkStale(mctx, repository.NoTX, at.bookingID); err != nil {
			log.Warn().Err(err).Msg("mark stale failed")
		}
	case se.Action == SyncActionCreate && !at.prior.HasLiveMessage():
		if err := s.markAbsent(mctx, at.prior, at.bookingID); err != nil {
			log.Warn().Err(err).Msg("mark absent failed")
		}
	}
}

// markAbsent records a booking whose first post failed so the sweep retries it.
func (s *syncUC) markAbsent(ctx context.Context, prior *model.MessageRecord, bookingID string) error {
	now := s.now()
	next := &model.MessageRecord{
		BookingID:    bookingID,
		ChatID:       s.opts.ChatID,
		Status:       model.MessageStatusAbsent,
		LastSyncedAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	expected := ""
	if prior != nil {
		if prior.Status == model.MessageStatusAbsent {
			return nil
		}
		expected = prior.ContentHash
		next.CreatedAt = prior.CreatedAt
	}
	return s.records.Upsert(ctx, repository.NoTX, next, expected)
}

func (s *syncUC) noop(rec *model.MessageRecord, bookingID string) *SyncResult {
	if rec == nil {
		return &SyncResult{BookingID: bookingID, Action: SyncActionNone}
	}
	return resultFor(bookingID, SyncActionNone, rec)
}

func resultFor(bookingID string, action SyncAction, rec *model.MessageRecord) *SyncResult {
	return &SyncResult{
		BookingID:   bookingID,
		Action:      action,
		ChatID:      rec.ChatID,
		MessageID:   rec.MessageID,
		ContentHash: rec.ContentHash,
	}
}

func resultLabel(err error) string {
	var se *SyncError
	if errors.As(err, &se) {
		return string(se.Stage) + "_error"
	}
	return "error"
}
