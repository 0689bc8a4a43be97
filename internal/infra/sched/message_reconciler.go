package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/rs/zerolog"

	"padel-telegram-notifier/internal/domain/ports/repository"
	"padel-telegram-notifier/internal/infra/logging"
	"padel-telegram-notifier/internal/infra/metrics"
	red "padel-telegram-notifier/internal/infra/redis"
	"padel-telegram-notifier/internal/infra/worker"
	"padel-telegram-notifier/internal/usecase"
)

const (
	sweepLockKey      = "lock:message-sweep"
	defaultSweepCron  = "*/5 * * * *"
	defaultStaleAfter = 30 * time.Minute
	defaultSweepBatch = 100
)

// TaskQueue is satisfied by worker.Pool.
type TaskQueue interface {
	SubmitWait(ctx context.Context, task worker.Task) error
}

type ReconcilerOptions struct {
	Cron       string
	StaleAfter time.Duration
	Batch      int
	LockTTL    time.Duration
}

// MessageReconciler re-reconciles booking messages that a failed or missed
// sync left behind. Only the instance holding the sweep lock runs a pass.
type MessageReconciler struct {
	records repository.MessageRecordRepository
	sync    usecase.SyncUseCase
	locker  red.Locker
	queue   TaskQueue
	opts    ReconcilerOptions
	log     *zerolog.Logger
	now     func() time.Time
}

func NewMessageReconciler(
	records repository.MessageRecordRepository,
	sync usecase.SyncUseCase,
	locker red.Locker,
	queue TaskQueue,
	opts ReconcilerOptions,
	logger *zerolog.Logger,
) (*MessageReconciler, error) {
	if opts.Cron == "" {
		opts.Cron = defaultSweepCron
	}
	if !gronx.New().IsValid(opts.Cron) {
		return nil, fmt.Errorf("invalid sweep cron %q", opts.Cron)
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = defaultStaleAfter
	}
	if opts.Batch <= 0 {
		opts.Batch = defaultSweepBatch
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = time.Minute
	}
	return &MessageReconciler{
		records: records,
		sync:    sync,
		locker:  locker,
		queue:   queue,
		opts:    opts,
		log:     logger,
		now:     time.Now,
	}, nil
}

// Start blocks, sweeping on every cron tick until ctx ends.
func (m *MessageReconciler) Start(ctx context.Context) {
	m.log.Info().Str("cron", m.opts.Cron).Msg("message sweep scheduled")
	for {
		next, err := gronx.NextTickAfter(m.opts.Cron, m.now(), false)
		if err != nil {
			m.log.Error().Err(err).Msg("message sweep: cannot compute next tick")
			return
		}
		t := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		if _, err := m.Sweep(ctx); err != nil {
			m.log.Error().Err(err).Msg("message sweep failed")
		}
	}
}

// Sweep runs one pass and returns how many reconciles were queued.
func (m *MessageReconciler) Sweep(ctx context.Context) (int, error) {
	token, err := m.locker.TryLock(ctx, sweepLockKey, m.opts.LockTTL)
	if errors.Is(err, red.ErrLockHeld) {
		metrics.IncSweep("skipped")
		m.log.Debug().Msg("message sweep held by another instance")
		return 0, nil
	}
	if err != nil {
		metrics.IncSweep("error")
		return 0, fmt.Errorf("acquire sweep lock: %w", err)
	}
	defer func() {
		uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := m.locker.Unlock(uctx, sweepLockKey, token); err != nil {
			m.log.Warn().Err(err).Msg("message sweep unlock failed")
		}
	}()

	cutoff := m.now().Add(-m.opts.StaleAfter)
	recs, err := m.records.ListStale(ctx, repository.NoTX, cutoff, m.opts.Batch)
	if err != nil {
		metrics.IncSweep("error")
		return 0, fmt.Errorf("list stale records: %w", err)
	}

	queued := 0
	for _, rec := range recs {
		bookingID := rec.BookingID
		task := func(ctx context.Context) error {
			ctx = logging.WithBookingID(ctx, bookingID)
			res, err := m.sync.Reconcile(ctx, bookingID)
			if err != nil {
				return fmt.Errorf("sweep reconcile %s: %w", bookingID, err)
			}
			l := logging.With(ctx, m.log)
			l.Debug().Str("action", string(res.Action)).Msg("sweep reconciled booking")
			return nil
		}
		if err := m.queue.SubmitWait(ctx, task); err != nil {
			metrics.IncSweep("error")
			return queued, fmt.Errorf("queue sweep task: %w", err)
		}
		queued++
	}
	metrics.IncSweep("ok")
	m.log.Info().Int("queued", queued).Time("cutoff", cutoff).Msg("message sweep done")
	return queued, nil
}
