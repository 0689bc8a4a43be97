//go:build !integration

package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"padel-telegram-notifier/internal/domain"
	"padel-telegram-notifier/internal/domain/model"
	"padel-telegram-notifier/internal/domain/ports/adapter"
	"padel-telegram-notifier/internal/domain/ports/repository"
)

// ---- Translator ----

type keyTranslator struct{}

func (keyTranslator) T(key string, args ...interface{}) string {
	if len(args) == 0 {
		return key
	}
	return key + fmt.Sprint(args...)
}

// ---- Bookings ----

type memBookings struct {
	mu    sync.Mutex
	snaps map[string]*model.BookingSnapshot
}

func newMemBookings() *memBookings {
	return &memBookings{snaps: map[string]*model.BookingSnapshot{}}
}

func (m *memBookings) put(b model.Booking, regs ...model.Registration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[b.ID] = &model.BookingSnapshot{Booking: b, Registrations: regs}
}

func (m *memBookings) register(bookingID string, reg model.Registration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.snaps[bookingID]
	reg.BookingID = bookingID
	s.Registrations = append(s.Registrations, reg)
}

func (m *memBookings) cancel(bookingID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[bookingID].Booking.Status = model.BookingStatusCancelled
}

func (m *memBookings) GetSnapshot(ctx context.Context, tx repository.Tx, bookingID string) (*model.BookingSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snaps[bookingID]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	cp := &model.BookingSnapshot{Booking: s.Booking}
	cp.Registrations = append(cp.Registrations, s.Registrations...)
	return cp, nil
}

// ---- Message records ----

// memTx buffers writes until commit and remembers which booking locks it holds.
type memTx struct {
	pending map[string]model.MessageRecord
	held    []string
}

type memRecords struct {
	mu        sync.Mutex
	rows      map[string]model.MessageRecord
	locks     map[string]*sync.Mutex
	upsertErr error
	touchErr  error
	staleN    int
}

func newMemRecords() *memRecords {
	return &memRecords{rows: map[string]model.MessageRecord{}, locks: map[string]*sync.Mutex{}}
}

func (m *memRecords) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

func (m *memRecords) Lock(ctx context.Context, tx repository.Tx, bookingID string) error {
	t, ok := tx.(*memTx)
	if !ok {
		return domain.ErrInvalidExecContext
	}
	m.lockFor(bookingID).Lock()
	t.held = append(t.held, bookingID)
	return nil
}

func (m *memRecords) current(tx repository.Tx, bookingID string) (model.MessageRecord, bool) {
	if t, ok := tx.(*memTx); ok {
		if r, ok := t.pending[bookingID]; ok {
			return r, true
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[bookingID]
	return r, ok
}

func (m *memRecords) Get(ctx context.Context, tx repository.Tx, bookingID string) (*model.MessageRecord, error) {
	r, ok := m.current(tx, bookingID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (m *memRecords) Upsert(ctx context.Context, tx repository.Tx, rec *model.MessageRecord, expectedPriorHash string) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	cur, ok := m.current(tx, rec.BookingID)
	if ok && cur.ContentHash != expectedPriorHash {
		return domain.ErrConflict
	}
	if !ok && expectedPriorHash != "" {
		return domain.ErrConflict
	}
	if t, isTx := tx.(*memTx); isTx {
		t.pending[rec.BookingID] = *rec
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[rec.BookingID] = *rec
	return nil
}

func (m *memRecords) FindByMessage(ctx context.Context, tx repository.Tx, chatID, messageID int64) (*model.MessageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ChatID == chatID && r.MessageID == messageID {
			out := r
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memRecords) MarkDeletedByMessage(ctx context.Context, tx repository.Tx, chatID, messageID int64) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.rows {
		if r.ChatID == chatID && r.MessageID == messageID {
			r.Status = model.MessageStatusDeleted
			m.rows[id] = r
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memRecords) MarkStale(ctx context.Context, tx repository.Tx, bookingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[bookingID]
	if !ok {
		return domain.ErrNotFound
	}
	m.staleN++
	r.Status = model.MessageStatusStale
	m.rows[bookingID] = r
	return nil
}

func (m *memRecords) Touch(ctx context.Context, tx repository.Tx, bookingID string, at time.Time) error {
	if m.touchErr != nil {
		return m.touchErr
	}
	r, ok := m.current(tx, bookingID)
	if !ok || r.Status != model.MessageStatusPosted {
		return nil
	}
	r.LastSyncedAt = at
	if t, isTx := tx.(*memTx); isTx {
		t.pending[bookingID] = r
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[bookingID] = r
	return nil
}

func (m *memRecords) ListStale(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.MessageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.MessageRecord
	for _, r := range m.rows {
		switch {
		case r.Status == model.MessageStatusStale, r.Status == model.MessageStatusAbsent,
			r.Status == model.MessageStatusPosted && r.LastSyncedAt.Before(olderThan):
			cp := r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := out[i].Status == model.MessageStatusPosted, out[j].Status == model.MessageStatusPosted
		if pi != pj {
			return pj
		}
		return out[i].LastSyncedAt.Before(out[j].LastSyncedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRecords) row(bookingID string) model.MessageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[bookingID]
}

// memTxManager commits buffered writes and releases booking locks when fn returns.
type memTxManager struct {
	records   *memRecords
	commitErr error
}

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx := &memTx{pending: map[string]model.MessageRecord{}}
	defer func() {
		for _, id := range tx.held {
			m.records.lockFor(id).Unlock()
		}
	}()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if m.commitErr != nil {
		return m.commitErr
	}
	m.records.mu.Lock()
	for id, r := range tx.pending {
		m.records.rows[id] = r
	}
	m.records.mu.Unlock()
	return nil
}

// ---- Messenger ----

type fakeMessenger struct {
	mu       sync.Mutex
	nextID   int64
	live     map[int64]adapter.MessageContent
	sends    int
	edits    int
	deletes  int
	sendErrs []error
	editErrs []error
	delErrs  []error
	delay    time.Duration
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{nextID: 100, live: map[int64]adapter.MessageContent{}}
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func platformErr(kind adapter.ErrorKind) error {
	return &adapter.PlatformError{Kind: kind, Method: "test"}
}

func (f *fakeMessenger) Send(ctx context.Context, chatID int64, content adapter.MessageContent) (int64, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	if err := pop(&f.sendErrs); err != nil {
		return 0, err
	}
	f.nextID++
	f.live[f.nextID] = content
	return f.nextID, nil
}

func (f *fakeMessenger) Edit(ctx context.Context, chatID, messageID int64, content adapter.MessageContent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits++
	if err := pop(&f.editErrs); err != nil {
		return err
	}
	if _, ok := f.live[messageID]; !ok {
		return platformErr(adapter.ErrorKindNotFound)
	}
	f.live[messageID] = content
	return nil
}

func (f *fakeMessenger) Delete(ctx context.Context, chatID, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if err := pop(&f.delErrs); err != nil {
		return err
	}
	if _, ok := f.live[messageID]; !ok {
		return platformErr(adapter.ErrorKindNotFound)
	}
	delete(f.live, messageID)
	return nil
}

func (f *fakeMessenger) removeOutOfBand(messageID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.live, messageID)
}

func (f *fakeMessenger) calls() (sends, edits, deletes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends, f.edits, f.deletes
}

// ---- AI ----

type stubAI struct {
	reply  string
	err    error
	tokens int
	last   []adapter.Message
}

func (s *stubAI) Name() string { return "stub" }

func (s *stubAI) CountTokens(ctx context.Context, messages []adapter.Message) (int, error) {
	if s.tokens > 0 {
		return s.tokens, nil
	}
	n := 0
	for _, m := range messages {
		n += len([]rune(m.Content))
	}
	return n, nil
}

func (s *stubAI) Chat(ctx context.Context, messages []adapter.Message) (string, error) {
	s.last = messages
	return s.reply, s.err
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
