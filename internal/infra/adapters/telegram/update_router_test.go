//go:build !integration

package telegram

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"padel-telegram-notifier/internal/domain"
	"padel-telegram-notifier/internal/domain/ports/adapter"
	"padel-telegram-notifier/internal/usecase"
)

type keyTr struct{}

func (keyTr) T(key string, args ...interface{}) string {
	if len(args) == 0 {
		return key
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return key + ":" + strings.Join(parts, " ")
}

type recClient struct {
	replies  []string
	answered []string
}

func (c *recClient) Ensure(ctx context.Context) error { return nil }
func (c *recClient) Send(ctx context.Context, chatID int64, content adapter.MessageContent) (int64, error) {
	return 1, nil
}
func (c *recClient) Edit(ctx context.Context, chatID, messageID int64, content adapter.MessageContent) error {
	return nil
}
func (c *recClient) Delete(ctx context.Context, chatID, messageID int64) error { return nil }
func (c *recClient) Reply(ctx context.Context, chatID int64, text string) error {
	c.replies = append(c.replies, text)
	return nil
}
func (c *recClient) AnswerCallback(ctx context.Context, callbackID, text string) error {
	c.answered = append(c.answered, text)
	return nil
}

type fakeSync struct {
	ReconcileFn func(ctx context.Context, bookingID string) (*usecase.SyncResult, error)
	calls       []string
}

func (f *fakeSync) Reconcile(ctx context.Context, bookingID string) (*usecase.SyncResult, error) {
	f.calls = append(f.calls, bookingID)
	if f.ReconcileFn != nil {
		return f.ReconcileFn(ctx, bookingID)
	}
	return &usecase.SyncResult{BookingID: bookingID, Action: usecase.SyncActionEdit}, nil
}

type fakeJokes struct{ calls []string }

func (f *fakeJokes) Reply(ctx context.Context, text string) string {
	f.calls = append(f.calls, text)
	return "joke about " + text
}

type fakeLimiter struct{ allow bool }

func (f fakeLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return f.allow, nil
}

func newTestRouter(allow bool) (*UpdateRouter, *recClient, *fakeSync, *fakeJokes) {
	c, s, j := &recClient{}, &fakeSync{}, &fakeJokes{}
	r := NewUpdateRouter(c, s, j, fakeLimiter{allow: allow}, keyTr{}, []int64{7}, nopLogger())
	return r, c, s, j
}

func command(name, args string, userID int64) Update {
	return Update{ID: 1, Kind: UpdateKindCommand, Command: &CommandPayload{ChatID: userID, UserID: userID, Name: name, Args: args, Private: true}}
}

func TestUpdateRouter_Commands(t *testing.T) {
	ctx := context.Background()

	t.Run("should answer help", func(t *testing.T) {
		r, c, _, _ := newTestRouter(true)
		if err := r.Dispatch(ctx, command("start", "", 1)); err != nil {
			t.Fatal(err)
		}
		if len(c.replies) != 1 || c.replies[0] != "help_text" {
			t.Fatalf("unexpected replies %v", c.replies)
		}
	})

	t.Run("should reject sync from non-admins", func(t *testing.T) {
		r, c, s, _ := newTestRouter(true)
		_ = r.Dispatch(ctx, command("sync", "B1", 1))
		if len(s.calls) != 0 || c.replies[0] != "error_unauthorized" {
			t.Fatalf("non-admin reached sync: calls=%v replies=%v", s.calls, c.replies)
		}
	})

	t.Run("should run sync for admins", func(t *testing.T) {
		r, c, s, _ := newTestRouter(true)
		_ = r.Dispatch(ctx, command("sync", "B1", 7))
		if len(s.calls) != 1 || s.calls[0] != "B1" {
			t.Fatalf("expected reconcile of B1, got %v", s.calls)
		}
		if c.replies[0] != "sync_done:B1 edit" {
			t.Fatalf("unexpected reply %q", c.replies[0])
		}
	})

	t.Run("should show usage without a booking id", func(t *testing.T) {
		r, c, s, _ := newTestRouter(true)
		_ = r.Dispatch(ctx, command("sync", "", 7))
		if len(s.calls) != 0 || c.replies[0] != "sync_usage" {
			t.Fatalf("unexpected %v %v", s.calls, c.replies)
		}
	})

	t.Run("should rate limit jokes", func(t *testing.T) {
		r, c, _, j := newTestRouter(false)
		_ = r.Dispatch(ctx, command("joke", "serve", 1))
		if len(j.calls) != 0 || c.replies[0] != "rate_limited" {
			t.Fatalf("limited joke reached provider: %v %v", j.calls, c.replies)
		}
	})

	t.Run("should ignore unknown commands", func(t *testing.T) {
		r, c, s, j := newTestRouter(true)
		if err := r.Dispatch(ctx, command("plans", "", 1)); err != nil {
			t.Fatal(err)
		}
		if len(c.replies)+len(s.calls)+len(j.calls) != 0 {
			t.Fatal("unknown command must be a no-op")
		}
	})
}

func TestUpdateRouter_TextAndCallbacks(t *testing.T) {
	ctx := context.Background()

	t.Run("should joke back in private chats only", func(t *testing.T) {
		r, c, _, j := newTestRouter(true)
		_ = r.Dispatch(ctx, Update{Kind: UpdateKindText, Text: &TextPayload{ChatID: 5, UserID: 5, Text: "net", Private: true}})
		_ = r.Dispatch(ctx, Update{Kind: UpdateKindText, Text: &TextPayload{ChatID: -5, UserID: 5, Text: "group", Private: false}})
		if len(j.calls) != 1 || c.replies[0] != "joke about net" {
			t.Fatalf("unexpected jokes %v replies %v", j.calls, c.replies)
		}
	})

	t.Run("should refresh a booking from its button", func(t *testing.T) {
		r, c, s, _ := newTestRouter(true)
		err := r.Dispatch(ctx, Update{Kind: UpdateKindCallback, Callback: &CallbackPayload{ID: "cb1", ChatID: -100, Data: "refresh:B9"}})
		if err != nil {
			t.Fatal(err)
		}
		if len(s.calls) != 1 || s.calls[0] != "B9" || c.answered[0] != "sync_done:B9 edit" {
			t.Fatalf("unexpected calls=%v answers=%v", s.calls, c.answered)
		}
	})

	t.Run("should answer unknown buttons without syncing", func(t *testing.T) {
		r, c, s, _ := newTestRouter(true)
		_ = r.Dispatch(ctx, Update{Kind: UpdateKindCallback, Callback: &CallbackPayload{ID: "cb2", Data: "buy:1"}})
		if len(s.calls) != 0 || len(c.answered) != 1 {
			t.Fatalf("unexpected calls=%v answers=%v", s.calls, c.answered)
		}
	})

	t.Run("should tell the user a booking is gone", func(t *testing.T) {
		r, c, s, _ := newTestRouter(true)
		s.ReconcileFn = func(ctx context.Context, id string) (*usecase.SyncResult, error) {
			return nil, domain.ErrBookingNotFound
		}
		err := r.Dispatch(ctx, Update{Kind: UpdateKindCallback, Callback: &CallbackPayload{ID: "cb3", Data: "refresh:B0"}})
		if err == nil || c.answered[0] != "booking_not_found" {
			t.Fatalf("unexpected err=%v answers=%v", err, c.answered)
		}
	})
}

func TestDecodeUpdate(t *testing.T) {
	t.Run("should decode commands", func(t *testing.T) {
		u, err := DecodeUpdate([]byte(`{"update_id":10,"message":{"message_id":1,"date":0,
			"from":{"id":7,"is_bot":false,"first_name":"A"},"chat":{"id":7,"type":"private"},
			"text":"/sync@padel_bot B1","entities":[{"type":"bot_command","offset":0,"length":15}]}}`))
		if err != nil {
			t.Fatal(err)
		}
		if u.ID != 10 || u.Kind != UpdateKindCommand || u.Command.Name != "sync" || u.Command.Args != "B1" || !u.Command.Private {
			t.Fatalf("unexpected update %+v %+v", u, u.Command)
		}
	})

	t.Run("should decode callbacks", func(t *testing.T) {
		u, err := DecodeUpdate([]byte(`{"update_id":11,"callback_query":{"id":"q1","from":{"id":7,"is_bot":false,"first_name":"A"},
			"message":{"message_id":55,"date":0,"chat":{"id":-1001,"type":"channel"}},"data":"refresh:B1"}}`))
		if err != nil {
			t.Fatal(err)
		}
		if u.Kind != UpdateKindCallback || u.Callback.MessageID != 55 || u.Callback.ChatID != -1001 || u.Callback.Data != "refresh:B1" {
			t.Fatalf("unexpected update %+v %+v", u, u.Callback)
		}
	})

	t.Run("should decode plain text", func(t *testing.T) {
		u, _ := DecodeUpdate([]byte(`{"update_id":12,"message":{"message_id":2,"date":0,
			"from":{"id":7,"is_bot":false,"first_name":"A"},"chat":{"id":7,"type":"private"},"text":"  hello "}}`))
		if u.Kind != UpdateKindText || u.Text.Text != "hello" {
			t.Fatalf("unexpected update %+v", u)
		}
	})

	t.Run("should map unknown shapes to other", func(t *testing.T) {
		u, err := DecodeUpdate([]byte(`{"update_id":13,"channel_post":{"message_id":3,"date":0,"chat":{"id":-1,"type":"channel"},"text":"x"}}`))
		if err != nil || u.Kind != UpdateKindOther {
			t.Fatalf("expected other, got %+v %v", u, err)
		}
	})

	t.Run("should reject malformed json", func(t *testing.T) {
		if _, err := DecodeUpdate([]byte(`{"update_id":`)); err == nil {
			t.Fatal("expected error")
		}
	})
}
