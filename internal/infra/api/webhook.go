package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"padel-telegram-notifier/internal/infra/adapters/telegram"
	"padel-telegram-notifier/internal/infra/logging"
	"padel-telegram-notifier/internal/infra/metrics"
)

const (
	secretHeader = "X-Telegram-Bot-Api-Secret-Token"
	secretQuery  = "secret_token"

	// Telegram caps update payloads well below this.
	maxUpdateBody = 1 << 20
)

type UpdateDispatcher interface {
	Dispatch(ctx context.Context, u telegram.Update) error
}

type BotInitializer interface {
	Ensure(ctx context.Context) error
}

// UpdateDeduper is satisfied by redis.UpdateDeduper.
type UpdateDeduper interface {
	FirstSeen(ctx context.Context, updateID int64) (bool, error)
}

type webhookAck struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// WebhookHandler receives Telegram updates. Once the caller is authenticated
// every outcome is acknowledged with 200 so the platform does not redeliver.
type WebhookHandler struct {
	secret     []byte
	bot        BotInitializer
	dispatcher UpdateDispatcher
	dedup      UpdateDeduper
	log        *zerolog.Logger
}

// NewWebhookHandler builds the receiver. dedup may be nil.
func NewWebhookHandler(secret string, bot BotInitializer, dispatcher UpdateDispatcher, dedup UpdateDeduper, logger *zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret:     []byte(secret),
		bot:        bot,
		dispatcher: dispatcher,
		dedup:      dedup,
		log:        logger,
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logging.With(ctx, h.log)

	if !h.authorized(r) {
		metrics.IncWebhookAuthFailure()
		l.Warn().
			Str("remote_addr", r.RemoteAddr).
			Str("path", r.URL.Path).
			Bool("header_present", r.Header.Get(secretHeader) != "").
			Bool("query_present", r.URL.Query().Get(secretQuery) != "").
			Msg("webhook rejected: bad secret")
		writeJSON(w, http.StatusMethodNotAllowed, webhookAck{OK: false, Error: "Not allowed"})
		return
	}

	// Every branch below writes its ack last, so a panic means nothing was
	// written yet. Telegram would redeliver on a 5xx.
	defer func() {
		if rec := recover(); rec != nil {
			l.Error().Interface("panic", rec).Msg("webhook handler panicked")
			writeJSON(w, http.StatusOK, webhookAck{OK: true})
		}
	}()

	if err := h.bot.Ensure(ctx); err != nil {
		l.Error().Err(err).Msg("bot initialization failed")
		writeJSON(w, http.StatusOK, webhookAck{OK: true})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBody))
	if err != nil {
		l.Warn().Err(err).Msg("webhook body read failed")
		writeJSON(w, http.StatusOK, webhookAck{OK: true})
		return
	}
	if json.Valid(body) {
		l.Debug().RawJSON("payload", body).Msg("webhook update received")
	} else {
		l.Debug().Bytes("payload", body).Msg("webhook update received")
	}

	u, err := telegram.DecodeUpdate(body)
	if err != nil {
		l.Warn().Err(err).Int("bytes", len(body)).Msg("malformed update")
		writeJSON(w, http.StatusOK, webhookAck{OK: true})
		return
	}
	ctx = logging.WithUpdateID(ctx, u.ID)
	l = logging.With(ctx, h.log)

	if h.dedup != nil && u.ID != 0 {
		first, err := h.dedup.FirstSeen(ctx, u.ID)
		switch {
		case err != nil:
			l.Warn().Err(err).Msg("update dedup unavailable")
		case !first:
			metrics.IncWebhookDuplicate()
			l.Debug().Msg("duplicate update ignored")
			writeJSON(w, http.StatusOK, webhookAck{OK: true})
			return
		}
	}

	if err := h.dispatcher.Dispatch(ctx, u); err != nil {
		l.Error().Err(err).Str("kind", string(u.Kind)).Msg("update handler failed")
	}
	writeJSON(w, http.StatusOK, webhookAck{OK: true})
}

// authorized compares the presented secret in constant time. The header wins
// over the query parameter; an empty configured secret matches nothing.
func (h *WebhookHandler) authorized(r *http.Request) bool {
	if len(h.secret) == 0 {
		return false
	}
	got := r.Header.Get(secretHeader)
	if got == "" {
		got = r.URL.Query().Get(secretQuery)
	}
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), h.secret) == 1
}
