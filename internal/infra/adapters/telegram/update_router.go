package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"padel-telegram-notifier/internal/domain"
	"padel-telegram-notifier/internal/infra/logging"
	"padel-telegram-notifier/internal/infra/metrics"
	red "padel-telegram-notifier/internal/infra/redis"
	"padel-telegram-notifier/internal/usecase"
)

const (
	jokeLimit  = 10
	jokeWindow = time.Minute
)

// RateLimiter is satisfied by redis.RateLimiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type commandHandler func(ctx context.Context, cmd *CommandPayload) error

// UpdateRouter sends each decoded update to exactly one handler.
type UpdateRouter struct {
	client  Client
	sync    usecase.SyncUseCase
	jokes   usecase.JokeUseCase
	limiter RateLimiter
	tr      usecase.Translator
	admins  map[int64]struct{}
	log     *zerolog.Logger
}

func NewUpdateRouter(
	client Client,
	sync usecase.SyncUseCase,
	jokes usecase.JokeUseCase,
	limiter RateLimiter,
	tr usecase.Translator,
	adminIDs []int64,
	logger *zerolog.Logger,
) *UpdateRouter {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &UpdateRouter{
		client:  client,
		sync:    sync,
		jokes:   jokes,
		limiter: limiter,
		tr:      tr,
		admins:  admins,
		log:     logger,
	}
}

func (r *UpdateRouter) Dispatch(ctx context.Context, u Update) error {
	metrics.IncWebhookUpdate(string(u.Kind))
	switch u.Kind {
	case UpdateKindCommand:
		ctx = logging.WithChatID(ctx, u.Command.ChatID)
		if h, ok := r.commandRoutes()[u.Command.Name]; ok {
			return h(ctx, u.Command)
		}
		return nil
	case UpdateKindCallback:
		return r.handleCallback(ctx, u.Callback)
	case UpdateKindText:
		// group chatter is ignored; jokes only in private chats
		if !u.Text.Private {
			return nil
		}
		ctx = logging.WithChatID(ctx, u.Text.ChatID)
		return r.replyJoke(ctx, u.Text.ChatID, u.Text.UserID, u.Text.Text)
	default:
		return nil
	}
}

func (r *UpdateRouter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start": r.handleHelpCommand,
		"help":  r.handleHelpCommand,
		"joke":  r.handleJokeCommand,

		// These handlers are wrapped in our adminOnly middleware.
		"sync": r.adminOnly(r.handleSyncCommand),
	}
}

func (r *UpdateRouter) adminOnly(next commandHandler) commandHandler {
	return func(ctx context.Context, cmd *CommandPayload) error {
		if _, isAdmin := r.admins[cmd.UserID]; !isAdmin {
			return r.client.Reply(ctx, cmd.ChatID, r.tr.T("error_unauthorized"))
		}
		return next(ctx, cmd)
	}
}

func (r *UpdateRouter) handleHelpCommand(ctx context.Context, cmd *CommandPayload) error {
	text := r.tr.T("help_text")
	if _, isAdmin := r.admins[cmd.UserID]; isAdmin {
		text += "\n" + r.tr.T("admin_help_text")
	}
	return r.client.Reply(ctx, cmd.ChatID, text)
}

func (r *UpdateRouter) handleJokeCommand(ctx context.Context, cmd *CommandPayload) error {
	topic := cmd.Args
	if topic == "" {
		topic = "padel"
	}
	return r.replyJoke(ctx, cmd.ChatID, cmd.UserID, topic)
}

func (r *UpdateRouter) replyJoke(ctx context.Context, chatID, userID int64, text string) error {
	if r.limiter != nil {
		allowed, err := r.limiter.Allow(ctx, red.UserCommandKey(userID, "joke"), jokeLimit, jokeWindow)
		if err != nil {
			logging.With(ctx, r.log).Warn().Err(err).Msg("rate limit check failed")
		} else if !allowed {
			metrics.IncRateLimitTriggered()
			return r.client.Reply(ctx, chatID, r.tr.T("rate_limited"))
		}
	}
	return r.client.Reply(ctx, chatID, r.jokes.Reply(ctx, text))
}

func (r *UpdateRouter) handleSyncCommand(ctx context.Context, cmd *CommandPayload) error {
	bookingID := strings.TrimSpace(cmd.Args)
	if bookingID == "" {
		return r.client.Reply(ctx, cmd.ChatID, r.tr.T("sync_usage"))
	}
	res, err := r.sync.Reconcile(ctx, bookingID)
	if err != nil {
		return r.client.Reply(ctx, cmd.ChatID, r.syncFailureText(bookingID, err))
	}
	return r.client.Reply(ctx, cmd.ChatID, r.tr.T("sync_done", bookingID, string(res.Action)))
}

func (r *UpdateRouter) handleCallback(ctx context.Context, cb *CallbackPayload) error {
	if cb.ChatID != 0 {
		ctx = logging.WithChatID(ctx, cb.ChatID)
	}
	bookingID, ok := strings.CutPrefix(cb.Data, usecase.RefreshCallbackPrefix)
	if !ok || bookingID == "" {
		// stop the spinner for stale or foreign buttons
		return r.client.AnswerCallback(ctx, cb.ID, "")
	}
	answer := ""
	res, err := r.sync.Reconcile(ctx, bookingID)
	if err != nil {
		answer = r.syncFailureText(bookingID, err)
	} else {
		answer = r.tr.T("sync_done", bookingID, string(res.Action))
	}
	if aerr := r.client.AnswerCallback(ctx, cb.ID, answer); aerr != nil {
		logging.With(ctx, r.log).Warn().Err(aerr).Msg("answer callback failed")
	}
	return err
}

func (r *UpdateRouter) syncFailureText(bookingID string, err error) string {
	if errors.Is(err, domain.ErrBookingNotFound) {
		return r.tr.T("booking_not_found")
	}
	return r.tr.T("sync_failed", bookingID)
}
