package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"padel-telegram-notifier/internal/infra/logging"
)

// BotSession owns the process-wide bot handle. The first successful Ensure
// verifies the token (getMe) and publishes the command menu; later calls
// return immediately. A failed init is retried by the next caller.
type BotSession struct {
	token    string
	endpoint string
	client   *http.Client
	commands []tgbotapi.BotCommand
	log      *zerolog.Logger

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

func NewBotSession(token, endpoint string, commands []tgbotapi.BotCommand, logger *zerolog.Logger) *BotSession {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	return &BotSession{
		token:    token,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		commands: commands,
		log:      logger,
	}
}

// DefaultCommands is the menu shown to every user.
func DefaultCommands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "help", Description: "What this bot does"},
		{Command: "joke", Description: "Tell a padel joke"},
	}
}

func (s *BotSession) Ensure(ctx context.Context) error {
	_, err := s.api(ctx)
	return err
}

func (s *BotSession) api(ctx context.Context) (*tgbotapi.BotAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bot != nil {
		return s.bot, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.token == "" {
		return nil, errors.New("telegram bot token is empty")
	}

	bot, err := tgbotapi.NewBotAPIWithClient(s.token, s.endpoint, s.client)
	if err != nil {
		return nil, classify("getMe", s.scrub(err))
	}
	if len(s.commands) > 0 {
		if _, err := bot.Request(tgbotapi.NewSetMyCommands(s.commands...)); err != nil {
			// Commands are cosmetic; the session is usable without them.
			s.log.Warn().Err(s.scrub(err)).Msg("setMyCommands failed")
		}
	}
	s.log.Info().Str("bot", bot.Self.UserName).Msg("telegram bot session ready")
	s.bot = bot
	return bot, nil
}

// scrub hides the bot token, which tgbotapi puts in every request URL and
// therefore in transport errors.
func (s *BotSession) scrub(err error) error {
	if err == nil || s.token == "" || !strings.Contains(err.Error(), s.token) {
		return err
	}
	return &scrubbedError{msg: logging.Scrub(err.Error(), s.token), err: err}
}

type scrubbedError struct {
	msg string
	err error
}

func (e *scrubbedError) Error() string { return e.msg }
func (e *scrubbedError) Unwrap() error { return e.err }
