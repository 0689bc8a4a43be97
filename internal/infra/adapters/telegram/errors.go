package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"padel-telegram-notifier/internal/domain/ports/adapter"
	"padel-telegram-notifier/internal/infra/metrics"
)

// classify maps a tgbotapi failure into the platform error taxonomy.
func classify(method string, err error) error {
	if err == nil {
		return nil
	}
	var already *adapter.PlatformError
	if errors.As(err, &already) {
		return err
	}
	pe := &adapter.PlatformError{Method: method, Kind: adapter.ErrorKindUnknown, Err: err}

	var tgErr *tgbotapi.Error
	var netErr net.Error
	var urlErr *url.Error
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &tgErr):
		pe.Code = tgErr.Code
		pe.Description = tgErr.Message
		pe.Kind = kindForAPIError(tgErr.Code, tgErr.Message)
		if tgErr.RetryAfter > 0 {
			pe.RetryAfter = time.Duration(tgErr.RetryAfter) * time.Second
		}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		pe.Kind = adapter.ErrorKindTransient
	case errors.As(err, &netErr), errors.As(err, &urlErr):
		pe.Kind = adapter.ErrorKindTransient
	case errors.As(err, &syntaxErr):
		// an HTML error page from a proxy in front of the Bot API
		pe.Kind = adapter.ErrorKindTransient
	}
	metrics.IncTelegramAPIError(method, string(pe.Kind))
	return pe
}

func kindForAPIError(code int, description string) adapter.ErrorKind {
	d := strings.ToLower(description)
	switch {
	case code == 429:
		return adapter.ErrorKindRateLimited
	case code == 403:
		return adapter.ErrorKindForbidden
	case code >= 500:
		return adapter.ErrorKindTransient
	case code == 400 && (strings.Contains(d, "message to edit not found") ||
		strings.Contains(d, "message to delete not found")):
		return adapter.ErrorKindNotFound
	default:
		return adapter.ErrorKindUnknown
	}
}

func isNotModified(err error) bool {
	var tgErr *tgbotapi.Error
	return errors.As(err, &tgErr) && tgErr.Code == 400 &&
		strings.Contains(strings.ToLower(tgErr.Message), "message is not modified")
}
