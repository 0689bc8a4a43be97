package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"padel-telegram-notifier/internal/domain/ports/adapter"
)

// Client is what the update router and the HTTP layer need from Telegram.
type Client interface {
	adapter.Messenger
	Ensure(ctx context.Context) error
	Reply(ctx context.Context, chatID int64, text string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

var _ Client = (*Messenger)(nil)

// Messenger implements adapter.Messenger over the Bot API.
type Messenger struct {
	session *BotSession
}

func NewMessenger(session *BotSession) *Messenger {
	return &Messenger{session: session}
}

func (m *Messenger) Ensure(ctx context.Context) error { return m.session.Ensure(ctx) }

func (m *Messenger) fail(method string, err error) error {
	return classify(method, m.session.scrub(err))
}

func (m *Messenger) Send(ctx context.Context, chatID int64, content adapter.MessageContent) (int64, error) {
	bot, err := m.session.api(ctx)
	if err != nil {
		return 0, m.fail("sendMessage", err)
	}
	msg := tgbotapi.NewMessage(chatID, content.Text)
	msg.DisableWebPagePreview = true
	if kb, ok := keyboard(content.Buttons); ok {
		msg.ReplyMarkup = kb
	}
	sent, err := bot.Send(msg)
	if err != nil {
		return 0, m.fail("sendMessage", err)
	}
	return int64(sent.MessageID), nil
}

func (m *Messenger) Edit(ctx context.Context, chatID, messageID int64, content adapter.MessageContent) error {
	bot, err := m.session.api(ctx)
	if err != nil {
		return m.fail("editMessageText", err)
	}
	kb, _ := keyboard(content.Buttons)
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, int(messageID), content.Text, kb)
	edit.DisableWebPagePreview = true
	if _, err := bot.Request(edit); err != nil {
		if isNotModified(err) {
			return nil
		}
		return m.fail("editMessageText", err)
	}
	return nil
}

func (m *Messenger) Delete(ctx context.Context, chatID, messageID int64) error {
	bot, err := m.session.api(ctx)
	if err != nil {
		return m.fail("deleteMessage", err)
	}
	if _, err := bot.Request(tgbotapi.NewDeleteMessage(chatID, int(messageID))); err != nil {
		return m.fail("deleteMessage", err)
	}
	return nil
}

func (m *Messenger) Reply(ctx context.Context, chatID int64, text string) error {
	bot, err := m.session.api(ctx)
	if err != nil {
		return m.fail("sendMessage", err)
	}
	if _, err := bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return m.fail("sendMessage", err)
	}
	return nil
}

// AnswerCallback stops the client-side spinner of an inline button.
func (m *Messenger) AnswerCallback(ctx context.Context, callbackID, text string) error {
	bot, err := m.session.api(ctx)
	if err != nil {
		return m.fail("answerCallbackQuery", err)
	}
	if _, err := bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return m.fail("answerCallbackQuery", err)
	}
	return nil
}

// keyboard builds an inline keyboard.
// - If btn.URL is set, the button opens a link
// - Else if btn.Data is set, the button sends callback data
// - Else the label doubles as callback data
func keyboard(rows [][]adapter.InlineButton) (tgbotapi.InlineKeyboardMarkup, bool) {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, r)
	}
	if len(kbRows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...), true
}
