package telegram

import (
	"encoding/json"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type UpdateKind string

const (
	UpdateKindCommand  UpdateKind = "command"
	UpdateKindCallback UpdateKind = "callback"
	UpdateKindText     UpdateKind = "text"
	UpdateKindOther    UpdateKind = "other"
)

// Update is a webhook delivery decoded once at the boundary. Exactly one
// payload is set, matching Kind; Kind other carries none.
type Update struct {
	ID       int64
	Kind     UpdateKind
	Command  *CommandPayload
	Callback *CallbackPayload
	Text     *TextPayload
}

type CommandPayload struct {
	ChatID  int64
	UserID  int64
	Name    string // without the leading slash and @botname
	Args    string
	Private bool
}

type CallbackPayload struct {
	ID        string
	ChatID    int64
	MessageID int64
	UserID    int64
	Data      string
}

type TextPayload struct {
	ChatID  int64
	UserID  int64
	Text    string
	Private bool
}

// DecodeUpdate parses a raw webhook body.
func DecodeUpdate(body []byte) (Update, error) {
	var raw tgbotapi.Update
	if err := json.Unmarshal(body, &raw); err != nil {
		return Update{}, err
	}
	return FromAPIUpdate(raw), nil
}

func FromAPIUpdate(raw tgbotapi.Update) Update {
	u := Update{ID: int64(raw.UpdateID), Kind: UpdateKindOther}

	if q := raw.CallbackQuery; q != nil && q.From != nil {
		cb := &CallbackPayload{ID: q.ID, UserID: q.From.ID, Data: strings.TrimSpace(q.Data)}
		if q.Message != nil {
			cb.MessageID = int64(q.Message.MessageID)
			if q.Message.Chat != nil {
				cb.ChatID = q.Message.Chat.ID
			}
		}
		u.Kind, u.Callback = UpdateKindCallback, cb
		return u
	}

	msg := raw.Message
	if msg == nil || msg.Chat == nil || msg.From == nil {
		// channel posts, edits, joins and the like
		return u
	}
	private := msg.Chat.IsPrivate()
	if msg.IsCommand() {
		u.Kind = UpdateKindCommand
		u.Command = &CommandPayload{
			ChatID:  msg.Chat.ID,
			UserID:  msg.From.ID,
			Name:    strings.ToLower(msg.Command()),
			Args:    strings.TrimSpace(msg.CommandArguments()),
			Private: private,
		}
		return u
	}
	if text := strings.TrimSpace(msg.Text); text != "" {
		u.Kind = UpdateKindText
		u.Text = &TextPayload{ChatID: msg.Chat.ID, UserID: msg.From.ID, Text: text, Private: private}
	}
	return u
}
