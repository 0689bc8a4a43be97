package ai

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"padel-telegram-notifier/internal/domain/ports/adapter"
)

// per-message framing overhead used by the chat completions format
const tokensPerMessage = 4

type tokenizer struct {
	model string
	once  sync.Once
	enc   *tiktoken.Tiktoken
}

func newTokenizer(model string) *tokenizer {
	return &tokenizer{model: model}
}

func (t *tokenizer) encoding() *tiktoken.Tiktoken {
	t.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(t.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding("cl100k_base")
		}
		if err == nil {
			t.enc = enc
		}
	})
	return t.enc
}

// Count returns the prompt size of messages. Without an encoding (offline,
// unknown model) it estimates four runes per token.
func (t *tokenizer) Count(messages []adapter.Message) int {
	enc := t.encoding()
	n := 0
	for _, m := range messages {
		n += tokensPerMessage
		if enc != nil {
			n += len(enc.Encode(m.Content, nil, nil))
			continue
		}
		n += estimateTokens(m.Content)
	}
	return n
}

func estimateTokens(s string) int {
	r := utf8.RuneCountInString(s)
	return (r + 3) / 4
}
