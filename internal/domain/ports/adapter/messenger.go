package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// MessageContent is what gets posted for a booking. It is hashed to decide
// whether an edit is needed, so builders must produce it deterministically.
type MessageContent struct {
	Text    string
	Buttons [][]InlineButton
}

// Messenger is the thin typed boundary to the messaging platform.
// Errors returned by implementations are *PlatformError.
type Messenger interface {
	Send(ctx context.Context, chatID int64, content MessageContent) (messageID int64, err error)
	Edit(ctx context.Context, chatID, messageID int64, content MessageContent) error
	Delete(ctx context.Context, chatID, messageID int64) error
}

// ErrorKind is the platform-independent failure taxonomy.
type ErrorKind string

const (
	ErrorKindNotFound    ErrorKind = "not_found"
	ErrorKindRateLimited ErrorKind = "rate_limited"
	ErrorKindForbidden   ErrorKind = "forbidden"
	ErrorKindTransient   ErrorKind = "transient"
	ErrorKindUnknown     ErrorKind = "unknown"
)

// Retryable reports whether the caller may retry with backoff.
func (k ErrorKind) Retryable() bool {
	return k == ErrorKindRateLimited || k == ErrorKindTransient
}

type PlatformError struct {
	Kind        ErrorKind
	Method      string
	Code        int
	Description string
	RetryAfter  time.Duration
	Err         error
}

func (e *PlatformError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s (%d %s)", e.Method, e.Kind, e.Code, e.Description)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Method, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Method, e.Kind)
}

func (e *PlatformError) Unwrap() error { return e.Err }

// KindOf extracts the taxonomy kind from err. Errors that are not a
// *PlatformError are reported as unknown, context deadlines as transient.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var pe *PlatformError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTransient
	}
	return ErrorKindUnknown
}
