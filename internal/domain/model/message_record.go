package model

import "time"

type MessageStatus string

const (
	MessageStatusAbsent  MessageStatus = "absent"  // cleared after the message vanished out-of-band
	MessageStatusPosted  MessageStatus = "posted"  // message exists and matches ContentHash
	MessageStatusStale   MessageStatus = "stale"   // last external edit failed; the sweep retries it
	MessageStatusDeleted MessageStatus = "deleted" // booking cancelled and message removed
)

// MessageRecord maps a booking to the chat message that announces it.
// Rows are never removed; Status tracks logical deletion.
type MessageRecord struct {
	BookingID    string
	ChatID       int64
	MessageID    int64
	ContentHash  string
	Status       MessageStatus
	LastSyncedAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasLiveMessage reports whether the record points at a message that should
// exist on the platform.
func (r *MessageRecord) HasLiveMessage() bool {
	if r == nil || r.MessageID == 0 {
		return false
	}
	return r.Status == MessageStatusPosted || r.Status == MessageStatusStale
}
