package storage

import "time"

// Kind classifies an audit event.
type Kind string

const (
	KindMessage    Kind = "message"
	KindReply      Kind = "reply"
	KindModeration Kind = "moderation"
	KindDenied     Kind = "denied"
	KindError      Kind = "error"
	KindCommand    Kind = "command"
)

// Event is one line of the audit trail.
// Events are expected to be appended in chronological order.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	ChatID    int64     `json:"chat_id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Recorder abstracts persistence of audit events.
// LoadEvents should return events in chronological order.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendEvent(event Event) error
	LoadEvents() ([]Event, error)
}
