package chat

import (
	"errors"
	"fmt"

	"groq-chatter/internal/moderation"
)

// ErrPermissionDenied means the sender is not on the admin allow-list.
var ErrPermissionDenied = errors.New("user not in allow-list")

// ValidationError is a moderation rejection. It is user-visible and leaves
// no trace in the conversation.
type ValidationError struct {
	Reason  moderation.Reason
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("message rejected (%s): %s", e.Reason, e.Message)
}

// CompletionError wraps a failed or timed out model call.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string { return "completion failed: " + e.Err.Error() }
func (e *CompletionError) Unwrap() error { return e.Err }
