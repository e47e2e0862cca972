// Package moderation screens user input before it reaches the conversation.
package moderation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type Reason string

const (
	ReasonNone    Reason = ""
	ReasonLength  Reason = "length"
	ReasonContent Reason = "content"
)

type Verdict struct {
	Allowed bool
	Reason  Reason
	// Message is the user-facing explanation for a denial.
	Message string
}

// Check applies the length rule first and the banned-word rule second.
// Length is counted in characters; maxLength <= 0 disables it. Banned words
// match as case-insensitive substrings and empty entries are ignored.
func Check(text string, maxLength int, bannedWords []string) Verdict {
	if maxLength > 0 && utf8.RuneCountInString(text) > maxLength {
		return Verdict{
			Reason:  ReasonLength,
			Message: fmt.Sprintf("Message too long (max %d characters)", maxLength),
		}
	}

	lower := strings.ToLower(text)
	for _, w := range bannedWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if strings.Contains(lower, w) {
			return Verdict{
				Reason:  ReasonContent,
				Message: "Message contains inappropriate content",
			}
		}
	}

	return Verdict{Allowed: true}
}
