package telegram

import (
	"html"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxMessageRunes is Telegram's limit for a single text message.
const maxMessageRunes = 4096

// escape makes s safe to embed in a message sent with parseMode.
func escape(parseMode, s string) string {
	switch parseMode {
	case tgbotapi.ModeHTML:
		return html.EscapeString(s)
	case tgbotapi.ModeMarkdown, tgbotapi.ModeMarkdownV2:
		return tgbotapi.EscapeText(parseMode, s)
	default:
		return s
	}
}

// splitMessage cuts text into chunks Telegram will accept, preferring
// newline boundaries.
func splitMessage(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var parts []string
	r := []rune(text)
	for len(r) > limit {
		cut := limit
		if i := lastIndexRune(r[:limit], '\n'); i > limit/2 {
			cut = i + 1
		}
		parts = append(parts, strings.TrimRight(string(r[:cut]), "\n"))
		r = r[cut:]
	}
	if len(r) > 0 {
		parts = append(parts, string(r))
	}
	return parts
}

func lastIndexRune(r []rune, c rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == c {
			return i
		}
	}
	return -1
}
