package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"groq-chatter/internal/analytics"
	"groq-chatter/internal/metrics"
	"groq-chatter/internal/storage"
)

const (
	LogInfo   = "INFO"
	LogUser   = "USER"
	LogError  = "ERROR"
	LogTest   = "TEST"
	LogReport = "REPORT"
)

// GroupLogger mirrors notable bot activity into a Telegram group as HTML
// messages. With no group configured every call is a no-op.
type GroupLogger struct {
	s       sender
	groupID int64
	now     func() time.Time
	log     *zerolog.Logger
}

func NewGroupLogger(api *tgbotapi.BotAPI, groupID int64, log *zerolog.Logger) *GroupLogger {
	return &GroupLogger{s: botAPISender{api: api}, groupID: groupID, now: time.Now, log: log}
}

func (g *GroupLogger) Enabled() bool { return g != nil && g.groupID != 0 }

// Send posts message under a "[kind] timestamp" header. message is HTML.
func (g *GroupLogger) Send(kind, message string) error {
	if !g.Enabled() {
		return nil
	}
	text := fmt.Sprintf("🤖 [%s] %s\n\n%s", kind, g.now().Format("2006-01-02 15:04:05"), message)
	msg := tgbotapi.NewMessage(g.groupID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := g.s.Send(msg); err != nil {
		return fmt.Errorf("send to log group: %w", err)
	}
	return nil
}

func (g *GroupLogger) UserActivity(userID int64, username, action, details string) {
	if username == "" {
		username = "N/A"
	}
	message := fmt.Sprintf("👤 <b>User Activity</b>\nUser ID: <code>%d</code>\nUsername: @%s\nAction: %s\nDetails: %s",
		userID, html.EscapeString(username), html.EscapeString(action), html.EscapeString(details))
	g.post(LogUser, message)
}

func (g *GroupLogger) Error(errMsg string, userID int64) {
	var b strings.Builder
	b.WriteString("❌ <b>Error Occurred</b>\n")
	if userID != 0 {
		fmt.Fprintf(&b, "User ID: <code>%d</code>\n", userID)
	}
	fmt.Fprintf(&b, "Error: %s", html.EscapeString(errMsg))
	g.post(LogError, b.String())
}

func (g *GroupLogger) post(kind, message string) {
	if err := g.Send(kind, message); err != nil && g.log != nil {
		g.log.Error().Err(err).Str("kind", kind).Msg("failed to log to group")
	}
}

// Observe forwards pipeline rejections and failures to the group.
func (g *GroupLogger) Observe(_ context.Context, ev storage.Event) {
	if !g.Enabled() {
		return
	}
	switch ev.Kind {
	case storage.KindModeration:
		g.UserActivity(ev.UserID, ev.Username, "Message blocked", ev.Detail)
	case storage.KindDenied:
		g.UserActivity(ev.UserID, ev.Username, "Permission denied", fmt.Sprintf("chat %d", ev.ChatID))
	case storage.KindError:
		g.Error(ev.Detail, ev.UserID)
	}
}

// SendActivityReport drains the activity ledger into the group. An empty
// ledger sends nothing.
func (g *GroupLogger) SendActivityReport(_ context.Context, stats *analytics.Stats) error {
	if !g.Enabled() {
		return nil
	}
	text, ok := stats.BuildReport()
	if !ok {
		metrics.IncReport("empty")
		if g.log != nil {
			g.log.Debug().Msg("no user activity to report")
		}
		return nil
	}
	msg := tgbotapi.NewMessage(g.groupID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := g.s.Send(msg); err != nil {
		metrics.IncReport("failed")
		return fmt.Errorf("send activity report: %w", err)
	}
	metrics.IncReport("sent")
	if g.log != nil {
		g.log.Info().Msg("periodic report sent and counters reset")
	}
	return nil
}
