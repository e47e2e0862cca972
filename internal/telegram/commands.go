package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"groq-chatter/internal/analytics"
	"groq-chatter/internal/logging"
	"groq-chatter/internal/storage"
)

const (
	cmdStart   = "start"
	cmdHelp    = "help"
	cmdClear   = "clear"
	cmdStats   = "stats"
	cmdMyGroup = "mygroup"
	cmdTestLog = "testlog"
	cmdStopAI  = "stopai"
	cmdStartAI = "startai"
	cmdReport  = "report"
)

const helpText = `🤖 Commands:

/start - Start the bot
/help - Show help
/clear - Clear conversation
/stats - Show statistics
/myGroup - Show chat info
/stopAI - Stop answering in this chat
/startAI - Answer messages in this chat
/testlog - Send a test entry to the log group

Just send me any message!`

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	name := strings.ToLower(msg.Command())
	chatID := msg.Chat.ID

	switch name {
	case cmdStart:
		b.handleStart(msg)
	case cmdHelp:
		b.sendMessage(chatID, helpText)
	case cmdClear:
		b.clearHistory(chatID)
		b.sendMessage(chatID, "✅ Conversation cleared!")
	case cmdStats:
		b.handleStats(msg)
	case cmdMyGroup:
		b.handleMyGroup(msg)
	case cmdTestLog:
		b.handleTestLog(msg)
	case cmdStopAI:
		b.history.DisableAI(chatID)
		b.sendMessage(chatID, "🔴 AI Disabled\n\nI won't respond to messages.\nUse /startAI to enable again.")
	case cmdStartAI:
		b.history.EnableAI(chatID)
		b.sendMessage(chatID, "🟢 AI Enabled\n\nI'm back! Send me messages.")
	case cmdReport:
		b.handleReportCommand(msg)
	default:
		logging.With(ctx, b.log).Debug().Str("command", name).Msg("unknown command ignored")
		return
	}

	b.audit(storage.Event{
		Timestamp: b.now(),
		Kind:      storage.KindCommand,
		ChatID:    chatID,
		UserID:    msg.From.ID,
		Username:  msg.From.UserName,
		Detail:    name,
	})
}

// clearHistory waits for an in-flight exchange in the chat so that neither
// its reply nor its rollback lands after the clear.
func (b *Bot) clearHistory(chatID int64) {
	unlock := b.history.Lock(chatID)
	defer unlock()
	b.history.Clear(chatID)
}

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	b.clearHistory(msg.Chat.ID)

	welcome := fmt.Sprintf(`🇰🇭 ជំរាបសួរ! (Hello!)

🤖 I'm a smart AI chatbot.
🕐 Time: %s

You can:
• Chat with me naturally
• Ask questions on any topic
• Use /clear to reset conversation
• Use /stats to see bot statistics
• Use /help for more info

What would you like to talk about?`, b.now().In(b.displayLoc).Format("2006-01-02 15:04:05"))
	b.sendMessage(msg.Chat.ID, welcome)

	b.groupLog.UserActivity(msg.From.ID, msg.From.UserName, "Started bot", chatTitle(msg.Chat))
}

func (b *Bot) handleStats(msg *tgbotapi.Message) {
	snap := b.stats.Snapshot()
	text := fmt.Sprintf("📊 Bot Statistics\n\n📨 Total Messages: %d\n💬 This Chat: %d\n👥 Users: %d\n⏱ Uptime: %s",
		snap.TotalMessages, b.history.Len(msg.Chat.ID), snap.UniqueUsers, snap.Uptime)
	b.sendMessage(msg.Chat.ID, text)
}

func (b *Bot) handleMyGroup(msg *tgbotapi.Message) {
	text := fmt.Sprintf("ℹ️ Chat Info\n\n📱 Chat: %s\n🆔 Chat ID: %d\n👤 Your ID: %d\n\n💡 Each chat has its own history!",
		chatTitle(msg.Chat), msg.Chat.ID, msg.From.ID)
	b.sendMessage(msg.Chat.ID, text)
}

func (b *Bot) handleTestLog(msg *tgbotapi.Message) {
	if !b.groupLog.Enabled() {
		b.sendMessage(msg.Chat.ID, "❌ LOG_GROUP_ID not set!")
		return
	}
	b.sendMessage(msg.Chat.ID, "✅ Testing log...")

	username := msg.From.UserName
	if username == "" {
		username = "Unknown"
	}
	if err := b.groupLog.Send(LogTest, "🧪 Test Log\nFrom: @"+escape(tgbotapi.ModeHTML, username)); err != nil {
		b.sendMessage(msg.Chat.ID, "❌ Error: "+err.Error())
		return
	}
	b.sendMessage(msg.Chat.ID, "✅ Log sent!")
}

// handleReportCommand summarises today's audit trail. Admins only.
func (b *Bot) handleReportCommand(msg *tgbotapi.Message) {
	if !b.authSvc.IsAdmin(msg.From.ID) {
		b.sendMessage(msg.Chat.ID, "❌ This command is for administrators only.")
		return
	}
	events, err := b.recorder.LoadEvents()
	if err != nil {
		b.log.Error().Err(err).Msg("report generation failed")
		b.sendMessage(msg.Chat.ID, "❌ Report generation failed: "+err.Error())
		return
	}
	summary := analytics.AnalyzeDailyLogs(events, b.now().In(b.reportLoc)).GenerateReportSummary()
	out := tgbotapi.NewMessage(msg.Chat.ID, summary)
	out.ParseMode = tgbotapi.ModeHTML
	if _, err := b.s.Send(out); err != nil {
		b.log.Error().Err(err).Msg("failed to send report")
	}
}

func (b *Bot) audit(ev storage.Event) {
	if err := b.recorder.AppendEvent(ev); err != nil {
		b.log.Warn().Err(err).Str("kind", string(ev.Kind)).Msg("failed to append audit event")
	}
}

func chatTitle(c *tgbotapi.Chat) string {
	if c.Title != "" {
		return c.Title
	}
	return "Private Chat"
}
