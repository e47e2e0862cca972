package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"groq-chatter/internal/analytics"
	"groq-chatter/internal/auth"
	"groq-chatter/internal/chat"
	"groq-chatter/internal/history"
	"groq-chatter/internal/logging"
	"groq-chatter/internal/storage"
)

// Deps are the collaborators the bot routes updates to.
type Deps struct {
	Pipeline  *chat.Pipeline
	History   *history.Manager
	Stats     *analytics.Stats
	Auth      *auth.Service
	Recorder  storage.Recorder
	GroupLog  *GroupLogger
	ParseMode string
	// DisplayLocation is the clock shown in the /start greeting.
	DisplayLocation *time.Location
	// ReportLocation decides which calendar day /report summarises.
	ReportLocation *time.Location
	Logger         *zerolog.Logger
}

type Bot struct {
	api *tgbotapi.BotAPI
	s   sender

	pipeline  *chat.Pipeline
	history   *history.Manager
	stats     *analytics.Stats
	authSvc   *auth.Service
	recorder  storage.Recorder
	groupLog  *GroupLogger
	parseMode string

	displayLoc *time.Location
	reportLoc  *time.Location
	log        *zerolog.Logger
	now        func() time.Time
}

func New(api *tgbotapi.BotAPI, d Deps) *Bot {
	b := &Bot{
		api:        api,
		s:          botAPISender{api: api},
		pipeline:   d.Pipeline,
		history:    d.History,
		stats:      d.Stats,
		authSvc:    d.Auth,
		recorder:   d.Recorder,
		groupLog:   d.GroupLog,
		parseMode:  d.ParseMode,
		displayLoc: d.DisplayLocation,
		reportLoc:  d.ReportLocation,
		log:        d.Logger,
		now:        time.Now,
	}
	b.defaults()
	return b
}

func (b *Bot) defaults() {
	if b.displayLoc == nil {
		b.displayLoc = time.UTC
	}
	if b.reportLoc == nil {
		b.reportLoc = time.UTC
	}
	if b.recorder == nil {
		b.recorder = storage.Discard{}
	}
	if b.log == nil {
		nop := zerolog.Nop()
		b.log = &nop
	}
	if b.now == nil {
		b.now = time.Now
	}
}

// Start long-polls Telegram until ctx is cancelled. Webhook deployments call
// HandleUpdate directly instead.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info().Str("bot", b.api.Self.UserName).Msg("polling for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate processes one Telegram update. Only messages with text are
// acted upon; everything else is ignored.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return
	}
	ctx = logging.WithUserID(logging.WithChatID(ctx, msg.Chat.ID), msg.From.ID)
	log := logging.With(ctx, b.log)
	log.Debug().Str("text", logging.Preview(msg.Text, 50)).Msg("incoming message")

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("update handler panicked")
		}
	}()

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	b.handleIncomingMessage(ctx, msg)
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	res := b.pipeline.Handle(ctx, chat.Inbound{
		ChatID:   msg.Chat.ID,
		UserID:   msg.From.ID,
		Username: msg.From.UserName,
		ChatType: msg.Chat.Type,
		Text:     msg.Text,
	})
	if res.Reply == "" {
		return
	}
	// model output is sent as plain text; it carries no markup we control
	for _, part := range splitMessage(res.Reply, maxMessageRunes) {
		b.sendPlain(msg.Chat.ID, part)
	}
}

func (b *Bot) sendPlain(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.s.Send(msg); err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}

// sendMessage sends bot-authored plain text, escaped for the configured
// parse mode so it renders literally.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, escape(b.parseMode, text))
	msg.ParseMode = b.parseMode
	if _, err := b.s.Send(msg); err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}

// typingNotifier shows the "typing" chat action.
type typingNotifier struct{ s sender }

// NewTyping returns a notifier that sends the typing action through api.
func NewTyping(api *tgbotapi.BotAPI) chat.TypingNotifier {
	return typingNotifier{s: botAPISender{api: api}}
}

func (t typingNotifier) Typing(_ context.Context, chatID int64) error {
	_, err := t.s.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	return err
}
