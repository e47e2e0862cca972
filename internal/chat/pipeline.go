// Package chat turns one inbound text message into at most one reply,
// keeping the chat session and statistics consistent on every path.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"groq-chatter/internal/analytics"
	"groq-chatter/internal/auth"
	"groq-chatter/internal/history"
	"groq-chatter/internal/llm"
	"groq-chatter/internal/logging"
	"groq-chatter/internal/metrics"
	"groq-chatter/internal/moderation"
	"groq-chatter/internal/storage"
)

const (
	ChatPrivate    = "private"
	ChatGroup      = "group"
	ChatSupergroup = "supergroup"
)

const (
	PermissionDeniedReply = "⛔ Sorry, you don't have permission to use this bot."
	FailureReply          = "❌ Sorry, I encountered an error. Please try again."
)

type Outcome string

const (
	OutcomeReplied   Outcome = "replied"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDenied    Outcome = "denied"
	OutcomeModerated Outcome = "moderated"
	OutcomeFailed    Outcome = "failed"
)

type Inbound struct {
	ChatID   int64
	UserID   int64
	Username string
	ChatType string
	Text     string
}

// Result is what the transport should do with a message. An empty Reply
// means stay silent. Err carries the typed cause for logging.
type Result struct {
	Outcome Outcome
	Reply   string
	Err     error
}

type Settings struct {
	SystemPrompt      string
	Provider          string
	Model             string
	Temperature       float32
	MaxTokens         int
	MaxMessageLength  int
	BannedWords       []string
	CompletionTimeout time.Duration
}

type Pipeline struct {
	cfg      Settings
	sessions *history.Manager
	stats    *analytics.Stats
	access   *auth.Service
	client   llm.Client
	log      *zerolog.Logger

	observer Observer
	typing   TypingNotifier
	now      func() time.Time
}

type Option func(*Pipeline)

func WithObserver(o Observer) Option { return func(p *Pipeline) { p.observer = o } }

func WithTyping(t TypingNotifier) Option { return func(p *Pipeline) { p.typing = t } }

func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

func NewPipeline(cfg Settings, sessions *history.Manager, stats *analytics.Stats, access *auth.Service, client llm.Client, log *zerolog.Logger, opts ...Option) *Pipeline {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	p := &Pipeline{
		cfg:      cfg,
		sessions: sessions,
		stats:    stats,
		access:   access,
		client:   client,
		log:      log,
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Handle runs one message through the pipeline. Per-message failures never
// escape; they are folded into the Result.
func (p *Pipeline) Handle(ctx context.Context, in Inbound) Result {
	ctx = logging.WithUserID(logging.WithChatID(ctx, in.ChatID), in.UserID)
	log := logging.With(ctx, p.log)

	res := p.handle(ctx, log, in)
	metrics.IncMessage(string(res.Outcome))
	metrics.SetSessions(p.sessions.Chats())

	ev := log.Debug()
	if res.Err != nil {
		ev = log.Warn().Err(res.Err)
	}
	ev.Str("outcome", string(res.Outcome)).Msg("message handled")
	return res
}

func (p *Pipeline) handle(ctx context.Context, log *zerolog.Logger, in Inbound) Result {
	if in.ChatType == ChatPrivate && p.sessions.EnableAIIfDisabled(in.ChatID) {
		log.Info().Msg("AI auto-enabled for private chat")
	}
	if !p.sessions.IsAIEnabled(in.ChatID) {
		return Result{Outcome: OutcomeIgnored}
	}

	p.stats.TrackRequest(in.UserID, in.Username)
	p.stats.RecordMessage(in.UserID)

	if !p.access.IsAllowed(in.UserID) {
		p.emit(ctx, in, storage.KindDenied, "")
		return Result{Outcome: OutcomeDenied, Reply: PermissionDeniedReply, Err: ErrPermissionDenied}
	}

	if v := moderation.Check(in.Text, p.cfg.MaxMessageLength, p.cfg.BannedWords); !v.Allowed {
		metrics.IncModerationBlock(string(v.Reason))
		p.emit(ctx, in, storage.KindModeration, string(v.Reason))
		return Result{
			Outcome: OutcomeModerated,
			Reply:   "❌ " + v.Message,
			Err:     &ValidationError{Reason: v.Reason, Message: v.Message},
		}
	}

	return p.converse(ctx, log, in)
}

// converse runs the exchange under the chat lock and publishes its events
// once the lock is released, so slow observers never hold up the chat.
func (p *Pipeline) converse(ctx context.Context, log *zerolog.Logger, in Inbound) Result {
	res, events := p.exchange(ctx, log, in)
	for _, ev := range events {
		p.observe(ctx, ev)
	}
	return res
}

// exchange runs append, completion and commit-or-rollback under the chat lock.
func (p *Pipeline) exchange(ctx context.Context, log *zerolog.Logger, in Inbound) (Result, []storage.Event) {
	unlock := p.sessions.Lock(in.ChatID)
	defer unlock()

	before := p.sessions.Get(in.ChatID)
	p.sessions.AppendUser(in.ChatID, in.Text)
	events := []storage.Event{p.event(in, storage.KindMessage, logging.Preview(in.Text, 200))}

	if p.typing != nil {
		if err := p.typing.Typing(ctx, in.ChatID); err != nil {
			log.Warn().Err(err).Msg("could not send typing action")
		}
	}

	resp, err := p.complete(ctx, p.prompt(in.ChatID))
	if err != nil {
		if len(before) >= p.sessions.Limit() {
			p.sessions.Restore(in.ChatID, before)
		} else {
			p.sessions.PopLast(in.ChatID)
		}
		events = append(events, p.event(in, storage.KindError, err.Error()))
		return Result{Outcome: OutcomeFailed, Reply: FailureReply, Err: &CompletionError{Err: err}}, events
	}

	p.sessions.AppendAssistant(in.ChatID, resp.Content)
	events = append(events, p.event(in, storage.KindReply, logging.Preview(resp.Content, 200)))
	log.Info().
		Str("model", resp.Model).
		Int("total_tokens", resp.TotalTokens).
		Msg("reply generated")
	return Result{Outcome: OutcomeReplied, Reply: resp.Content}, events
}

func (p *Pipeline) prompt(chatID int64) []llm.Message {
	turns := p.sessions.Get(chatID)
	msgs := make([]llm.Message, 0, len(turns)+1)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: p.cfg.SystemPrompt})
	return append(msgs, turns...)
}

func (p *Pipeline) complete(ctx context.Context, msgs []llm.Message) (llm.Response, error) {
	if p.cfg.CompletionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.CompletionTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := p.client.Generate(ctx, msgs, llm.Params{
		Model:       p.cfg.Model,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	})
	if err == nil && strings.TrimSpace(resp.Content) == "" {
		err = llm.ErrEmptyResponse
	}
	metrics.ObserveCompletion(p.cfg.Provider, p.cfg.Model,
		resp.PromptTokens, resp.CompletionTokens, resp.TotalTokens,
		time.Since(start), err == nil)
	return resp, err
}

func (p *Pipeline) emit(ctx context.Context, in Inbound, kind storage.Kind, detail string) {
	p.observe(ctx, p.event(in, kind, detail))
}

func (p *Pipeline) event(in Inbound, kind storage.Kind, detail string) storage.Event {
	return storage.Event{
		Timestamp: p.now(),
		Kind:      kind,
		ChatID:    in.ChatID,
		UserID:    in.UserID,
		Username:  in.Username,
		Detail:    detail,
	}
}

func (p *Pipeline) observe(ctx context.Context, ev storage.Event) {
	if p.observer != nil {
		p.observer.Observe(ctx, ev)
	}
}
