package telegram

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"groq-chatter/internal/analytics"
	"groq-chatter/internal/auth"
	"groq-chatter/internal/chat"
	"groq-chatter/internal/history"
	"groq-chatter/internal/llm"
	"groq-chatter/internal/storage"
)

type sentMessage struct {
	ChatID    int64
	Text      string
	ParseMode string
}

type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMessage
	requests []tgbotapi.Chattable
	err      error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	sw := c.(tgbotapi.MessageConfig)
	f.sent = append(f.sent, sentMessage{ChatID: sw.ChatID, Text: sw.Text, ParseMode: sw.ParseMode})
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.Text)
	}
	return out
}

type fakeLLM struct {
	resp llm.Response
	err  error
}

func (f fakeLLM) Generate(ctx context.Context, msgs []llm.Message, _ llm.Params) (llm.Response, error) {
	return f.resp, f.err
}

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestBot(t *testing.T, client llm.Client, admins []int64) (*Bot, *fakeSender, *fakeSender) {
	t.Helper()
	fs := &fakeSender{}
	gs := &fakeSender{}
	h := history.NewManager(10)
	stats := analytics.NewStats(func() time.Time { return fixedNow })
	svc := auth.New(admins)
	rec, err := storage.NewFileRecorder(filepath.Join(t.TempDir(), "audit.jsonl"))
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}
	gl := &GroupLogger{s: gs, groupID: -500, now: func() time.Time { return fixedNow }}

	p := chat.NewPipeline(chat.Settings{
		SystemPrompt:      "sys",
		Model:             "m",
		MaxTokens:         10,
		MaxMessageLength:  1000,
		BannedWords:       []string{"spam"},
		CompletionTimeout: time.Second,
	}, h, stats, svc, client, nil, chat.WithObserver(chat.Observers{gl}))

	b := &Bot{
		s:         fs,
		pipeline:  p,
		history:   h,
		stats:     stats,
		authSvc:   svc,
		recorder:  rec,
		groupLog:  gl,
		parseMode: tgbotapi.ModeHTML,
		now:       func() time.Time { return fixedNow },
	}
	b.defaults()
	return b, fs, gs
}

func textUpdate(chatID, userID int64, chatType, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, UserName: "alice"},
		Chat: &tgbotapi.Chat{ID: chatID, Type: chatType},
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.Fields(text)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func TestPrivateMessageGetsReply(t *testing.T) {
	b, fs, _ := newTestBot(t, fakeLLM{resp: llm.Response{Content: "a < b"}}, nil)
	b.HandleUpdate(context.Background(), textUpdate(7, 7, "private", "hello"))

	if len(fs.sent) != 1 || fs.sent[0].Text != "a < b" || fs.sent[0].ParseMode != "" {
		t.Fatalf("model reply should be sent verbatim as plain text: %+v", fs.sent)
	}
}

func TestGroupMessageIgnoredUntilStartAI(t *testing.T) {
	b, fs, _ := newTestBot(t, fakeLLM{resp: llm.Response{Content: "hi"}}, nil)
	b.HandleUpdate(context.Background(), textUpdate(-1, 7, "group", "hello"))
	if len(fs.sent) != 0 {
		t.Fatalf("group with AI off must stay silent: %v", fs.texts())
	}

	b.HandleUpdate(context.Background(), textUpdate(-1, 7, "group", "/startAI"))
	b.HandleUpdate(context.Background(), textUpdate(-1, 7, "group", "hello"))
	got := fs.texts()
	if len(got) != 2 || !strings.Contains(got[0], "AI Enabled") || got[1] != "hi" {
		t.Fatalf("unexpected messages: %v", got)
	}

	b.HandleUpdate(context.Background(), textUpdate(-1, 7, "group", "/stopAI"))
	b.HandleUpdate(context.Background(), textUpdate(-1, 7, "group", "hello"))
	got = fs.texts()
	if len(got) != 3 || !strings.Contains(got[2], "AI Disabled") {
		t.Fatalf("unexpected messages after stop: %v", got)
	}
}

func TestFailureSendsApologyAndLogsToGroup(t *testing.T) {
	b, fs, gs := newTestBot(t, fakeLLM{err: errors.New("boom <x>")}, nil)
	b.HandleUpdate(context.Background(), textUpdate(7, 7, "private", "hello"))

	if got := fs.texts(); len(got) != 1 || got[0] != chat.FailureReply {
		t.Fatalf("want apology, got %v", got)
	}
	if b.history.Len(7) != 0 {
		t.Fatalf("failed turn must be rolled back")
	}
	g := gs.texts()
	if len(g) != 1 || !strings.Contains(g[0], "❌ <b>Error Occurred</b>") || !strings.Contains(g[0], "boom &lt;x&gt;") {
		t.Fatalf("error not logged to group: %v", g)
	}
	if !strings.HasPrefix(g[0], "🤖 [ERROR] 2025-01-02 03:04:05\n\n") {
		t.Fatalf("unexpected group header: %q", g[0])
	}
}

func TestModerationLogsToGroup(t *testing.T) {
	b, fs, gs := newTestBot(t, fakeLLM{resp: llm.Response{Content: "x"}}, nil)
	b.HandleUpdate(context.Background(), textUpdate(7, 7, "private", "buy spam now"))
	if got := fs.texts(); len(got) != 1 || !strings.Contains(got[0], "inappropriate content") {
		t.Fatalf("want moderation reply, got %v", got)
	}
	if g := gs.texts(); len(g) != 1 || !strings.Contains(g[0], "Message blocked") {
		t.Fatalf("moderation not logged: %v", g)
	}
}

func TestClearAndStats(t *testing.T) {
	b, fs, _ := newTestBot(t, fakeLLM{resp: llm.Response{Content: "ok"}}, nil)
	b.HandleUpdate(context.Background(), textUpdate(7, 7, "private", "one"))
	b.HandleUpdate(context.Background(), textUpdate(7, 7, "private", "/stats"))

	got := fs.texts()
	stats := got[len(got)-1]
	for _, want := range []string{"Total Messages: 1", "This Chat: 2", "Users: 1", "Uptime: 0h 0m"} {
		if !strings.Contains(stats, want) {
			t.Fatalf("stats missing %q: %q", want, stats)
		}
	}

	b.HandleUpdate(context.Background(), textUpdate(7, 7, "private", "/clear"))
	if b.history.Len(7) != 0 {
		t.Fatalf("clear did not empty history")
	}
	if !b.history.IsAIEnabled(7) {
		t.Fatalf("clear must keep AI flag")
	}
	if last := fs.texts()[len(fs.texts())-1]; last != "✅ Conversation cleared!" {
		t.Fatalf("unexpected clear reply %q", last)
	}
}

// gateLLM blocks inside Generate until release is closed.
type gateLLM struct {
	entered chan struct{}
	release chan struct{}
	err     error
}

func newGateLLM(err error) *gateLLM {
	return &gateLLM{entered: make(chan struct{}, 1), release: make(chan struct{}), err: err}
}

func (g *gateLLM) Generate(ctx context.Context, _ []llm.Message, _ llm.Params) (llm.Response, error) {
	g.entered <- struct{}{}
	<-g.release
	if g.err != nil {
		return llm.Response{}, g.err
	}
	return llm.Response{Content: "reply"}, nil
}

func TestClearWaitsForInFlightExchange(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		prefill int
	}{
		{"reply", nil, 0},
		{"failure at capacity", errors.New("upstream down"), 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gate := newGateLLM(tc.err)
			b, _, _ := newTestBot(t, gate, nil)
			const chatID = int64(9)
			b.history.EnableAI(chatID)
			for i := 0; i < tc.prefill; i += 2 {
				b.history.AppendUser(chatID, "q")
				b.history.AppendAssistant(chatID, "a")
			}

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				b.HandleUpdate(context.Background(), textUpdate(chatID, 9, "group", "hello"))
			}()
			select {
			case <-gate.entered:
			case <-time.After(time.Second):
				t.Fatalf("completion never started")
			}

			go func() {
				defer wg.Done()
				b.HandleUpdate(context.Background(), textUpdate(chatID, 9, "group", "/clear"))
			}()
			time.Sleep(20 * time.Millisecond)
			close(gate.release)
			wg.Wait()

			if got := b.history.Get(chatID); len(got) != 0 {
				t.Fatalf("history after /clear should be empty, got %+v", got)
			}
		})
	}
}

func TestStartResetsAndGreets(t *testing.T) {
	b, fs, gs := newTestBot(t, fakeLLM{resp: llm.Response{Content: "ok"}}, nil)
	loc := time.FixedZone("ICT", 7*3600)
	b.displayLoc = loc
	b.HandleUpdate(context.Background(), textUpdate(7, 7, "private", "hey"))
	b.HandleUpdate(context.Background(), textUpdate(7, 7, "private", "/start"))

	if b.history.Len(7) != 0 {
		t.Fatalf("/start must reset history")
	}
	got := fs.texts()
	if !strings.Contains(got[len(got)-1], "Time: 2025-01-02 10:04:05") {
		t.Fatalf("greeting should show local time: %q", got[len(got)-1])
	}
	if g := gs.texts(); len(g) == 0 || !strings.Contains(g[len(g)-1], "Started bot") {
		t.Fatalf("start not logged to group: %v", g)
	}
}

func TestMyGroupEscapesTitle(t *testing.T) {
	b, fs, _ := newTestBot(t, fakeLLM{}, nil)
	upd := textUpdate(-100, 7, "supergroup", "/myGroup@groq_bot")
	upd.Message.Chat.Title = "R&D <team>"
	b.HandleUpdate(context.Background(), upd)

	got := fs.texts()
	if len(got) != 1 || !strings.Contains(got[0], "Chat: R&amp;D &lt;team&gt;") || !strings.Contains(got[0], "Chat ID: -100") {
		t.Fatalf("unexpected chat info: %v", got)
	}
}

func TestTestLogCommand(t *testing.T) {
	b, fs, gs := newTestBot(t, fakeLLM{}, nil)
	b.HandleUpdate(context.Background(), textUpdate(7, 7, "private", "/testlog"))
	if g := gs.texts(); len(g) != 1 || !strings.Contains(g[0], "[TEST]") || !strings.Contains(g[0], "From: @alice") {
		t.Fatalf("test log not sent: %v", g)
	}
	if got := fs.texts(); len(got) != 2 || got[1] != "✅ Log sent!" {
		t.Fatalf("unexpected replies: %v", got)
	}

	b.groupLog = nil
	b.HandleUpdate(context.Background(), textUpdate(7, 7, "private", "/testlog"))
	if got := fs.texts(); !strings.Contains(got[len(got)-1], "LOG_GROUP_ID not set") {
		t.Fatalf("missing group warning: %v", got)
	}
}

func TestReportIsAdminOnly(t *testing.T) {
	b, fs, _ := newTestBot(t, fakeLLM{resp: llm.Response{Content: "ok"}}, []int64{7})
	b.HandleUpdate(context.Background(), textUpdate(8, 8, "private", "/report"))
	if got := fs.texts(); len(got) != 1 || !strings.Contains(got[0], "administrators only") {
		t.Fatalf("non-admin should be refused: %v", got)
	}

	b.HandleUpdate(context.Background(), textUpdate(7, 7, "private", "/start"))
	b.HandleUpdate(context.Background(), textUpdate(7, 7, "private", "/report"))
	got := fs.sent[len(fs.sent)-1]
	if got.ParseMode != tgbotapi.ModeHTML || !strings.Contains(got.Text, "Daily Summary 2025-01-02") || !strings.Contains(got.Text, "• /start: 1") {
		t.Fatalf("unexpected report: %+v", got)
	}
}

func TestLongReplyIsSplit(t *testing.T) {
	long := strings.Repeat("x", maxMessageRunes+10)
	b, fs, _ := newTestBot(t, fakeLLM{resp: llm.Response{Content: long}}, nil)
	b.HandleUpdate(context.Background(), textUpdate(7, 7, "private", "go"))
	got := fs.texts()
	if len(got) != 2 || len(got[0]) != maxMessageRunes || len(got[1]) != 10 {
		t.Fatalf("unexpected split sizes: %d parts", len(got))
	}
}

func TestIgnoresNonTextUpdates(t *testing.T) {
	b, fs, _ := newTestBot(t, fakeLLM{}, nil)
	b.HandleUpdate(context.Background(), tgbotapi.Update{})
	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}}})
	if len(fs.sent) != 0 {
		t.Fatalf("nothing should be sent: %v", fs.texts())
	}
}

func TestTypingUsesRequest(t *testing.T) {
	fs := &fakeSender{}
	if err := (typingNotifier{s: fs}).Typing(context.Background(), 5); err != nil {
		t.Fatalf("typing: %v", err)
	}
	if len(fs.requests) != 1 {
		t.Fatalf("want one request, got %d", len(fs.requests))
	}
	if a, ok := fs.requests[0].(tgbotapi.ChatActionConfig); !ok || a.Action != tgbotapi.ChatTyping {
		t.Fatalf("unexpected request %#v", fs.requests[0])
	}
}

func TestSendActivityReport(t *testing.T) {
	gs := &fakeSender{}
	gl := &GroupLogger{s: gs, groupID: -9, now: time.Now}
	stats := analytics.NewStats(nil)

	if err := gl.SendActivityReport(context.Background(), stats); err != nil || len(gs.sent) != 0 {
		t.Fatalf("empty ledger must send nothing: %v %v", err, gs.texts())
	}
	stats.TrackRequest(1, "a")
	if err := gl.SendActivityReport(context.Background(), stats); err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(gs.sent) != 1 || gs.sent[0].ChatID != -9 || gs.sent[0].ParseMode != tgbotapi.ModeHTML {
		t.Fatalf("unexpected report send: %+v", gs.sent)
	}
	if stats.PendingUsers() != 0 {
		t.Fatalf("ledger not reset")
	}

	gs.err = errors.New("network")
	stats.TrackRequest(1, "a")
	if err := gl.SendActivityReport(context.Background(), stats); err == nil {
		t.Fatalf("send failure should surface")
	}
}
