// Package mcpadmin exposes read and control operations over the running bot
// as MCP tools, served over HTTP next to the webhook.
package mcpadmin

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"groq-chatter/internal/analytics"
	"groq-chatter/internal/history"
	"groq-chatter/internal/storage"
)

const dateLayout = "2006-01-02"

type ChatParams struct {
	ChatID int64 `json:"chat_id" mcp:"telegram chat id"`
}

type SetAIParams struct {
	ChatID  int64 `json:"chat_id" mcp:"telegram chat id"`
	Enabled bool  `json:"enabled" mcp:"true to turn AI replies on, false to turn them off"`
}

type ReportParams struct {
	Date   string `json:"date,omitempty" mcp:"day to summarise as YYYY-MM-DD, defaults to today"`
	Format string `json:"format,omitempty" mcp:"text or json, defaults to text"`
}

type Empty struct{}

// Admin serves the admin tools. All fields are read through the same
// managers the message pipeline uses.
type Admin struct {
	history  *history.Manager
	stats    *analytics.Stats
	recorder storage.Recorder
	loc      *time.Location
	now      func() time.Time
	log      *zerolog.Logger

	server *mcp.Server
}

func New(h *history.Manager, stats *analytics.Stats, rec storage.Recorder, loc *time.Location, log *zerolog.Logger) *Admin {
	if rec == nil {
		rec = storage.Discard{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	a := &Admin{history: h, stats: stats, recorder: rec, loc: loc, now: time.Now, log: log}

	a.server = mcp.NewServer(&mcp.Implementation{
		Name:    "groq-chatter-admin",
		Version: "1.0.0",
	}, nil)
	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "bot_stats",
		Description: "Returns total messages, unique users and uptime",
	}, a.BotStats)
	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "chat_info",
		Description: "Returns the AI flag and stored history size of a chat",
	}, a.ChatInfo)
	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "clear_chat",
		Description: "Clears the conversation history of a chat",
	}, a.ClearChat)
	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "set_ai",
		Description: "Turns AI replies on or off for a chat",
	}, a.SetAI)
	mcp.AddTool(a.server, &mcp.Tool{
		Name:        "daily_report",
		Description: "Summarises one day of the audit trail",
	}, a.DailyReport)
	return a
}

func (a *Admin) Server() *mcp.Server { return a.server }

// Handler serves the tools over the SSE transport.
func (a *Admin) Handler() http.Handler {
	return mcp.NewSSEHandler(func(*http.Request) *mcp.Server { return a.server })
}

func (a *Admin) BotStats(ctx context.Context, _ *mcp.ServerSession, _ *mcp.CallToolParamsFor[Empty]) (*mcp.CallToolResultFor[any], error) {
	s := a.stats.Snapshot()
	text := fmt.Sprintf("Total messages: %d\nUnique users: %d\nUptime: %s\nChats: %d",
		s.TotalMessages, s.UniqueUsers, s.Uptime, a.history.Chats())
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		Meta: map[string]any{
			"total_messages": s.TotalMessages,
			"unique_users":   s.UniqueUsers,
			"uptime":         s.Uptime,
		},
	}, nil
}

func (a *Admin) ChatInfo(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ChatParams]) (*mcp.CallToolResultFor[any], error) {
	id := params.Arguments.ChatID
	if id == 0 {
		return errorResult("chat_id is required"), nil
	}
	enabled := a.history.IsAIEnabled(id)
	n := a.history.Len(id)
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{
			Text: fmt.Sprintf("Chat %d: AI %s, %d/%d turns stored", id, onOff(enabled), n, a.history.Limit()),
		}},
		Meta: map[string]any{"chat_id": id, "ai_enabled": enabled, "turns": n},
	}, nil
}

func (a *Admin) ClearChat(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ChatParams]) (*mcp.CallToolResultFor[any], error) {
	id := params.Arguments.ChatID
	if id == 0 {
		return errorResult("chat_id is required"), nil
	}
	unlock := a.history.Lock(id)
	a.history.Clear(id)
	unlock()
	a.log.Info().Int64("chat_id", id).Msg("history cleared via admin tool")
	return textResult(fmt.Sprintf("History of chat %d cleared", id)), nil
}

func (a *Admin) SetAI(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[SetAIParams]) (*mcp.CallToolResultFor[any], error) {
	id := params.Arguments.ChatID
	if id == 0 {
		return errorResult("chat_id is required"), nil
	}
	if params.Arguments.Enabled {
		a.history.EnableAI(id)
	} else {
		a.history.DisableAI(id)
	}
	a.log.Info().Int64("chat_id", id).Bool("enabled", params.Arguments.Enabled).Msg("AI toggled via admin tool")
	return textResult(fmt.Sprintf("AI %s for chat %d", onOff(params.Arguments.Enabled), id)), nil
}

func (a *Admin) DailyReport(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ReportParams]) (*mcp.CallToolResultFor[any], error) {
	day := a.now().In(a.loc)
	if raw := strings.TrimSpace(params.Arguments.Date); raw != "" {
		d, err := time.ParseInLocation(dateLayout, raw, a.loc)
		if err != nil {
			return errorResult(fmt.Sprintf("invalid date %q, want YYYY-MM-DD", raw)), nil
		}
		day = d
	}

	events, err := a.recorder.LoadEvents()
	if err != nil {
		a.log.Error().Err(err).Msg("load audit events")
		return errorResult(fmt.Sprintf("failed to load audit trail: %v", err)), nil
	}
	ds := analytics.AnalyzeDailyLogs(events, day)

	switch strings.ToLower(strings.TrimSpace(params.Arguments.Format)) {
	case "", "text":
		return textResult(ds.GenerateReportSummary()), nil
	case "json":
		out, err := ds.ToJSON()
		if err != nil {
			return errorResult(err.Error()), nil
		}
		return textResult(out), nil
	default:
		return errorResult(fmt.Sprintf("unknown format %q; allowed: text, json", params.Arguments.Format)), nil
	}
}

func textResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errorResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: "❌ " + text}},
		IsError: true,
	}
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
