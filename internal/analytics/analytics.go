package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"groq-chatter/internal/storage"
)

// DailyStats summarises one day of the audit trail.
type DailyStats struct {
	Date             string              `json:"date"`
	TotalMessages    int                 `json:"total_messages"`
	Replies          int                 `json:"replies"`
	UniqueUsers      int                 `json:"unique_users"`
	ModerationHits   int                 `json:"moderation_hits"`
	PermissionDenied int                 `json:"permission_denied"`
	Errors           int                 `json:"errors"`
	CommandsByName   map[string]int      `json:"commands_by_name"`
	UserStats        map[int64]UserStats `json:"user_stats"`
}

// UserStats is the per-user slice of DailyStats.
type UserStats struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`
	Messages int    `json:"messages"`
	Blocked  int    `json:"blocked"`
	Errors   int    `json:"errors"`
}

// AnalyzeDailyLogs aggregates events that fall on the calendar day of
// targetDate, in targetDate's location.
func AnalyzeDailyLogs(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &DailyStats{
		Date:           startOfDay.Format("2006-01-02"),
		CommandsByName: make(map[string]int),
		UserStats:      make(map[int64]UserStats),
	}

	for _, event := range events {
		if event.Timestamp.Before(startOfDay) || !event.Timestamp.Before(endOfDay) {
			continue
		}

		if event.Kind == storage.KindCommand {
			stats.CommandsByName[event.Detail]++
			continue
		}

		userStat, exists := stats.UserStats[event.UserID]
		if !exists {
			userStat = UserStats{UserID: event.UserID}
		}
		if event.Username != "" {
			userStat.Username = event.Username
		}

		switch event.Kind {
		case storage.KindMessage:
			stats.TotalMessages++
			userStat.Messages++
		case storage.KindReply:
			stats.Replies++
		case storage.KindModeration:
			stats.ModerationHits++
			userStat.Blocked++
		case storage.KindDenied:
			stats.PermissionDenied++
			userStat.Blocked++
		case storage.KindError:
			stats.Errors++
			userStat.Errors++
		default:
			continue
		}
		stats.UserStats[event.UserID] = userStat
	}

	for _, u := range stats.UserStats {
		if u.Messages > 0 {
			stats.UniqueUsers++
		}
	}
	return stats
}

// GenerateReportSummary renders the day as Telegram HTML.
func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 <b>Daily Summary %s</b>\n\n", ds.Date)
	fmt.Fprintf(&b, "📨 Messages: <b>%d</b>\n", ds.TotalMessages)
	fmt.Fprintf(&b, "🤖 Replies: <b>%d</b>\n", ds.Replies)
	fmt.Fprintf(&b, "👥 Users: <b>%d</b>\n", ds.UniqueUsers)
	fmt.Fprintf(&b, "🚫 Moderation blocks: <b>%d</b>\n", ds.ModerationHits)
	fmt.Fprintf(&b, "🔒 Permission denied: <b>%d</b>\n", ds.PermissionDenied)
	fmt.Fprintf(&b, "❌ Errors: <b>%d</b>\n", ds.Errors)

	if len(ds.CommandsByName) > 0 {
		names := make([]string, 0, len(ds.CommandsByName))
		for name := range ds.CommandsByName {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("\nCommands:\n")
		for _, name := range names {
			fmt.Fprintf(&b, "• /%s: %d\n", name, ds.CommandsByName[name])
		}
	}

	users := make([]UserStats, 0, len(ds.UserStats))
	for _, u := range ds.UserStats {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Messages != users[j].Messages {
			return users[i].Messages > users[j].Messages
		}
		return users[i].UserID < users[j].UserID
	})
	if len(users) > 0 {
		b.WriteString("\nUsers:\n")
	}
	for i, u := range users {
		if i == reportTopUsers {
			fmt.Fprintf(&b, "... and %d more users\n", len(users)-reportTopUsers)
			break
		}
		fmt.Fprintf(&b, "• <code>%d</code>: %d messages", u.UserID, u.Messages)
		if u.Blocked > 0 {
			fmt.Fprintf(&b, ", %d blocked", u.Blocked)
		}
		if u.Errors > 0 {
			fmt.Fprintf(&b, ", %d errors", u.Errors)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ToJSON serialises the stats for the admin API.
func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
