package analytics

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	reportTopUsers     = 10
	defaultReportTitle = "Activity Report"
)

// Clock returns the current time. Tests replace it.
type Clock func() time.Time

type activity struct {
	username   string
	requests   int
	lastActive time.Time
	seq        uint64
}

// Snapshot is a point-in-time view of the global counters.
type Snapshot struct {
	TotalMessages int
	UniqueUsers   int
	Uptime        string
}

// Stats aggregates global counters and a per-user activity ledger that is
// drained by every report.
type Stats struct {
	mu      sync.Mutex
	now     Clock
	started time.Time

	totalMessages int
	users         map[int64]struct{}

	ledger map[int64]*activity
	seq    uint64
	title  string
}

func NewStats(now Clock) *Stats {
	if now == nil {
		now = time.Now
	}
	return &Stats{
		now:     now,
		started: now(),
		users:   make(map[int64]struct{}),
		ledger:  make(map[int64]*activity),
		title:   defaultReportTitle,
	}
}

// SetReportTitle replaces the report heading. An empty title keeps the
// current one.
func (s *Stats) SetReportTitle(title string) {
	if title = strings.TrimSpace(title); title == "" {
		return
	}
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()
}

// ReportTitle names the report after its interval when schedule is an
// "@every" descriptor of whole minutes or hours, e.g. "@every 2m" gives
// "2-Minute Activity Report". Any other schedule gets the plain title.
func ReportTitle(schedule string) string {
	rest, ok := strings.CutPrefix(strings.TrimSpace(schedule), "@every ")
	if !ok {
		return defaultReportTitle
	}
	d, err := time.ParseDuration(strings.TrimSpace(rest))
	if err != nil || d <= 0 {
		return defaultReportTitle
	}
	switch {
	case d%time.Hour == 0:
		return fmt.Sprintf("%d-Hour %s", d/time.Hour, defaultReportTitle)
	case d%time.Minute == 0:
		return fmt.Sprintf("%d-Minute %s", d/time.Minute, defaultReportTitle)
	}
	return defaultReportTitle
}

func (s *Stats) RecordMessage(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalMessages++
	s.users[userID] = struct{}{}
}

// TrackRequest bumps the ledger entry for userID and refreshes its username
// and last-active time.
func (s *Stats) TrackRequest(userID int64, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.ledger[userID]
	if !ok {
		s.seq++
		a = &activity{seq: s.seq}
		s.ledger[userID] = a
	}
	a.requests++
	a.username = username
	a.lastActive = s.now()
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		TotalMessages: s.totalMessages,
		UniqueUsers:   len(s.users),
		Uptime:        formatUptime(s.now().Sub(s.started)),
	}
}

// PendingUsers is the number of users in the ledger since the last report.
func (s *Stats) PendingUsers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ledger)
}

func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", h, m)
}

// BuildReport renders the activity report as Telegram HTML and empties the
// ledger. It reports false when there was no activity to report.
func (s *Stats) BuildReport() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ledger) == 0 {
		return "", false
	}

	type row struct {
		id int64
		*activity
	}
	rows := make([]row, 0, len(s.ledger))
	total := 0
	for id, a := range s.ledger {
		rows = append(rows, row{id: id, activity: a})
		total += a.requests
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].requests != rows[j].requests {
			return rows[i].requests > rows[j].requests
		}
		return rows[i].seq < rows[j].seq
	})

	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>%s</b>\n\n", html.EscapeString(s.title))
	fmt.Fprintf(&b, "📈 Total Requests: <b>%d</b>\n", total)
	fmt.Fprintf(&b, "👥 Active Users: <b>%d</b>\n\n", len(rows))
	b.WriteString("━━━━━━━━━━━━━━━━━━━━\n\n")

	for i, r := range rows {
		if i == reportTopUsers {
			break
		}
		name := r.username
		if name == "" {
			name = "Unknown"
		}
		fmt.Fprintf(&b, "👤 @%s\n", html.EscapeString(name))
		fmt.Fprintf(&b, "   • User ID: <code>%d</code>\n", r.id)
		fmt.Fprintf(&b, "   • Requests: <b>%d</b>\n", r.requests)
		fmt.Fprintf(&b, "   • Last Active: %s\n\n", r.lastActive.Format("15:04:05"))
	}
	if extra := len(rows) - reportTopUsers; extra > 0 {
		fmt.Fprintf(&b, "... and %d more users\n", extra)
	}

	s.ledger = make(map[int64]*activity)
	return b.String(), true
}
