package moderation

import (
	"strings"
	"testing"
)

func TestCheck(t *testing.T) {
	banned := []string{"spam", "", "  ", "Scam"}
	cases := []struct {
		name   string
		text   string
		max    int
		allow  bool
		reason Reason
	}{
		{"plain", "hello there", 1000, true, ReasonNone},
		{"banned", "this is spam", 1000, false, ReasonContent},
		{"banned case insensitive", "This Is SPAM", 1000, false, ReasonContent},
		{"banned substring", "antispamming", 1000, false, ReasonContent},
		{"banned mixed case config", "a scam offer", 1000, false, ReasonContent},
		{"exact length", strings.Repeat("a", 10), 10, true, ReasonNone},
		{"too long", strings.Repeat("a", 11), 10, false, ReasonLength},
		{"length counts runes", strings.Repeat("ж", 10), 10, true, ReasonNone},
		{"length disabled", strings.Repeat("a", 5000), 0, true, ReasonNone},
		{"empty", "", 10, true, ReasonNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Check(tc.text, tc.max, banned)
			if v.Allowed != tc.allow || v.Reason != tc.reason {
				t.Fatalf("Check(%q) = %+v, want allowed=%v reason=%q", tc.text, v, tc.allow, tc.reason)
			}
			if !v.Allowed && v.Message == "" {
				t.Fatalf("denial without message")
			}
		})
	}
}

func TestLengthCheckedBeforeContent(t *testing.T) {
	text := "spam " + strings.Repeat("x", 20)
	v := Check(text, 10, []string{"spam"})
	if v.Allowed || v.Reason != ReasonLength {
		t.Fatalf("want length denial first, got %+v", v)
	}
	if !strings.Contains(v.Message, "max 10") {
		t.Fatalf("length message should name the limit: %q", v.Message)
	}
}

func TestNoBannedWords(t *testing.T) {
	if v := Check("anything goes", 100, nil); !v.Allowed {
		t.Fatalf("nil banned list must allow: %+v", v)
	}
}
