package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMustRegisterIsIdempotent(t *testing.T) {
	MustRegister()
	MustRegister()
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(messagesTotal.WithLabelValues("replied"))
	IncMessage(" Replied ")
	if got := testutil.ToFloat64(messagesTotal.WithLabelValues("replied")); got != before+1 {
		t.Fatalf("want %v, got %v", before+1, got)
	}

	SetSessions(3)
	if got := testutil.ToFloat64(sessionsGauge); got != 3 {
		t.Fatalf("sessions gauge = %v", got)
	}

	ObserveCompletion("groq", "m", 5, 2, 7, 120*time.Millisecond, true)
	if got := testutil.ToFloat64(aiTokensTotal.WithLabelValues("groq", "m")); got < 7 {
		t.Fatalf("tokens not counted: %v", got)
	}
	ObserveCompletion("groq", "failing", 5, 2, 7, time.Second, false)
	if got := testutil.ToFloat64(aiTokensTotal.WithLabelValues("groq", "failing")); got != 0 {
		t.Fatalf("failed calls must not count tokens: %v", got)
	}
}
