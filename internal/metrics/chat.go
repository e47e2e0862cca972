package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		messagesTotal,
		moderationBlocks,
		sessionsGauge,
		reportsSent,
		webhookUpdates,
	)
}

var (
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Inbound text messages by pipeline outcome.",
		},
		[]string{"outcome"},
	)

	moderationBlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_moderation_blocks_total",
			Help: "Messages rejected by the moderation gate by reason.",
		},
		[]string{"reason"},
	)

	sessionsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_sessions",
			Help: "Number of chat sessions held in memory.",
		},
	)

	reportsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_activity_reports_total",
			Help: "Periodic activity reports by result (sent/empty/failed).",
		},
		[]string{"result"},
	)

	webhookUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_webhook_updates_total",
			Help: "Webhook deliveries by result (accepted/rejected/dropped).",
		},
		[]string{"result"},
	)
)

func IncMessage(outcome string) {
	messagesTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncModerationBlock(reason string) {
	moderationBlocks.WithLabelValues(norm(reason)).Inc()
}

func SetSessions(n int) {
	sessionsGauge.Set(float64(n))
}

func IncReport(result string) {
	reportsSent.WithLabelValues(norm(result)).Inc()
}

func IncWebhookUpdate(result string) {
	webhookUpdates.WithLabelValues(norm(result)).Inc()
}
