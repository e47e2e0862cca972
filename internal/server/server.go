// Package server exposes the bot over HTTP: the Telegram webhook, health
// probes, Prometheus metrics and the admin MCP endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"groq-chatter/internal/logging"
	"groq-chatter/internal/metrics"
	"groq-chatter/internal/telegram"
	"groq-chatter/internal/worker"
)

const maxUpdateBytes = 1 << 20

// UpdateHandler processes one Telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// Submitter queues background work.
type Submitter interface {
	Submit(task worker.Task) error
}

type Options struct {
	WebhookPath   string
	WebhookSecret string
	// MCP is served at /mcp behind AdminToken. Nil or an empty token
	// disables the endpoint.
	MCP        http.Handler
	AdminToken string
}

// NewRouter builds the HTTP surface. Updates are acknowledged as soon as
// they are queued; processing happens on pool.
func NewRouter(opts Options, bot UpdateHandler, pool Submitter, logger *zerolog.Logger) http.Handler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(logger), Recover(logger))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Bot is running live!"))
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	if opts.WebhookPath != "" && bot != nil && pool != nil {
		r.Post(opts.WebhookPath, webhookHandler(opts.WebhookSecret, bot, pool, logger))
	}

	if opts.MCP != nil && opts.AdminToken != "" {
		r.With(BearerAuth(opts.AdminToken)).Handle("/mcp", opts.MCP)
		r.With(BearerAuth(opts.AdminToken)).Handle("/mcp/*", opts.MCP)
	}
	return r
}

func webhookHandler(secret string, bot UpdateHandler, pool Submitter, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logging.With(r.Context(), logger)
		if !telegram.ValidSecret(r, secret) {
			metrics.IncWebhookUpdate("rejected")
			log.Warn().Msg("webhook secret mismatch")
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var upd tgbotapi.Update
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&upd); err != nil {
			metrics.IncWebhookUpdate("rejected")
			http.Error(w, "cannot parse update", http.StatusBadRequest)
			return
		}

		traceID := logging.TraceID(r.Context())
		err := pool.Submit(func(ctx context.Context) error {
			bot.HandleUpdate(logging.WithTraceID(ctx, traceID), upd)
			return nil
		})
		if errors.Is(err, worker.ErrQueueFull) {
			// Telegram redelivers on non-2xx
			metrics.IncWebhookUpdate("dropped")
			log.Warn().Int("update_id", upd.UpdateID).Msg("worker queue full")
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		if err != nil {
			metrics.IncWebhookUpdate("rejected")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		metrics.IncWebhookUpdate("accepted")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}
}

// Server owns the listener lifecycle.
type Server struct {
	server *http.Server
	log    *zerolog.Logger
}

func New(addr string, handler http.Handler, logger *zerolog.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logger,
	}
}

// Start blocks serving until Shutdown. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("http server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
