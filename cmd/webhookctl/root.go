package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v6"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"groq-chatter/internal/telegram"
)

type ctlConfig struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	WebhookURL       string `env:"WEBHOOK_URL"`
	WebhookSecret    string `env:"WEBHOOK_SECRET"`
}

type rootOptions struct {
	envFile     string
	apiEndpoint string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "webhookctl",
		Short:         "Manage the Telegram webhook of the bot",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.PersistentFlags().StringVar(&opts.apiEndpoint, "api-endpoint", tgbotapi.APIEndpoint, "Telegram Bot API endpoint format")
	_ = cmd.PersistentFlags().MarkHidden("api-endpoint")

	cmd.AddCommand(newInfoCmd(opts))
	cmd.AddCommand(newSetCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))
	cmd.AddCommand(newMeCmd(opts))
	return cmd
}

func (o *rootOptions) load() (ctlConfig, error) {
	if o.envFile != "" {
		// a missing file is fine; the environment may already be set
		_ = godotenv.Load(o.envFile)
	}
	var cfg ctlConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	if strings.TrimSpace(cfg.TelegramBotToken) == "" {
		return cfg, errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return cfg, nil
}

func (o *rootOptions) manager() (*telegram.WebhookManager, ctlConfig, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, cfg, err
	}
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.TelegramBotToken, o.apiEndpoint)
	if err != nil {
		return nil, cfg, fmt.Errorf("connect to telegram: %w", err)
	}
	return telegram.NewWebhookManager(api), cfg, nil
}

func newInfoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the current webhook registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, _, err := opts.manager()
			if err != nil {
				return err
			}
			info, err := m.Info()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			url := info.URL
			if url == "" {
				url = "(none, polling mode)"
			}
			fmt.Fprintf(out, "URL: %s\n", url)
			fmt.Fprintf(out, "Pending updates: %d\n", info.PendingUpdateCount)
			fmt.Fprintf(out, "Max connections: %d\n", info.MaxConnections)
			if info.LastErrorMessage != "" {
				fmt.Fprintf(out, "Last error: %s\n", info.LastErrorMessage)
			}
			return nil
		},
	}
}

func newSetCmd(opts *rootOptions) *cobra.Command {
	var (
		url            string
		secret         string
		dropPending    bool
		maxConnections int
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Register the webhook URL with Telegram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, cfg, err := opts.manager()
			if err != nil {
				return err
			}
			if url == "" {
				url = cfg.WebhookURL
			}
			if secret == "" {
				secret = cfg.WebhookSecret
			}
			if url == "" {
				return errors.New("webhook url is required (--url or WEBHOOK_URL)")
			}
			err = m.Set(telegram.WebhookOptions{
				URL:                url,
				Secret:             secret,
				DropPendingUpdates: dropPending,
				MaxConnections:     maxConnections,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Webhook set to %s\n", url)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "public webhook URL (defaults to WEBHOOK_URL)")
	cmd.Flags().StringVar(&secret, "secret", "", "secret token (defaults to WEBHOOK_SECRET)")
	cmd.Flags().BoolVar(&dropPending, "drop-pending", false, "drop updates queued while no webhook was set")
	cmd.Flags().IntVar(&maxConnections, "max-connections", 0, "max simultaneous deliveries (1-100)")
	return cmd
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	var dropPending bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove the webhook so the bot can long-poll",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, _, err := opts.manager()
			if err != nil {
				return err
			}
			if err := m.Delete(dropPending); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✅ Webhook deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&dropPending, "drop-pending", false, "drop pending updates")
	return cmd
}

func newMeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the bot identity behind the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, _, err := opts.manager()
			if err != nil {
				return err
			}
			u, err := m.Me()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "@%s (id %d)\n", u.UserName, u.ID)
			return nil
		},
	}
}
