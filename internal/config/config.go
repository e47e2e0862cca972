package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderGroq   LLMProvider = "groq"
	ProviderYandex LLMProvider = "yandex"
)

const (
	ModeWebhook = "webhook"
	ModePolling = "polling"
)

type Config struct {
	TelegramBotToken string  `env:"TELEGRAM_BOT_TOKEN,required"`
	AdminIDs         []int64 `env:"ADMIN_IDS" envSeparator:","`
	LogGroupID       int64   `env:"LOG_GROUP_ID"`

	// LLM settings
	LLMProvider       LLMProvider   `env:"LLM_PROVIDER" envDefault:"groq"`
	GroqAPIKey        string        `env:"GROQ_API_KEY"`
	GroqBaseURL       string        `env:"GROQ_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	GroqModel         string        `env:"GROQ_MODEL" envDefault:"llama-3.3-70b-versatile"`
	YandexOAuthToken  string        `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID    string        `env:"YANDEX_FOLDER_ID"`
	Temperature       float32       `env:"TEMPERATURE" envDefault:"0.7"`
	MaxTokens         int           `env:"MAX_TOKENS" envDefault:"1024"`
	CompletionTimeout time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"30s"`
	LLMMaxConcurrent  int           `env:"LLM_MAX_CONCURRENT" envDefault:"8"`
	SystemPrompt      string        `env:"SYSTEM_PROMPT" envDefault:"You are a helpful AI assistant. Be friendly and concise."`

	// Conversation limits
	MaxHistory       int      `env:"MAX_HISTORY" envDefault:"10"`
	MaxMessageLength int      `env:"MAX_MESSAGE_LENGTH" envDefault:"1000"`
	BannedWords      []string `env:"BANNED_WORDS" envSeparator:","`

	// Reports
	ReportSchedule  string `env:"REPORT_SCHEDULE" envDefault:"@every 2m"`
	ReportTimezone  string `env:"REPORT_TIMEZONE" envDefault:"UTC"`
	DisplayTimezone string `env:"DISPLAY_TIMEZONE" envDefault:"Asia/Phnom_Penh"`

	// Transport
	BotMode        string `env:"BOT_MODE" envDefault:"webhook"`
	HTTPAddr       string `env:"HTTP_ADDR" envDefault:":8080"`
	WebhookPath    string `env:"WEBHOOK_PATH" envDefault:"/telegram"`
	WebhookURL     string `env:"WEBHOOK_URL"`
	WebhookSecret  string `env:"WEBHOOK_SECRET"`
	WebhookWorkers int    `env:"WEBHOOK_WORKERS" envDefault:"8"`

	// Storage
	AuditLogPath string `env:"AUDIT_LOG_PATH" envDefault:"data/audit.jsonl"`

	// Admin tooling
	AdminAPIToken string `env:"ADMIN_API_TOKEN"`

	// Formatting
	MessageParseMode string `env:"MESSAGE_PARSE_MODE" envDefault:"HTML"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load parses the environment and validates the result. Any error here is
// fatal for startup.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.TelegramBotToken) == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}

	c.LLMProvider = LLMProvider(strings.ToLower(strings.TrimSpace(string(c.LLMProvider))))
	switch c.LLMProvider {
	case ProviderGroq:
		if strings.TrimSpace(c.GroqAPIKey) == "" {
			return errors.New("GROQ_API_KEY is required for the groq provider")
		}
	case ProviderYandex:
		if c.YandexOAuthToken == "" || c.YandexFolderID == "" {
			return errors.New("YANDEX_OAUTH_TOKEN and YANDEX_FOLDER_ID are required for the yandex provider")
		}
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q; allowed: groq, yandex", c.LLMProvider)
	}

	if c.MaxHistory < 1 {
		return fmt.Errorf("MAX_HISTORY must be >= 1, got %d", c.MaxHistory)
	}
	if c.MaxMessageLength < 1 {
		return fmt.Errorf("MAX_MESSAGE_LENGTH must be >= 1, got %d", c.MaxMessageLength)
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("MAX_TOKENS must be >= 1, got %d", c.MaxTokens)
	}
	if c.CompletionTimeout <= 0 {
		return fmt.Errorf("COMPLETION_TIMEOUT must be positive, got %s", c.CompletionTimeout)
	}

	c.BotMode = strings.ToLower(strings.TrimSpace(c.BotMode))
	switch c.BotMode {
	case ModeWebhook:
		if !strings.HasPrefix(c.WebhookPath, "/") {
			return fmt.Errorf("WEBHOOK_PATH must start with '/', got %q", c.WebhookPath)
		}
	case ModePolling:
	default:
		return fmt.Errorf("invalid BOT_MODE %q; allowed: webhook, polling", c.BotMode)
	}

	if c.WebhookWorkers <= 0 {
		c.WebhookWorkers = 8
	}
	if c.LLMMaxConcurrent < 0 {
		c.LLMMaxConcurrent = 0
	}

	words := c.BannedWords[:0]
	for _, w := range c.BannedWords {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	c.BannedWords = words
	return nil
}

// AdminRestricted reports whether an admin allow-list is configured.
func (c *Config) AdminRestricted() bool { return len(c.AdminIDs) > 0 }

// LogGroupEnabled reports whether activity logging to a Telegram group is on.
func (c *Config) LogGroupEnabled() bool { return c.LogGroupID != 0 }
