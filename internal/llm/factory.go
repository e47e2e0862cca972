package llm

import (
	"fmt"
	"strings"

	"groq-chatter/internal/config"
)

const (
	ProviderGroq   = "groq"
	ProviderYandex = "yandex"
)

// Factory creates LLM clients with consistent logic
type Factory struct {
	GroqAPIKey       string
	GroqBaseURL      string
	YandexOAuthToken string
	YandexFolderID   string
	MaxConcurrent    int
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		GroqAPIKey:       cfg.GroqAPIKey,
		GroqBaseURL:      cfg.GroqBaseURL,
		YandexOAuthToken: cfg.YandexOAuthToken,
		YandexFolderID:   cfg.YandexFolderID,
		MaxConcurrent:    cfg.LLMMaxConcurrent,
	}
}

// CreateClient builds the provider client wrapped with the concurrency cap.
func (f *Factory) CreateClient(provider, model string) (Client, error) {
	var (
		c   Client
		err error
	)
	switch strings.ToLower(provider) {
	case ProviderGroq:
		c = NewOpenAI(f.GroqAPIKey, f.GroqBaseURL, model)
	case ProviderYandex:
		c, err = NewYandex(f.YandexOAuthToken, f.YandexFolderID)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
	if err != nil {
		return nil, err
	}
	return NewLimited(c, f.MaxConcurrent), nil
}
