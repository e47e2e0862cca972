package telegram

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SecretHeader carries the webhook secret on every delivery.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

const defaultMaxConnections = 100

// WebhookManager registers, inspects and removes the bot's webhook.
type WebhookManager struct {
	api *tgbotapi.BotAPI
}

func NewWebhookManager(api *tgbotapi.BotAPI) *WebhookManager {
	return &WebhookManager{api: api}
}

// WebhookOptions are the setWebhook parameters we use.
type WebhookOptions struct {
	URL                string
	Secret             string
	DropPendingUpdates bool
	MaxConnections     int
}

// Set points Telegram at opts.URL. It uses a raw request because the
// library's WebhookConfig has no secret_token field.
func (m *WebhookManager) Set(opts WebhookOptions) error {
	if opts.URL == "" {
		return fmt.Errorf("webhook url is empty")
	}
	if opts.MaxConnections == 0 {
		opts.MaxConnections = defaultMaxConnections
	}
	params := tgbotapi.Params{}
	params["url"] = opts.URL
	params.AddNonEmpty("secret_token", opts.Secret)
	params.AddNonZero("max_connections", opts.MaxConnections)
	params.AddBool("drop_pending_updates", opts.DropPendingUpdates)
	params["allowed_updates"] = `["message"]`

	resp, err := m.api.MakeRequest("setWebhook", params)
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("set webhook: %s", resp.Description)
	}
	return nil
}

func (m *WebhookManager) Delete(dropPending bool) error {
	resp, err := m.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending})
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("delete webhook: %s", resp.Description)
	}
	return nil
}

func (m *WebhookManager) Info() (tgbotapi.WebhookInfo, error) {
	info, err := m.api.GetWebhookInfo()
	if err != nil {
		return tgbotapi.WebhookInfo{}, fmt.Errorf("get webhook info: %w", err)
	}
	return info, nil
}

func (m *WebhookManager) Me() (tgbotapi.User, error) {
	u, err := m.api.GetMe()
	if err != nil {
		return tgbotapi.User{}, fmt.Errorf("get me: %w", err)
	}
	return u, nil
}

// ValidSecret reports whether r carries the expected secret. An empty
// expected secret accepts every request.
func ValidSecret(r *http.Request, secret string) bool {
	if secret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(secret)) == 1
}
