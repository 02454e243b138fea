package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/webpiratt/swapd/internal/httputil"
	"github.com/webpiratt/swapd/internal/tasks"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramSender delivers notifications through the Telegram bot API.
// UserID is the chat id of the user's conversation with the bot.
type TelegramSender struct {
	botToken   string
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig
	logger     *logrus.Logger
}

func NewTelegramSender(botToken string, logger *logrus.Logger) *TelegramSender {
	return &TelegramSender{
		botToken:   botToken,
		baseURL:    telegramAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		},
		logger: logger,
	}
}

func (t *TelegramSender) Enabled() bool {
	return t.botToken != ""
}

func (t *TelegramSender) Send(ctx context.Context, payload tasks.NotificationPayload) error {
	if !t.Enabled() {
		return nil
	}

	text := formatMessage(payload)
	body, err := json.Marshal(map[string]string{
		"chat_id":    payload.UserID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("fail to marshal to json, err: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	resp, err := httputil.Do(ctx, t.httpClient, t.retry, t.logger, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

func formatMessage(payload tasks.NotificationPayload) string {
	var b strings.Builder
	if payload.Subject != "" {
		b.WriteString("*" + payload.Subject + "*\n")
	}
	b.WriteString(payload.Body)
	for k, v := range payload.Fields {
		b.WriteString(fmt.Sprintf("\n%s: `%s`", k, v))
	}
	return b.String()
}
