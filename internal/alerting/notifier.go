package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notifier delivers a triggered alert. Delivery failures are logged by
// the caller and must never fail a tick.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// TelegramNotifier pushes alerts through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram-backed notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify renders the alert and calls sendMessage.
func (n *TelegramNotifier) Notify(ctx context.Context, alert Alert) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(alert),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().
		Str("monitor_id", alert.MonitorID).
		Str("direction", string(alert.Direction)).
		Msg("alert dispatched via telegram")
	return nil
}

func renderMessage(alert Alert) string {
	builder := strings.Builder{}
	builder.WriteString("[sentinelwatch alert]\n")
	builder.WriteString(fmt.Sprintf("Monitor: %s (%s)\n", alert.MonitorID, alert.Network))
	builder.WriteString(fmt.Sprintf("Price: %s (source %s)\n", alert.Price.StringFixed(4), alert.Source))
	builder.WriteString(fmt.Sprintf("Threshold: %s %s\n", alert.Direction, alert.Threshold.StringFixed(4)))
	builder.WriteString(fmt.Sprintf("Delta: %s\n", alert.Delta.StringFixed(4)))
	builder.WriteString(fmt.Sprintf("At: %s UTC\n", alert.At.UTC().Format(time.RFC3339)))
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
