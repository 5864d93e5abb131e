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

// RunSummary describes one reconciliation run for operator push channels.
type RunSummary struct {
	RunAt         time.Time
	TotalAnalyzed int
	AlertsEmitted int
	Delivered     bool
	TopDeviations []string
}

// Notifier pushes a run summary to an operator channel. It is best-effort
// and separate from the persistent notification sink.
type Notifier interface {
	Notify(ctx context.Context, summary RunSummary) error
}

// TelegramNotifier pushes run summaries through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs the Telegram push channel.
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
		logger:   logger.With().Str("component", "notify_telegram").Logger(),
	}
}

// Notify sends the summary via the sendMessage API.
func (n *TelegramNotifier) Notify(ctx context.Context, summary RunSummary) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderSummary(summary),
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
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && !result.OK {
		return fmt.Errorf("telegram returned ok=false")
	}

	n.logger.Info().
		Time("run_at", summary.RunAt).
		Int("alerts", summary.AlertsEmitted).
		Msg("run summary pushed to telegram")
	return nil
}

func renderSummary(summary RunSummary) string {
	builder := strings.Builder{}
	builder.WriteString("[Cropwatcher Price Reconciliation]\n")
	builder.WriteString(fmt.Sprintf("Run: %s UTC\n", summary.RunAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Items analyzed: %d\n", summary.TotalAnalyzed))
	builder.WriteString(fmt.Sprintf("Alerts emitted: %d\n", summary.AlertsEmitted))
	if !summary.Delivered {
		builder.WriteString("WARNING: alert batch was NOT persisted\n")
	}
	for _, line := range summary.TopDeviations {
		builder.WriteString("- " + line + "\n")
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
