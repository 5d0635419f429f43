package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

const defaultAPIBase = "https://api.telegram.org"

// TelegramNotifier delivers incident alerts to a Telegram chat via the bot
// API. Calls go through a circuit breaker so a dead endpoint stops costing a
// timeout per alert; the notify stage handles the fallback to the log.
type TelegramNotifier struct {
	botToken   string
	chatID     string
	apiBase    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "telegram-api",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		breaker: breaker,
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Send posts the message to the configured chat. Any transport failure,
// non-200 status or open breaker is returned as an error; no retry here.
func (n *TelegramNotifier) Send(ctx context.Context, message string) error {
	_, err := n.breaker.Execute(func() (any, error) {
		return nil, n.sendMessage(ctx, message)
	})
	if err != nil {
		return fmt.Errorf("telegram delivery failed: %w", err)
	}
	return nil
}

func (n *TelegramNotifier) sendMessage(ctx context.Context, message string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: n.chatID, Text: message})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}
