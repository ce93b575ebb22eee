package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultTelegramAPI = "https://api.telegram.org"

type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type TelegramNotifier struct {
	logger  *logrus.Logger
	client  *http.Client
	baseURL string
	token   string
	chatID  string
}

func NewTelegramNotifier(token, chatID string, logger *logrus.Logger) *TelegramNotifier {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &TelegramNotifier{
		logger:  logger,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: defaultTelegramAPI,
		token:   token,
		chatID:  chatID,
	}
}

// Notify sends a message to the configured Telegram chat
func (n *TelegramNotifier) Notify(ctx context.Context, message string) error {
	if n.token == "" {
		return errors.New("telegram bot token is not configured")
	}
	if n.chatID == "" {
		return errors.New("telegram chat ID is not configured")
	}

	payload := map[string]interface{}{
		"chat_id":    n.chatID,
		"text":       message,
		"parse_mode": "HTML",
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message to Telegram API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return errors.New("invalid telegram bot token")
		case http.StatusBadRequest:
			return fmt.Errorf("invalid chat ID or message format: %s", string(body))
		case http.StatusForbidden:
			return errors.New("bot was blocked by the user or chat")
		case http.StatusNotFound:
			return errors.New("telegram bot not found")
		default:
			return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, string(body))
		}
	}

	return nil
}
