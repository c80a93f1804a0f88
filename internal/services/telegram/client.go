package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/moviezhub/moviezhub/internal/config"
)

const apiBaseURL = "https://api.telegram.org/bot"

// Client handles communication with the Telegram Bot API
type Client struct {
	apiURL     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new Telegram Bot API client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	return &Client{
		apiURL:     apiBaseURL + cfg.BotToken,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}, nil
}

// apiResponse is the Bot API envelope common to all methods
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// CopyMessage copies a stored message to a chat and returns the id of the
// newly produced copy
func (c *Client) CopyMessage(ctx context.Context, fromChatID int64, messageID int64, toChatID int64) (int64, error) {
	payload := map[string]interface{}{
		"chat_id":      toChatID,
		"from_chat_id": fromChatID,
		"message_id":   messageID,
	}

	var result struct {
		MessageID int64 `json:"message_id"`
	}
	if err := c.call(ctx, "copyMessage", payload, &result); err != nil {
		return 0, err
	}
	return result.MessageID, nil
}

// DeleteMessage removes a previously delivered message from a chat
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int64) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
	}
	return c.call(ctx, "deleteMessage", payload, nil)
}

// SendMessage sends a plain text message to a chat
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	return c.call(ctx, "sendMessage", payload, nil)
}

// call performs a Bot API method call and decodes the result envelope
func (c *Client) call(ctx context.Context, method string, payload interface{}, result interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	fullURL := c.apiURL + "/" + method
	c.logger.WithField("method", method).Debug("Making Telegram API request")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !envelope.OK {
		return fmt.Errorf("%s failed: %s", method, envelope.Description)
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("failed to decode result: %w", err)
		}
	}

	return nil
}
