// Package telegram publishes rewritten articles to channels through the
// Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/phoenixlab/rewriter/internal/logger"
	"github.com/phoenixlab/rewriter/internal/retry"
)

const (
	defaultAPIBaseURL = "https://api.telegram.org"

	// captionLimit is the Bot API cap for photo captions, in runes.
	captionLimit = 1024
)

var sendRetry = retry.Config{
	MaxAttempts: 3,
	Delay:       2 * time.Second,
	Backoff:     true,
}

// Client talks to the Bot API for one bot token.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	retryCfg   retry.Config
}

func NewClient(token string) *Client {
	return &Client{
		token:      token,
		baseURL:    defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retryCfg:   sendRetry,
	}
}

// Enabled reports whether a bot token is configured.
func (c *Client) Enabled() bool { return c.token != "" }

func (c *Client) call(ctx context.Context, method string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error make JSON: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("telegram API error: status %d: %s", resp.StatusCode, data)
	}
	return nil
}

// SendMessage posts text to a chat or channel, retrying transient
// failures.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	err := retry.WithRetry(ctx, c.retryCfg, func() error {
		return c.call(ctx, "sendMessage", map[string]any{
			"chat_id":                  chatID,
			"text":                     text,
			"parse_mode":               "HTML",
			"disable_web_page_preview": true,
		})
	})
	if err != nil {
		return err
	}
	logger.Info("message sent to telegram", "chat", chatID)
	return nil
}

// SendPhoto posts a photo with a caption. Captions over the API cap are
// cut on a rune boundary.
func (c *Client) SendPhoto(ctx context.Context, chatID, photoURL, caption string) error {
	if runes := []rune(caption); len(runes) > captionLimit {
		caption = string(runes[:captionLimit])
	}
	err := retry.WithRetry(ctx, c.retryCfg, func() error {
		return c.call(ctx, "sendPhoto", map[string]any{
			"chat_id":    chatID,
			"photo":      photoURL,
			"caption":    caption,
			"parse_mode": "HTML",
		})
	})
	if err != nil {
		return err
	}
	logger.Info("photo sent to telegram", "chat", chatID)
	return nil
}
