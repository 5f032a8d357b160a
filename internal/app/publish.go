package app

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/phoenixlab/rewriter/internal/logger"
	"github.com/phoenixlab/rewriter/internal/metrics"
)

// ErrNotConfigured is returned by Publish when no bot token is set.
var ErrNotConfigured = errors.New("telegram publishing is not configured")

// PublishRequest sends one rewritten article to Telegram channels.
type PublishRequest struct {
	Text     string
	ImageURL string
	// Channels limits the send to these chat IDs. Empty means all
	// configured channels.
	Channels []string
}

// ChannelError names a channel the send failed for.
type ChannelError struct {
	Channel string `json:"channel"`
	Error   string `json:"error"`
}

// PublishResult summarizes a fan-out send.
type PublishResult struct {
	Sent   int
	Total  int
	Failed []ChannelError
}

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	multiSpaceRe = regexp.MustCompile(`[ \t]+`)
)

// plainText strips HTML markup so Telegram gets clean text regardless
// of what the frontend sent.
func plainText(text string) string {
	text = htmlTagRe.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = multiSpaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Publish sends the article to every selected channel. One failing
// channel does not stop the rest.
func (s *Service) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if !s.telegram.Enabled() {
		return nil, ErrNotConfigured
	}
	text := plainText(req.Text)
	if text == "" {
		return nil, fmt.Errorf("article text is empty")
	}

	channels := s.Channels()
	if len(req.Channels) > 0 {
		selected := make(map[string]bool, len(req.Channels))
		for _, id := range req.Channels {
			selected[id] = true
		}
		filtered := channels[:0]
		for _, ch := range channels {
			if selected[ch] {
				filtered = append(filtered, ch)
			}
		}
		channels = filtered
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("no channels configured")
	}

	result := &PublishResult{Total: len(channels)}
	for _, channel := range channels {
		var err error
		if req.ImageURL != "" {
			err = s.telegram.SendPhoto(ctx, channel, req.ImageURL, text)
			if err != nil {
				// A broken image URL should not block the article.
				logger.Warn("photo send failed, falling back to text", "channel", channel, "error", err)
				err = s.telegram.SendMessage(ctx, channel, text)
			}
		} else {
			err = s.telegram.SendMessage(ctx, channel, text)
		}
		if err != nil {
			result.Failed = append(result.Failed, ChannelError{Channel: channel, Error: err.Error()})
			logger.Error("channel send failed", "channel", channel, "error", err)
			continue
		}
		result.Sent++
		metrics.Global.IncrementArticlesPublished()
	}
	return result, nil
}
