package app

import (
	"context"
	"errors"
	"time"

	"github.com/phoenixlab/rewriter/internal/feed"
	"github.com/phoenixlab/rewriter/internal/logger"
	"github.com/phoenixlab/rewriter/internal/store"
)

// feedBatchLimit caps how many new articles one pass rewrites, so a
// cold cache does not flood the channels.
const feedBatchLimit = 3

// RunFeedsOnce loads the configured feeds, rewrites entries not seen
// before and publishes them to the Telegram channels.
func (s *Service) RunFeedsOnce(ctx context.Context) error {
	urls, err := feed.LoadFeeds(s.cfg.FeedsConfigPath)
	if err != nil {
		return err
	}

	seen := store.NewSeenCache(s.cfg.SeenCachePath, time.Duration(s.cfg.SeenTTLHours)*time.Hour)
	if err := seen.Load(); err != nil {
		logger.Warn("seen cache load failed, starting empty", "error", err)
	}
	seen.Cleanup()

	items := feed.FetchAll(ctx, urls)
	logger.Info("feed pass", "items", len(items))

	published := 0
	for _, item := range items {
		if published >= feedBatchLimit {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		hash := seen.Hash(item.Title, item.Link)
		if seen.Seen(hash) {
			continue
		}

		result, err := s.ProcessArticle(ctx, ProcessRequest{
			URL:      item.Link,
			Style:    s.cfg.FeedStyle,
			Provider: s.cfg.FeedProvider,
		})
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				logger.Warn("feed pass stopped on rate limit")
				break
			}
			logger.Warn("feed item skipped", "url", item.Link, "error", err)
			// Broken articles should not be retried every pass.
			seen.Mark(hash, item.Title, item.Link, item.Source)
			continue
		}

		image := result.Images.Original
		if image == "" {
			image = result.Images.Searched
		}
		if image == "" {
			image = result.Images.Generated
		}

		if _, err := s.Publish(ctx, PublishRequest{Text: result.RewrittenText, ImageURL: image}); err != nil {
			logger.Error("feed item publish failed", "url", item.Link, "error", err)
			continue
		}

		seen.Mark(hash, item.Title, item.Link, item.Source)
		published++
		logger.Info("feed item published", "title", item.Title, "source", item.Source)
	}

	if err := seen.Save(); err != nil {
		logger.Warn("seen cache save failed", "error", err)
	}
	logger.Info("feed pass finished", "published", published)
	return nil
}

// RunFeedLoop repeats feed passes until the context is cancelled.
func (s *Service) RunFeedLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FeedInterval)
	defer ticker.Stop()

	for {
		if err := s.RunFeedsOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("feed pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
