// Package feed loads article links from configured RSS/Atom sources.
package feed

import (
	"context"
	"os"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"github.com/phoenixlab/rewriter/internal/logger"
)

// Item is one feed entry worth rewriting.
type Item struct {
	Title  string
	Link   string
	Source string
}

// FeedsConfig is YAML config structure
// feeds:
//   - https://...
type FeedsConfig struct {
	Feeds []string `yaml:"feeds"`
}

// LoadFeeds reads the feed URL list from a YAML file.
func LoadFeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg FeedsConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	return cfg.Feeds, nil
}

// FetchAll downloads and parses all feeds. A broken feed is logged and
// skipped, the rest still load.
func FetchAll(ctx context.Context, urls []string) []Item {
	parser := gofeed.NewParser()
	var items []Item
	success := 0

	for _, url := range urls {
		feed, err := parser.ParseURLWithContext(url, ctx)
		if err != nil {
			logger.Warn("error parsing feed", "url", url, "error", err)
			continue
		}
		for _, entry := range feed.Items {
			if entry.Link == "" {
				continue
			}
			items = append(items, Item{
				Title:  entry.Title,
				Link:   entry.Link,
				Source: feed.Title,
			})
		}
		success++
		logger.Info("feed loaded", "url", url, "items", len(feed.Items))
	}

	logger.Info("feeds processed", "ok", success, "total", len(urls))
	return items
}
