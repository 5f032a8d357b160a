// Package images gathers illustration candidates for a rewritten
// article from independent sources.
package images

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/phoenixlab/rewriter/internal/logger"
)

// Set holds up to three candidate image URLs. Empty string means the
// source produced nothing; the candidates never substitute for each
// other.
type Set struct {
	Original  string
	Searched  string
	Generated string
}

const (
	originalTimeout = 20 * time.Second
	searchTimeout   = 30 * time.Second
	generateTimeout = 2 * time.Minute
)

// Resolver fans out to the page scraper, the stock photo searchers and
// the generator. All branches are optional.
type Resolver struct {
	// PageImage extracts the lead image of the source page.
	PageImage func(ctx context.Context, pageURL string) (string, error)
	// Searchers are tried in order until one returns a URL.
	Searchers []Searcher
	// Generate produces a brand new image for a prompt.
	Generate func(ctx context.Context, prompt string) (string, error)
}

// Resolve runs all three branches concurrently. A failed branch leaves
// its slot empty and never affects the other two.
func (r *Resolver) Resolve(ctx context.Context, pageURL, articleText, rewrittenText string) Set {
	var (
		set Set
		wg  sync.WaitGroup
	)

	if r.PageImage != nil && pageURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			branchCtx, cancel := context.WithTimeout(ctx, originalTimeout)
			defer cancel()
			url, err := r.PageImage(branchCtx, pageURL)
			if err != nil {
				logger.Warn("page image extraction failed", "url", pageURL, "error", err)
				return
			}
			set.Original = url
		}()
	}

	if len(r.Searchers) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			branchCtx, cancel := context.WithTimeout(ctx, searchTimeout)
			defer cancel()
			query := SearchQuery(articleText, rewrittenText)
			for _, s := range r.Searchers {
				url, err := s.Search(branchCtx, query)
				if err != nil {
					logger.Warn("image search failed", "source", s.Name(), "query", query, "error", err)
					continue
				}
				if url != "" {
					set.Searched = url
					return
				}
			}
		}()
	}

	if r.Generate != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			branchCtx, cancel := context.WithTimeout(ctx, generateTimeout)
			defer cancel()
			// The prompt describes the article the readers will see,
			// so it comes from the rewritten text.
			source := rewrittenText
			if strings.TrimSpace(source) == "" {
				source = articleText
			}
			url, err := r.Generate(branchCtx, GenPrompt(source))
			if err != nil {
				logger.Warn("image generation failed", "error", err)
				return
			}
			set.Generated = url
		}()
	}

	wg.Wait()
	return set
}
