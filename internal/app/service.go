// Package app wires the extraction, rewrite, image and publishing
// layers into one service.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/phoenixlab/rewriter/internal/cache"
	"github.com/phoenixlab/rewriter/internal/config"
	"github.com/phoenixlab/rewriter/internal/extract"
	"github.com/phoenixlab/rewriter/internal/fusionbrain"
	"github.com/phoenixlab/rewriter/internal/images"
	"github.com/phoenixlab/rewriter/internal/logger"
	"github.com/phoenixlab/rewriter/internal/metrics"
	"github.com/phoenixlab/rewriter/internal/platform"
	"github.com/phoenixlab/rewriter/internal/provider"
	"github.com/phoenixlab/rewriter/internal/ratelimit"
	"github.com/phoenixlab/rewriter/internal/rewrite"
	"github.com/phoenixlab/rewriter/internal/store"
	"github.com/phoenixlab/rewriter/internal/telegram"
)

// ErrRateLimited is returned when the daily request budget for the
// chosen backend is spent.
var ErrRateLimited = errors.New("rate limit exceeded")

const (
	defaultUsername  = "default_user"
	sourceLinePrefix = "\n\nИсточник: "
	// Stored titles and previews are capped so one huge article does
	// not bloat the history tables.
	titleMaxRunes  = 100
	storedMaxRunes = 50000
)

// ProcessRequest is one article job. Exactly one of URL and Text must
// be set.
type ProcessRequest struct {
	URL      string
	Text     string
	Style    string
	Provider string
	Username string
}

// ProcessResult carries everything the caller needs to present or
// publish the rewritten article.
type ProcessResult struct {
	OriginalText  string
	RewrittenText string
	URL           string
	Style         string
	Provider      string
	Degraded      bool
	FailedChunks  int
	TotalChunks   int
	Images        images.Set
	Variants      map[string]platform.Variant
	URLID         int64
}

type cachedRewrite struct {
	Text         string
	Degraded     bool
	FailedChunks int
	TotalChunks  int
}

// Service owns the long lived collaborators. Build it once with New
// and share it between the HTTP server and the feed loop.
type Service struct {
	cfg       *config.Config
	extractor *extract.Extractor
	ml        *provider.MLClient
	resolver  *images.Resolver
	adapter   *platform.Adapter
	limiter   *ratelimit.AIRateLimiter
	cache     *cache.Cache
	history   *store.History
	tokens    *store.TokenStore
	telegram  *telegram.Client
	artifacts *fusionbrain.ArtifactStore
}

// New assembles the service from configuration. Integrations without
// credentials are wired as disabled branches rather than errors.
func New(cfg *config.Config) (*Service, error) {
	adapter, err := platform.Load(cfg.PlatformsConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load platform limits: %w", err)
	}

	history, err := store.OpenHistory(cfg.DatabaseURL)
	if err != nil {
		// The service stays useful without history, same as without
		// image keys.
		logger.Warn("history storage unavailable", "error", err)
		history = &store.History{}
	}

	artifacts, err := fusionbrain.NewArtifactStore(cfg.UploadsDir, cfg.PublicURL)
	if err != nil {
		return nil, fmt.Errorf("init uploads dir: %w", err)
	}

	extractor := extract.New()

	svc := &Service{
		cfg:       cfg,
		extractor: extractor,
		ml:        provider.NewMLClient(cfg.MLServiceURL, cfg.MLServiceAPIKey),
		adapter:   adapter,
		limiter: ratelimit.NewAIRateLimiter(map[string]int{
			"qwen":   cfg.MaxRequestsPerProvider,
			"yandex": cfg.MaxRequestsPerProvider,
			"rut5":   cfg.MaxRequestsPerProvider,
			"flant5": cfg.MaxRequestsPerProvider,
			"gemini": cfg.MaxRequestsPerProvider,
		}, cfg.MaxRequestsTotal),
		cache:     cache.New(),
		history:   history,
		tokens:    store.NewTokenStore(cfg.AuthTokensFile),
		telegram:  telegram.NewClient(cfg.BotToken),
		artifacts: artifacts,
	}

	searchers := []images.Searcher{}
	if cfg.PexelsAPIKey != "" {
		searchers = append(searchers, images.NewPexels(cfg.PexelsAPIKey))
	}
	searchers = append(searchers, images.NewUnsplash())

	resolver := &images.Resolver{
		PageImage: extractor.Image,
		Searchers: searchers,
	}
	fb := fusionbrain.NewClient(cfg.FusionBrainAPIKey, cfg.FusionBrainSecret)
	if fb.Configured() {
		resolver.Generate = fusionbrain.NewPoller(fb, artifacts).Generate
	}
	svc.resolver = resolver

	return svc, nil
}

// Tokens exposes the auth token store for the HTTP layer.
func (s *Service) Tokens() *store.TokenStore { return s.tokens }

// UploadsDir is where generated images land on disk.
func (s *Service) UploadsDir() string { return s.artifacts.Dir() }

// History exposes the persistence layer for the HTTP layer.
func (s *Service) History() *store.History { return s.history }

// Channels lists the configured publishing destinations.
func (s *Service) Channels() []string {
	return store.LoadChannels(s.cfg.ChannelsFile)
}

// LimiterStats reports the current per backend usage.
func (s *Service) LimiterStats() map[string]interface{} {
	return s.limiter.GetStats()
}

// ProcessArticle runs the whole rewrite flow for one article: fetch or
// accept text, rewrite it, gather images, cut platform variants and
// record the run.
func (s *Service) ProcessArticle(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	started := time.Now()
	metrics.Global.IncrementRequests()

	if err := validate(req); err != nil {
		return nil, err
	}
	style, err := provider.ParseStyle(req.Style)
	if err != nil {
		return nil, &rewrite.ValidationError{Field: "style", Reason: err.Error()}
	}
	tag := normalizeTag(req.Provider)

	text := strings.TrimSpace(req.Text)
	if req.URL != "" {
		logger.Info("processing article", "url", req.URL, "style", style, "provider", tag)
		article, err := s.extractor.Text(ctx, req.URL)
		if err != nil {
			return nil, err
		}
		text = article.Content
	} else {
		logger.Info("processing article", "text_len", utf8.RuneCountInString(text), "style", style, "provider", tag)
	}

	if utf8.RuneCountInString(text) < 50 {
		return nil, &rewrite.ValidationError{
			Field:  "text",
			Reason: fmt.Sprintf("article text too short (%d chars), minimum is 50", utf8.RuneCountInString(text)),
		}
	}

	if !s.limiter.Allow(tag) {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, tag)
	}

	doc, err := s.rewriteText(ctx, text, style, tag)
	if err != nil {
		metrics.Global.IncrementFailedRewrites()
		metrics.Global.SetError(err.Error())
		return nil, err
	}

	rewritten := doc.Text
	if req.URL != "" {
		rewritten = strings.TrimRight(rewritten, " \n") + sourceLinePrefix + req.URL
	}

	imgs := s.resolver.Resolve(ctx, req.URL, text, rewritten)
	for _, u := range []string{imgs.Original, imgs.Searched, imgs.Generated} {
		if u != "" {
			metrics.Global.IncrementImagesResolved()
		}
	}

	result := &ProcessResult{
		OriginalText:  text,
		RewrittenText: rewritten,
		URL:           req.URL,
		Style:         string(style),
		Provider:      tag,
		Degraded:      doc.Degraded,
		FailedChunks:  doc.FailedChunks,
		TotalChunks:   doc.TotalChunks,
		Images:        imgs,
		Variants:      s.adapter.AdaptAll(rewritten),
	}
	result.URLID = s.saveHistory(ctx, req, result, time.Since(started))

	metrics.Global.IncrementSuccessfulRewrites()
	metrics.Global.RecordProcessingTime(time.Since(started))
	metrics.Global.SetLastRun()
	logger.Info("article processed",
		"provider", tag, "style", style,
		"result_len", utf8.RuneCountInString(rewritten),
		"degraded", doc.Degraded,
		"elapsed", time.Since(started).Round(time.Millisecond))
	return result, nil
}

// rewriteText runs the chunked pipeline for one backend, with a cache
// in front so repeated requests do not burn backend quota.
func (s *Service) rewriteText(ctx context.Context, text string, style provider.Style, tag string) (*rewrite.Document, error) {
	key := s.cache.GenerateKey(text, string(style), tag)
	if hit, ok := s.cache.Get(key); ok {
		if cached, ok := hit.(cachedRewrite); ok {
			metrics.Global.IncrementCacheHits()
			logger.Info("rewrite served from cache", "provider", tag, "style", style)
			return &rewrite.Document{
				Text:         cached.Text,
				Style:        style,
				Provider:     tag,
				Degraded:     cached.Degraded,
				FailedChunks: cached.FailedChunks,
				TotalChunks:  cached.TotalChunks,
			}, nil
		}
	}

	backend, err := provider.New(tag, provider.Config{
		OpenRouterAPIKey:  s.cfg.OpenRouterAPIKey,
		OpenRouterBaseURL: s.cfg.OpenRouterBaseURL,
		QwenModel:         s.cfg.QwenModel,
		YandexAPIKey:      s.cfg.YandexAPIKey,
		YandexFolderID:    s.cfg.YandexFolderID,
		MLServiceURL:      s.cfg.MLServiceURL,
		MLServiceAPIKey:   s.cfg.MLServiceAPIKey,
		GeminiAPIKey:      s.cfg.GeminiAPIKey,
		GeminiModel:       s.cfg.GeminiModel,
	})
	if err != nil {
		return nil, &rewrite.ValidationError{Field: "provider", Reason: err.Error()}
	}
	if closer, ok := backend.(interface{ Close() }); ok {
		defer closer.Close()
	}

	if err := s.limiter.Use(tag); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, tag)
	}

	doc, err := rewrite.New(backend, s.ml).Run(ctx, rewrite.Request{Text: text, Style: style})
	if err != nil {
		return nil, err
	}
	if doc.Degraded {
		metrics.Global.RecordDegradedDocument(doc.FailedChunks)
	}

	s.cache.Set(key, cachedRewrite{
		Text:         doc.Text,
		Degraded:     doc.Degraded,
		FailedChunks: doc.FailedChunks,
		TotalChunks:  doc.TotalChunks,
	}, s.cfg.CacheTTL)
	return doc, nil
}

// saveHistory records the run when a database is configured. Storage
// problems are logged and never fail the request.
func (s *Service) saveHistory(ctx context.Context, req ProcessRequest, res *ProcessResult, elapsed time.Duration) int64 {
	if !s.history.Enabled() {
		return 0
	}

	username := req.Username
	if username == "" {
		username = defaultUsername
	}
	userID, err := s.history.EnsureUser(ctx, username, "")
	if err != nil {
		logger.Warn("history: ensure user failed", "username", username, "error", err)
		return 0
	}

	url := req.URL
	title := ""
	if url == "" {
		// Direct text gets a synthetic URL so results still group.
		url = fmt.Sprintf("text_input_%d", time.Now().Unix())
		title = truncateRunes(res.OriginalText, titleMaxRunes)
	}
	urlID, err := s.history.SaveURL(ctx, userID, url, title)
	if err != nil {
		logger.Warn("history: save url failed", "url", url, "error", err)
		return 0
	}

	err = s.history.SaveResult(ctx, urlID,
		truncateRunes(res.OriginalText, storedMaxRunes),
		truncateRunes(res.RewrittenText, storedMaxRunes),
		res.Style, res.Provider, elapsed)
	if err != nil {
		logger.Warn("history: save result failed", "url_id", urlID, "error", err)
	}
	return urlID
}

func validate(req ProcessRequest) error {
	hasURL := strings.TrimSpace(req.URL) != ""
	hasText := strings.TrimSpace(req.Text) != ""
	switch {
	case !hasURL && !hasText:
		return &rewrite.ValidationError{Field: "url", Reason: "either url or text must be provided"}
	case hasURL && hasText:
		return &rewrite.ValidationError{Field: "url", Reason: "url and text are mutually exclusive, provide one"}
	}
	if !provider.Known(req.Provider) {
		return &rewrite.ValidationError{Field: "provider", Reason: fmt.Sprintf("unknown provider %q", req.Provider)}
	}
	return nil
}

func normalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return "qwen"
	}
	return tag
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
