// Package extract pulls article text, title and lead image out of web
// pages.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/phoenixlab/rewriter/internal/logger"
)

const (
	// maxArticleRunes caps extracted text so a broken page cannot feed
	// megabytes into the pipeline.
	maxArticleRunes = 50000
	// minFragmentLen filters out stray captions and menu items.
	minFragmentLen = 20

	chromeUA  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	firefoxUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0"
)

// BlockedError means the site refused automated access even after the
// fallback attempt.
type BlockedError struct {
	URL string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("site %s blocks automated access (403)", e.URL)
}

// Article is the usable content of one page.
type Article struct {
	Title   string
	Content string
	URL     string
}

// Extractor fetches and parses pages with browser-like headers.
type Extractor struct {
	httpClient *http.Client
}

func New() *Extractor {
	return &Extractor{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

func browserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Cache-Control", "max-age=0")
}

// fetch loads the page. On 403 it retries once with a different agent
// and a search referer before giving up.
func (e *Extractor) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	browserHeaders(req)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}

	if resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		logger.Warn("got 403, retrying with alternate headers", "url", pageURL)

		retry, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		browserHeaders(retry)
		retry.Header.Set("User-Agent", firefoxUA)
		retry.Header.Set("Referer", "https://www.google.com/")

		resp, err = e.httpClient.Do(retry)
		if err != nil {
			return nil, fmt.Errorf("error loading page: %w", err)
		}
		if resp.StatusCode == http.StatusForbidden {
			resp.Body.Close()
			return nil, &BlockedError{URL: pageURL}
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}
	return doc, nil
}

// Fetch loads the page and returns text, title and lead image in one
// request.
func (e *Extractor) Fetch(ctx context.Context, pageURL string) (*Article, string, error) {
	doc, err := e.fetch(ctx, pageURL)
	if err != nil {
		return nil, "", err
	}

	content := articleText(doc)
	if content == "" {
		return nil, "", fmt.Errorf("can't get content from %s", pageURL)
	}

	return &Article{
		Title:   pageTitle(doc),
		Content: content,
		URL:     pageURL,
	}, leadImage(doc, pageURL), nil
}

// Text extracts only the article body.
func (e *Extractor) Text(ctx context.Context, pageURL string) (*Article, error) {
	article, _, err := e.Fetch(ctx, pageURL)
	return article, err
}

// Image extracts only the lead image URL. Empty string when the page
// carries none.
func (e *Extractor) Image(ctx context.Context, pageURL string) (string, error) {
	doc, err := e.fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return leadImage(doc, pageURL), nil
}

// unwantedPatterns are site chrome fragments that leak into extracted
// text: registration banners, mail confirmation prompts.
var unwantedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\*\*OMG[^*]*\*\*`),
	regexp.MustCompile(`(?i)Регистрация пройдена успешно[!.]*`),
	regexp.MustCompile(`(?i)Перейти по ссылке из письма[^.]*\.`),
	regexp.MustCompile(`(?i)если не видите[^.]*\.`),
	regexp.MustCompile(`(?i)ищите в спаме`),
	regexp.MustCompile(`(?i)Пожалуйста[^.]*перейдите[^.]*\.`),
	regexp.MustCompile(`(?i)Перейдите по ссылке[^.]*\.`),
}

var spacesPattern = regexp.MustCompile(`[ \t]+`)

// articleText collects the page's readable text.
func articleText(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer, header, aside").Remove()

	var parts []string
	seen := make(map[string]struct{})
	doc.Find("p, h1, h2, h3, h4, h5, h6, article").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if len([]rune(text)) <= minFragmentLen {
			return
		}
		if _, dup := seen[text]; dup {
			return
		}
		seen[text] = struct{}{}
		parts = append(parts, text)
	})

	text := strings.Join(parts, "\n\n")
	if len([]rune(text)) < 100 {
		text = strings.TrimSpace(doc.Find("body").Text())
	}

	for _, pattern := range unwantedPatterns {
		text = pattern.ReplaceAllString(text, "")
	}
	text = spacesPattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	if runes := []rune(text); len(runes) > maxArticleRunes {
		text = string(runes[:maxArticleRunes])
	}
	return text
}

func pageTitle(doc *goquery.Document) string {
	for _, selector := range []string{"h1", "title", ".article-title", ".headline", ".entry-title"} {
		title := strings.TrimSpace(doc.Find(selector).First().Text())
		if title != "" {
			return title
		}
	}
	return ""
}

// leadImage finds the page's main illustration: og:image first, then
// article:image, then the first large inline image.
func leadImage(doc *goquery.Document, pageURL string) string {
	for _, prop := range []string{"og:image", "article:image"} {
		if content, ok := doc.Find(fmt.Sprintf(`meta[property=%q]`, prop)).Attr("content"); ok && content != "" {
			return absoluteURL(content, pageURL)
		}
	}

	var found string
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if src == "" {
			src, _ = s.Attr("data-src")
		}
		if src == "" {
			src, _ = s.Attr("data-lazy-src")
		}
		if src == "" {
			return true
		}

		if tooSmall(s) || looksDecorative(s) {
			return true
		}

		found = absoluteURL(src, pageURL)
		return false
	})
	return found
}

func tooSmall(s *goquery.Selection) bool {
	w, okW := s.Attr("width")
	h, okH := s.Attr("height")
	if !okW || !okH {
		return false
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil {
		return false
	}
	return width < 200 || height < 200
}

func looksDecorative(s *goquery.Selection) bool {
	class, _ := s.Attr("class")
	alt, _ := s.Attr("alt")
	haystack := strings.ToLower(class + " " + alt)
	for _, skip := range []string{"logo", "icon", "avatar", "button"} {
		if strings.Contains(haystack, skip) {
			return true
		}
	}
	return false
}

func absoluteURL(src, pageURL string) string {
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	if strings.HasPrefix(src, "http") {
		return src
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return base.ResolveReference(ref).String()
}
