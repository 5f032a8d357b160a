package images

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const defaultUnsplashBaseURL = "https://source.unsplash.com"

var unsplashCleanPattern = regexp.MustCompile(`[^a-zA-Zа-яА-Я0-9\s]`)

// Unsplash uses the keyless source.unsplash.com redirect service. A
// HEAD probe follows the redirect; the final URL is the image.
type Unsplash struct {
	baseURL    string
	httpClient *http.Client
}

func NewUnsplash() *Unsplash {
	return &Unsplash{
		baseURL:    defaultUnsplashBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (u *Unsplash) Name() string { return "unsplash" }

func (u *Unsplash) Search(ctx context.Context, query string) (string, error) {
	terms := unsplashCleanPattern.ReplaceAllString(query, "")
	terms = strings.ToLower(strings.Join(strings.Fields(terms), ","))
	if runes := []rune(terms); len(runes) > 50 {
		terms = string(runes[:50])
	}
	if terms == "" {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.baseURL+"/1600x900/?"+terms, nil)
	if err != nil {
		return "", err
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	final := req.URL.String()
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusMovedPermanently, http.StatusFound:
		if strings.Contains(final, "unsplash") {
			return final, nil
		}
	}
	return "", nil
}
