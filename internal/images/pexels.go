package images

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultPexelsBaseURL = "https://api.pexels.com/v1"

// Searcher finds a stock image URL for a keyword query. An empty URL
// with a nil error means nothing matched.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string) (string, error)
}

// Pexels queries the Pexels photo search API.
type Pexels struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewPexels(apiKey string) *Pexels {
	return &Pexels{
		apiKey:     apiKey,
		baseURL:    defaultPexelsBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *Pexels) Name() string { return "pexels" }

type pexelsResponse struct {
	Photos []struct {
		Src struct {
			Large    string `json:"large"`
			Original string `json:"original"`
		} `json:"src"`
	} `json:"photos"`
}

func (p *Pexels) Search(ctx context.Context, query string) (string, error) {
	if p.apiKey == "" {
		return "", nil
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", "1")
	params.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pexels: status %d", resp.StatusCode)
	}

	var parsed pexelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Photos) == 0 {
		return "", nil
	}
	if parsed.Photos[0].Src.Large != "" {
		return parsed.Photos[0].Src.Large, nil
	}
	return parsed.Photos[0].Src.Original, nil
}
