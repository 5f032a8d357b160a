package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// mlInputLimit is the comfortable single-call input size of the seq2seq
// paraphrase models. Longer text loses its tail, so documents are
// chunked down to this size before they reach the backend.
const mlInputLimit = 200

// MLClient talks to the local inference service that hosts the
// paraphrase and summarization models.
type MLClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewMLClient builds a client. Model inference on CPU is slow, so the
// timeout is generous.
func NewMLClient(baseURL, apiKey string) *MLClient {
	return &MLClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

type paraphraseRequest struct {
	Text        string  `json:"text"`
	Model       string  `json:"model,omitempty"`
	MaxLength   int     `json:"max_length"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type paraphraseResponse struct {
	Paraphrased string `json:"paraphrased"`
}

type summarizeRequest struct {
	Text         string `json:"text"`
	TargetLength int    `json:"target_length,omitempty"`
	Language     string `json:"language,omitempty"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

func (c *MLClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &httpStatusError{status: resp.StatusCode, body: string(data)}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

// Paraphrase runs a single model pass over text.
func (c *MLClient) Paraphrase(ctx context.Context, text, model string) (string, error) {
	var parsed paraphraseResponse
	err := c.post(ctx, "/api/v1/paraphrase", paraphraseRequest{
		Text:        text,
		Model:       model,
		MaxLength:   512,
		Temperature: 0.7,
		TopP:        0.9,
	}, &parsed)
	if err != nil {
		return "", err
	}
	return parsed.Paraphrased, nil
}

// Summarize compresses text to roughly targetLength characters.
func (c *MLClient) Summarize(ctx context.Context, text string, targetLength int) (string, error) {
	var parsed summarizeResponse
	err := c.post(ctx, "/api/v1/summarize", summarizeRequest{
		Text:         text,
		TargetLength: targetLength,
		Language:     "ru",
	}, &parsed)
	if err != nil {
		return "", err
	}
	return parsed.Summary, nil
}

// Paraphraser adapts the ML service to the Rewriter interface. The
// seq2seq models ignore style, they only restate the text.
type Paraphraser struct {
	model  string
	client *MLClient
}

func NewParaphraser(model string, client *MLClient) *Paraphraser {
	return &Paraphraser{model: model, client: client}
}

func (p *Paraphraser) Name() string { return p.model }

func (p *Paraphraser) InputLimit() int { return mlInputLimit }

func (p *Paraphraser) Rewrite(ctx context.Context, text string, _ Style) (string, error) {
	out, err := p.client.Paraphrase(ctx, text, p.model)
	if err != nil {
		var serr *httpStatusError
		if errors.As(err, &serr) {
			return "", rejected(p.model, err)
		}
		return "", classify(p.model, err)
	}
	if out == "" {
		return "", malformed(p.model, fmt.Errorf("empty paraphrase"))
	}
	return out, nil
}
