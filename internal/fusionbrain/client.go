// Package fusionbrain generates images through the FusionBrain
// (Kandinsky) API: submit a prompt, poll the job, store the result.
package fusionbrain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

const defaultBaseURL = "https://api-key.fusionbrain.ai/"

// Client is a thin wrapper over the pipeline endpoints.
type Client struct {
	apiKey     string
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, secretKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		secretKey:  secretKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Configured reports whether both keys are present.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.secretKey != ""
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("X-Key", "Key "+c.apiKey)
	req.Header.Set("X-Secret", "Secret "+c.secretKey)
}

type pipelineInfo struct {
	ID string `json:"id"`
}

// Pipeline returns the id of the first available generation pipeline.
func (c *Client) Pipeline(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"key/api/v1/pipelines", nil)
	if err != nil {
		return "", err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fusionbrain: pipelines status %d", resp.StatusCode)
	}

	var pipelines []pipelineInfo
	if err := json.NewDecoder(resp.Body).Decode(&pipelines); err != nil {
		return "", err
	}
	if len(pipelines) == 0 {
		return "", fmt.Errorf("fusionbrain: no pipelines available")
	}
	return pipelines[0].ID, nil
}

type generateParams struct {
	Query string `json:"query"`
}

type runParams struct {
	Type           string         `json:"type"`
	NumImages      int            `json:"numImages"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	GenerateParams generateParams `json:"generateParams"`
}

type runResponse struct {
	UUID           string `json:"uuid"`
	PipelineStatus string `json:"pipeline_status"`
}

// Run submits a generation request and returns its job uuid.
func (c *Client) Run(ctx context.Context, pipelineID, prompt string) (string, error) {
	params, err := json.Marshal(runParams{
		Type:      "GENERATE",
		NumImages: 1,
		Width:     1024,
		Height:    1024,
		GenerateParams: generateParams{Query: prompt},
	})
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("pipeline_id", pipelineID); err != nil {
		return "", err
	}
	// The params part must be declared as JSON or the API rejects it.
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="params"`)
	header.Set("Content-Type", "application/json")
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(params); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"key/api/v1/pipeline/run", &body)
	if err != nil {
		return "", err
	}
	c.authorize(req)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("fusionbrain: run status %d: %s", resp.StatusCode, data)
	}

	var parsed runResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.PipelineStatus != "" {
		return "", fmt.Errorf("fusionbrain: service unavailable: %s", parsed.PipelineStatus)
	}
	if parsed.UUID == "" {
		return "", fmt.Errorf("fusionbrain: run response carries no uuid")
	}
	return parsed.UUID, nil
}

// StatusResponse is the raw job state returned by the API.
type StatusResponse struct {
	Status           string `json:"status"`
	ErrorDescription string `json:"errorDescription"`
	Result           struct {
		Files []string `json:"files"`
	} `json:"result"`
}

// Status fetches the current state of a generation job.
func (c *Client) Status(ctx context.Context, uuid string) (*StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"key/api/v1/pipeline/status/"+uuid, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fusionbrain: status %d", resp.StatusCode)
	}

	var parsed StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}
