package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// Gemini rewrites text through Google's generative API. The client is
// created lazily on first call so that a missing key only fails the
// requests that actually pick this backend.
type Gemini struct {
	apiKey string
	model  string
	client *genai.Client
}

func NewGemini(apiKey, model string) *Gemini {
	if model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{apiKey: apiKey, model: model}
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) InputLimit() int { return chatInputLimit }

func (g *Gemini) ensureClient(ctx context.Context) (*genai.Client, error) {
	if g.client != nil {
		return g.client, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	g.client = client
	return client, nil
}

func (g *Gemini) Rewrite(ctx context.Context, text string, style Style) (string, error) {
	client, err := g.ensureClient(ctx)
	if err != nil {
		return "", classify(g.Name(), err)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	model := client.GenerativeModel(g.model)
	prompt := fmt.Sprintf("%s\n\n%s\n\nОтвечай только переписанным текстом, без пояснений.\n\nТекст:\n%s",
		systemPrompt, styleInstruction(style), text)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classify(g.Name(), err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", malformed(g.Name(), fmt.Errorf("no candidates in response"))
	}
	out := strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
	if out == "" {
		return "", malformed(g.Name(), fmt.Errorf("empty candidate"))
	}
	return out, nil
}

// Close releases the underlying API client.
func (g *Gemini) Close() {
	if g.client != nil {
		g.client.Close()
	}
}
