package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultQwenModel         = "qwen/qwen3-30b-a3b:free"

	// chatInputLimit keeps the prompt inside the context window of the
	// free-tier chat models.
	chatInputLimit = 12000
)

// systemPrompt instructs the model to answer with the rewritten text
// only, no preamble and no reasoning.
const systemPrompt = "Ты профессиональный редактор. Перепиши текст в указанном стиле. " +
	"Отвечай ТОЛЬКО переписанным текстом, без вступлений, пояснений и рассуждений. " +
	"Сохраняй фактическую точность исходного текста."

// stopSequences cut off the reasoning spillover some open models emit
// after the answer.
var stopSequences = []string{"\nДумаю:", "\nВот переписанный текст:", "\nThink:", "\n("}

func styleInstruction(style Style) string {
	switch style {
	case StyleScientific:
		return "Стиль: НАУЧНО-ДЕЛОВОЙ. Строгая лексика, точные формулировки, без эмоций."
	case StyleMeme:
		return "Стиль: МЕМНЫЙ. Ирония, интернет-сленг, лёгкий тон, можно эмодзи."
	default:
		return "Стиль: ПОВСЕДНЕВНЫЙ. Простой разговорный язык, короткие предложения."
	}
}

// OpenRouter rewrites text through an OpenAI-compatible chat endpoint.
type OpenRouter struct {
	client *openai.Client
	model  string
}

func NewOpenRouter(apiKey, baseURL, model string) *OpenRouter {
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	if model == "" {
		model = defaultQwenModel
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenRouter{client: openai.NewClientWithConfig(cfg), model: model}
}

func (o *OpenRouter) Name() string { return "qwen" }

func (o *OpenRouter) InputLimit() int { return chatInputLimit }

func (o *OpenRouter) Rewrite(ctx context.Context, text string, style Style) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: styleInstruction(style) + "\n\nТекст:\n" + text},
		},
		Temperature: 0.5,
		MaxTokens:   4000,
		TopP:        0.95,
		Stop:        stopSequences,
	})
	if err != nil {
		if apiErr, ok := err.(*openai.APIError); ok {
			return "", rejected(o.Name(), fmt.Errorf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message))
		}
		return "", classify(o.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return "", malformed(o.Name(), fmt.Errorf("empty choices"))
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", malformed(o.Name(), fmt.Errorf("empty completion"))
	}
	return out, nil
}
