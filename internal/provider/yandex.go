package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultYandexBaseURL     = "https://rest-assistant.api.cloud.yandex.net/v1"
	defaultYandexAssistantID = "fvtfdp5dm8r044bnumjl"
)

// Yandex rewrites text through a preconfigured cloud assistant. Unlike
// the chat backends the style is folded into the input, not into a
// system message.
type Yandex struct {
	apiKey      string
	folderID    string
	assistantID string
	baseURL     string
	httpClient  *http.Client
}

func NewYandex(apiKey, folderID string) *Yandex {
	return &Yandex{
		apiKey:      apiKey,
		folderID:    folderID,
		assistantID: defaultYandexAssistantID,
		baseURL:     defaultYandexBaseURL,
		httpClient:  &http.Client{Timeout: 2 * time.Minute},
	}
}

func (y *Yandex) Name() string { return "yandex" }

func (y *Yandex) InputLimit() int { return chatInputLimit }

func yandexStylePrompt(style Style) string {
	switch style {
	case StyleScientific:
		return "Перепиши статью в научно-деловом стиле, сохраняя основную информацию и факты. Ответ должен быть на русском языке."
	case StyleMeme:
		return "Перепиши статью в мемном стиле, сделай её более развлекательной и юмористической. Ответ должен быть на русском языке."
	default:
		return "Перепиши статью в повседневном стиле, сделай её более простой и понятной для широкой аудитории. Ответ должен быть на русском языке."
	}
}

type yandexRequest struct {
	Prompt yandexPrompt `json:"prompt"`
	Input  string       `json:"input"`
}

type yandexPrompt struct {
	ID string `json:"id"`
}

type yandexResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

func (y *Yandex) Rewrite(ctx context.Context, text string, style Style) (string, error) {
	input := fmt.Sprintf("%s\n\nВАЖНО: Весь ответ должен быть на русском языке.\n\nТекст статьи:\n%s",
		yandexStylePrompt(style), text)

	body, err := json.Marshal(yandexRequest{
		Prompt: yandexPrompt{ID: y.assistantID},
		Input:  input,
	})
	if err != nil {
		return "", malformed(y.Name(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, y.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return "", classify(y.Name(), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+y.apiKey)
	req.Header.Set("x-folder-id", y.folderID)

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return "", classify(y.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", rejected(y.Name(), fmt.Errorf("status %d: %s", resp.StatusCode, data))
	}

	var parsed yandexResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", malformed(y.Name(), err)
	}
	if parsed.OutputText != "" {
		return parsed.OutputText, nil
	}
	if len(parsed.Output) > 0 && len(parsed.Output[0].Content) > 0 && parsed.Output[0].Content[0].Text != "" {
		return parsed.Output[0].Content[0].Text, nil
	}
	return "", malformed(y.Name(), fmt.Errorf("response carries no text"))
}
