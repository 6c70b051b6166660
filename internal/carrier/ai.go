package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ChatAIClassifier is the optional AI carrier-classification fallback
// (spec §6 "AI classifier"): a single JSON chat-completion call returning
// {"transportista": "...", "confianza": 0.0-1.0}. Absent API key disables
// it entirely — callers simply never construct one.
type ChatAIClassifier struct {
	Endpoint string
	APIKey   string
	Model    string
	Client   *http.Client
}

// NewChatAIClassifier builds a classifier against an OpenAI-compatible
// chat-completions endpoint.
func NewChatAIClassifier(endpoint, apiKey, model string) *ChatAIClassifier {
	return &ChatAIClassifier{
		Endpoint: endpoint, APIKey: apiKey, Model: model,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type classificationPayload struct {
	Transportista string  `json:"transportista"`
	Confianza     float64 `json:"confianza"`
}

// ClassifyTransport asks the model to name the canonical carrier for text,
// satisfying pipeline's AIClassifier interface.
func (c *ChatAIClassifier) ClassifyTransport(ctx context.Context, text string) (string, float64, error) {
	prompt := fmt.Sprintf(
		`Identify the shipping carrier mentioned in this delivery note. Respond with JSON only: {"transportista": "<canonical name or DESCONOCIDO>", "confianza": <0-1>}.\n\nText: %s`,
		text,
	)
	body, err := json.Marshal(chatRequest{
		Model:    c.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", 0, fmt.Errorf("ai classifier: status %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", 0, err
	}
	if len(chat.Choices) == 0 {
		return "", 0, fmt.Errorf("ai classifier: empty response")
	}

	var payload classificationPayload
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &payload); err != nil {
		return "", 0, fmt.Errorf("ai classifier: parse payload: %w", err)
	}
	return payload.Transportista, payload.Confianza, nil
}
