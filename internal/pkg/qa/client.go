package qa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/adamrozichner-star/dpo-saas/internal/pkg/env"
)

const (
	defaultLLMBaseURL = "https://api.openai.com/v1"
	defaultLLMModel   = "gpt-4o-mini"
)

const systemPrompt = `אתה יועץ מומחה לחוק הגנת הפרטיות הישראלי ותיקון 13.
ענה בעברית, בקצרה ובאופן מעשי. אם השאלה דורשת ייעוץ משפטי פרטני, ציין זאת.
אל תמציא סעיפי חוק.`

// LLMClient talks to an OpenAI-compatible chat completion endpoint.
type LLMClient struct {
	APIKey  string
	BaseURL string
	Model   string

	HTTPClient *http.Client
}

// NewLLMClientFromEnv builds the client from LLM_* environment variables.
func NewLLMClientFromEnv() *LLMClient {
	return &LLMClient{
		APIKey:  strings.TrimSpace(env.GetEnv("LLM_API_KEY", "")),
		BaseURL: strings.TrimRight(env.GetEnv("LLM_BASE_URL", defaultLLMBaseURL), "/"),
		Model:   strings.TrimSpace(env.GetEnv("LLM_MODEL", defaultLLMModel)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one Amendment-13 question and returns the model answer.
func (c *LLMClient) Complete(ctx context.Context, question string, orgContext string) (string, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return "", errors.New("LLM_API_KEY is not configured")
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("question is required")
	}

	user := question
	if orgContext != "" {
		user = fmt.Sprintf("הקשר ארגוני: %s\n\nשאלה: %s", orgContext, question)
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: user},
		},
		Temperature: 0.2,
		MaxTokens:   800,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", strings.NewReader(string(payload)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("llm completion failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if out.Error != nil {
		return "", fmt.Errorf("llm completion error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errors.New("llm completion returned no content")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
