package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"facility-finder/config"
	"facility-finder/models"
	"facility-finder/utils"
)

// OpenAIMessage is a message in OpenAI chat format.
type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []OpenAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message OpenAIMessage `json:"message"`
	} `json:"choices"`
}

// OpenAIClient sends chat completion requests to the OpenAI API.
type OpenAIClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	retry      *utils.RetryConfig
}

// NewOpenAIClient creates a client from the application config.
func NewOpenAIClient(cfg *config.Config, logger *utils.Logger) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     cfg.OpenAIAPIKey,
		model:      cfg.OpenAIModel,
		baseURL:    strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.CompletionTimeout},
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries + 1,
			BaseDelay:   cfg.RetryBaseDelay,
			Logger:      logger,
		},
	}
}

// Complete sends prompt as a single user message and returns the reply text.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", models.MissingConfig("OPENAI_API_KEY")
	}

	payload, err := json.Marshal(openAIRequest{
		Model:       c.model,
		Messages:    []OpenAIMessage{{Role: "user", Content: prompt}},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	body, err := fetch(ctx, c.httpClient, c.retry, "openai.chat", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		return req, nil
	})
	if err != nil {
		return "", err
	}

	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
