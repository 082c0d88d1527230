package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meysamhadeli/codedoc/providers/contracts"
	"github.com/meysamhadeli/codedoc/providers/models"
	openai_models "github.com/meysamhadeli/codedoc/providers/openai/models"
	"github.com/meysamhadeli/codedoc/providers/retry"
	contracts2 "github.com/meysamhadeli/codedoc/token_management/contracts"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 60 * time.Second
)

// OpenAIConfig configures a provider for any OpenAI-compatible chat completions API.
type OpenAIConfig struct {
	BaseURL         string
	Model           string
	ApiKey          string
	Temperature     *float32
	MaxTokens       int
	Timeout         time.Duration
	Retry           *retry.Config
	TokenManagement contracts2.ITokenManagement
}

type openAIProvider struct {
	baseURL         string
	model           string
	apiKey          string
	temperature     *float32
	maxTokens       int
	retry           retry.Config
	httpClient      *http.Client
	tokenManagement contracts2.ITokenManagement
}

// NewOpenAIProvider creates the provider. A missing API key is a configuration error.
func NewOpenAIProvider(config *OpenAIConfig) (contracts.ISummaryProvider, error) {
	if strings.TrimSpace(config.ApiKey) == "" {
		return nil, fmt.Errorf("openai provider: %w", models.ErrMissingAPIKey)
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retryConfig := retry.DefaultConfig()
	if config.Retry != nil {
		retryConfig = *config.Retry
	}

	return &openAIProvider{
		baseURL:         baseURL,
		model:           config.Model,
		apiKey:          config.ApiKey,
		temperature:     config.Temperature,
		maxTokens:       config.MaxTokens,
		retry:           retryConfig,
		httpClient:      &http.Client{Timeout: timeout},
		tokenManagement: config.TokenManagement,
	}, nil
}

func (p *openAIProvider) Name() string  { return "openai" }
func (p *openAIProvider) Model() string { return p.model }

func (p *openAIProvider) Summarize(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	return retry.WithBackoff(ctx, p.retry, func() (string, error) {
		return p.complete(ctx, systemPrompt, userPrompt)
	})
}

func (p *openAIProvider) complete(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	reqBody := openai_models.OpenAIChatCompletionRequest{
		Model: p.model,
		Messages: []openai_models.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshalling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(body))
		var apiError models.AIError
		if json.Unmarshal(body, &apiError) == nil && apiError.Error.Message != "" {
			message = apiError.Error.Message
		}
		return "", &models.StatusError{StatusCode: resp.StatusCode, Message: message}
	}

	var response openai_models.OpenAIChatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("error unmarshalling response: %w", err)
	}

	if p.tokenManagement != nil && response.Usage.TotalTokens > 0 {
		p.tokenManagement.UsedTokens(response.Usage.PromptTokens, response.Usage.CompletionTokens)
	}

	if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Message.Content) == "" {
		return "", models.ErrEmptyResponse
	}
	return response.Choices[0].Message.Content, nil
}
