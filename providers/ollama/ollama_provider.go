package ollama

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
	ollama_models "github.com/meysamhadeli/codedoc/providers/ollama/models"
	"github.com/meysamhadeli/codedoc/providers/retry"
	contracts2 "github.com/meysamhadeli/codedoc/token_management/contracts"
)

const (
	defaultBaseURL = "http://localhost:11434/api"
	defaultTimeout = 120 * time.Second
)

// OllamaConfig configures the Ollama summary provider.
type OllamaConfig struct {
	BaseURL         string
	Model           string
	Temperature     *float32
	MaxTokens       int
	Timeout         time.Duration
	Retry           *retry.Config
	TokenManagement contracts2.ITokenManagement
}

type ollamaProvider struct {
	baseURL         string
	model           string
	temperature     *float32
	maxTokens       int
	retry           retry.Config
	httpClient      *http.Client
	tokenManagement contracts2.ITokenManagement
}

// NewOllamaProvider creates a provider talking to a local or remote Ollama server.
func NewOllamaProvider(config *OllamaConfig) contracts.ISummaryProvider {
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

	return &ollamaProvider{
		baseURL:         baseURL,
		model:           config.Model,
		temperature:     config.Temperature,
		maxTokens:       config.MaxTokens,
		retry:           retryConfig,
		httpClient:      &http.Client{Timeout: timeout},
		tokenManagement: config.TokenManagement,
	}
}

func (p *ollamaProvider) Name() string  { return "ollama" }
func (p *ollamaProvider) Model() string { return p.model }

func (p *ollamaProvider) Summarize(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	return retry.WithBackoff(ctx, p.retry, func() (string, error) {
		return p.chat(ctx, systemPrompt, userPrompt)
	})
}

func (p *ollamaProvider) chat(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	reqBody := ollama_models.OllamaChatCompletionRequest{
		Model: p.model,
		Messages: []ollama_models.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: false,
	}
	if p.temperature != nil || p.maxTokens > 0 {
		reqBody.Options = &ollama_models.Options{Temperature: p.temperature, NumPredict: p.maxTokens}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshalling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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
		var apiError ollama_models.OllamaErrorResponse
		if json.Unmarshal(body, &apiError) == nil && apiError.Error != "" {
			message = apiError.Error
		}
		return "", &models.StatusError{StatusCode: resp.StatusCode, Message: message}
	}

	var response ollama_models.OllamaChatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("error unmarshalling response: %w", err)
	}

	if p.tokenManagement != nil && (response.PromptEvalCount > 0 || response.EvalCount > 0) {
		p.tokenManagement.UsedTokens(response.PromptEvalCount, response.EvalCount)
	}

	if strings.TrimSpace(response.Message.Content) == "" {
		return "", models.ErrEmptyResponse
	}
	return response.Message.Content, nil
}
