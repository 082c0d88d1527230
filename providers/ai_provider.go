package providers

import (
	"fmt"
	"strings"
	"time"

	"github.com/meysamhadeli/codedoc/providers/contracts"
	"github.com/meysamhadeli/codedoc/providers/models"
	"github.com/meysamhadeli/codedoc/providers/ollama"
	"github.com/meysamhadeli/codedoc/providers/openai"
	contracts2 "github.com/meysamhadeli/codedoc/token_management/contracts"
)

// AIProviderConfig selects and configures the summary provider.
type AIProviderConfig struct {
	Provider    string        `mapstructure:"provider"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	ApiKey      string        `mapstructure:"api_key"`
	Temperature *float32      `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ProviderFactory builds the provider named in config.
func ProviderFactory(config *AIProviderConfig, tokenManagement contracts2.ITokenManagement) (contracts.ISummaryProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: no provider configured", models.ErrUnknownProvider)
	}

	switch strings.ToLower(strings.TrimSpace(config.Provider)) {
	case "ollama":
		return ollama.NewOllamaProvider(&ollama.OllamaConfig{
			BaseURL:         config.BaseURL,
			Model:           config.Model,
			Temperature:     config.Temperature,
			MaxTokens:       config.MaxTokens,
			Timeout:         config.Timeout,
			TokenManagement: tokenManagement,
		}), nil
	case "openai", "openrouter", "deepseek", "grok", "mistral":
		return openai.NewOpenAIProvider(&openai.OpenAIConfig{
			BaseURL:         config.BaseURL,
			Model:           config.Model,
			ApiKey:          config.ApiKey,
			Temperature:     config.Temperature,
			MaxTokens:       config.MaxTokens,
			Timeout:         config.Timeout,
			TokenManagement: tokenManagement,
		})
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownProvider, config.Provider)
	}
}
