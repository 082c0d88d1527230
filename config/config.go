package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/meysamhadeli/codedoc/providers"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config represents the structure of the configuration file
type Config struct {
	Version             string                      `mapstructure:"version"`
	OutputDir           string                      `mapstructure:"output_dir"`
	LogLevel            string                      `mapstructure:"log_level"`
	LogFormat           string                      `mapstructure:"log_format"`
	Theme               string                      `mapstructure:"theme"`
	MaxParseBytes       int64                       `mapstructure:"max_parse_bytes"`
	IgnorePatterns      []string                    `mapstructure:"ignore_patterns"`
	ImportantExtensions []string                    `mapstructure:"important_extensions"`
	Watch               WatchConfig                 `mapstructure:"watch"`
	Store               StoreConfig                 `mapstructure:"store"`
	Generation          GenerationConfig            `mapstructure:"generation"`
	AIProviderConfig    *providers.AIProviderConfig `mapstructure:"ai_provider_config"`

	// ConfigFile is the file the values were read from, if any.
	ConfigFile string `mapstructure:"-"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

type StoreConfig struct {
	SaveDebounce time.Duration `mapstructure:"save_debounce"`
}

type GenerationConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxInputTokens int           `mapstructure:"max_input_tokens"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:       "1.0.0",
	OutputDir:     ".codedoc",
	LogLevel:      "info",
	LogFormat:     "text",
	Theme:         "dracula",
	MaxParseBytes: 512 * 1024,
	Watch:         WatchConfig{Debounce: time.Second},
	Store:         StoreConfig{SaveDebounce: 2 * time.Second},
	Generation: GenerationConfig{
		Concurrency:    3,
		Timeout:        60 * time.Second,
		MaxInputTokens: 6000,
		ShutdownGrace:  10 * time.Second,
	},
	AIProviderConfig: &providers.AIProviderConfig{
		Provider:  "ollama",
		Model:     "llama3.1",
		MaxTokens: 1024,
		Timeout:   120 * time.Second,
	},
}

const configName = "codedoc-config"

// LoadConfigs resolves defaults, the config file, environment variables and flags, in increasing priority.
// cwd is the workspace the default config file and a relative output_dir are resolved against.
func LoadConfigs(rootCmd *cobra.Command, cwd string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("CODEDOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	cfgFile := ""
	if rootCmd != nil {
		if flag := rootCmd.Flags().Lookup("config"); flag != nil {
			cfgFile = flag.Value.String()
		}
	}

	if cfgFile != "" {
		fileType := GetConfigFileType(cfgFile)
		if fileType == "" {
			return nil, fmt.Errorf("unsupported config file type %q: use .yml, .yaml or .json", filepath.Ext(cfgFile))
		}
		v.SetConfigFile(cfgFile)
		v.SetConfigType(fileType)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(cwd)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	if rootCmd != nil {
		bindFlags(v, rootCmd)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.ConfigFile = v.ConfigFileUsed()

	if !filepath.IsAbs(config.OutputDir) {
		config.OutputDir = filepath.Join(cwd, config.OutputDir)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Generation.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("generation.concurrency must be positive, got %d", c.Generation.Concurrency))
	}
	if c.Generation.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("generation.timeout must be positive, got %s", c.Generation.Timeout))
	}
	if c.Watch.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must be positive, got %s", c.Watch.Debounce))
	}
	if c.Store.SaveDebounce <= 0 {
		errs = append(errs, fmt.Errorf("store.save_debounce must be positive, got %s", c.Store.SaveDebounce))
	}
	if c.MaxParseBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_parse_bytes must be positive, got %d", c.MaxParseBytes))
	}
	if c.AIProviderConfig == nil || c.AIProviderConfig.Provider == "" {
		errs = append(errs, errors.New("ai_provider_config.provider is required"))
	}
	return errors.Join(errs...)
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("version", DefaultConfig.Version)
	v.SetDefault("output_dir", DefaultConfig.OutputDir)
	v.SetDefault("log_level", DefaultConfig.LogLevel)
	v.SetDefault("log_format", DefaultConfig.LogFormat)
	v.SetDefault("theme", DefaultConfig.Theme)
	v.SetDefault("max_parse_bytes", DefaultConfig.MaxParseBytes)
	v.SetDefault("ignore_patterns", []string{})
	v.SetDefault("important_extensions", []string{})
	v.SetDefault("watch.debounce", DefaultConfig.Watch.Debounce)
	v.SetDefault("store.save_debounce", DefaultConfig.Store.SaveDebounce)
	v.SetDefault("generation.concurrency", DefaultConfig.Generation.Concurrency)
	v.SetDefault("generation.timeout", DefaultConfig.Generation.Timeout)
	v.SetDefault("generation.max_input_tokens", DefaultConfig.Generation.MaxInputTokens)
	v.SetDefault("generation.shutdown_grace", DefaultConfig.Generation.ShutdownGrace)
	v.SetDefault("ai_provider_config.provider", DefaultConfig.AIProviderConfig.Provider)
	v.SetDefault("ai_provider_config.base_url", DefaultConfig.AIProviderConfig.BaseURL)
	v.SetDefault("ai_provider_config.model", DefaultConfig.AIProviderConfig.Model)
	v.SetDefault("ai_provider_config.api_key", "")
	v.SetDefault("ai_provider_config.temperature", nil)
	v.SetDefault("ai_provider_config.max_tokens", DefaultConfig.AIProviderConfig.MaxTokens)
	v.SetDefault("ai_provider_config.timeout", DefaultConfig.AIProviderConfig.Timeout)
}

// bindEnv binds the short environment names next to the CODEDOC_ prefixed ones.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("ai_provider_config.provider", "CODEDOC_PROVIDER", "PROVIDER")
	_ = v.BindEnv("ai_provider_config.base_url", "CODEDOC_BASE_URL", "BASE_URL")
	_ = v.BindEnv("ai_provider_config.model", "CODEDOC_MODEL", "MODEL")
	_ = v.BindEnv("ai_provider_config.temperature", "CODEDOC_TEMPERATURE", "TEMPERATURE")
	_ = v.BindEnv("ai_provider_config.api_key", "CODEDOC_API_KEY", "API_KEY")
	_ = v.BindEnv("log_level", "CODEDOC_LOG_LEVEL", "LOG_LEVEL")
}

// bindFlags binds changed CLI flags so they override every other source.
func bindFlags(v *viper.Viper, rootCmd *cobra.Command) {
	flags := map[string]string{
		"output_dir":                    "output_dir",
		"log_level":                     "log_level",
		"log_format":                    "log_format",
		"theme":                         "theme",
		"generation.concurrency":        "concurrency",
		"ai_provider_config.provider":   "provider",
		"ai_provider_config.base_url":   "base_url",
		"ai_provider_config.model":      "model",
		"ai_provider_config.api_key":    "api_key",
		"ai_provider_config.max_tokens": "max_tokens",
	}
	for key, name := range flags {
		flag := rootCmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		_ = v.BindPFlag(key, flag)
	}
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a configuration file (JSON or YAML). Defaults to codedoc-config.{yml,yaml,json} in the workspace.")
	rootCmd.PersistentFlags().String("output_dir", DefaultConfig.OutputDir, "Directory for the scan cache, tree snapshot and generated documentation.")
	rootCmd.PersistentFlags().String("log_level", DefaultConfig.LogLevel, "Log level: debug, info, warn or error.")
	rootCmd.PersistentFlags().String("log_format", DefaultConfig.LogFormat, "Log format: text or json.")
	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Syntax highlighting theme used by 'show' (e.g., 'dracula', 'monokai').")
	rootCmd.PersistentFlags().Int("concurrency", DefaultConfig.Generation.Concurrency, "Maximum number of concurrent summary generations.")

	rootCmd.PersistentFlags().String("provider", DefaultConfig.AIProviderConfig.Provider, "Summary provider: 'ollama' or an OpenAI-compatible one such as 'openai'.")
	rootCmd.PersistentFlags().String("base_url", DefaultConfig.AIProviderConfig.BaseURL, "Base URL of the summary provider. Empty uses the provider default.")
	rootCmd.PersistentFlags().String("model", DefaultConfig.AIProviderConfig.Model, "Model used to write file summaries.")
	rootCmd.PersistentFlags().String("api_key", "", "API key for providers that require one.")
	rootCmd.PersistentFlags().Int("max_tokens", DefaultConfig.AIProviderConfig.MaxTokens, "Maximum number of tokens in one generated summary.")
}

// GetConfigFileType returns the type of the configuration file based on its extension
func GetConfigFileType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	}
	return ""
}

// WorkingDirectory resolves the workspace root from an optional argument.
func WorkingDirectory(path string) (string, error) {
	if path == "" {
		var err error
		if path, err = os.Getwd(); err != nil {
			return "", fmt.Errorf("failed to resolve working directory: %w", err)
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}
