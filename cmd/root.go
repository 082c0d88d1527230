package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/meysamhadeli/codedoc/code_analyzer"
	"github.com/meysamhadeli/codedoc/config"
	"github.com/meysamhadeli/codedoc/constants/lipgloss"
	documentation "github.com/meysamhadeli/codedoc/documentation"
	"github.com/meysamhadeli/codedoc/generation"
	"github.com/meysamhadeli/codedoc/logger"
	"github.com/meysamhadeli/codedoc/providers"
	"github.com/meysamhadeli/codedoc/token_management"
	"github.com/meysamhadeli/codedoc/token_management/contracts"
	"github.com/meysamhadeli/codedoc/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// RootDependencies holds everything a subcommand needs, built once per invocation.
type RootDependencies struct {
	Cwd             string
	Config          *config.Config
	Logger          *slog.Logger
	Matcher         *utils.IgnoreMatcher
	Analyzer        *code_analyzer.CodeAnalyzer
	Store           *documentation.Store
	TokenManagement contracts.ITokenManagement
}

var rootCmd = &cobra.Command{
	Use:   "codedoc",
	Short: "Incrementally index a source tree and keep per-file documentation up to date.",
	Long: `codedoc scans a workspace, detects changed files by content hash, extracts their
structure (classes, methods, functions) and writes a short summary of each file with the
configured AI provider. Documentation is kept in the output directory as JSON and Markdown.`,
	Version:       config.DefaultConfig.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	config.InitFlags(rootCmd)
	rootCmd.PersistentFlags().StringP("workspace", "w", "", "Workspace root to index. Defaults to the current directory.")
}

// Execute runs the root command until it returns or SIGINT/SIGTERM cancels it.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}

func handleRootCommand(cmd *cobra.Command) (*RootDependencies, error) {
	workspace, _ := cmd.Flags().GetString("workspace")
	cwd, err := config.WorkingDirectory(workspace)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfigs(cmd, cwd)
	if err != nil {
		return nil, err
	}

	return buildDependencies(cwd, cfg, logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat))
}

func buildDependencies(cwd string, cfg *config.Config, log *slog.Logger) (*RootDependencies, error) {
	patterns := append(outputIgnorePatterns(cwd, cfg.OutputDir), cfg.IgnorePatterns...)
	matcher, err := utils.NewIgnoreMatcher(cwd, patterns, cfg.ImportantExtensions)
	if err != nil {
		return nil, fmt.Errorf("failed to load ignore rules: %w", err)
	}

	analyzer, err := code_analyzer.NewCodeAnalyzer(cwd, code_analyzer.AnalyzerOptions{
		CacheDir:      cfg.OutputDir,
		MaxParseBytes: cfg.MaxParseBytes,
		Matcher:       matcher,
		Logger:        log,
	})
	if err != nil {
		return nil, err
	}

	store := documentation.NewStore(cfg.OutputDir, documentation.StoreOptions{
		SaveDebounce: cfg.Store.SaveDebounce,
		Logger:       log,
	})
	if err := store.Load(); err != nil {
		return nil, err
	}

	log.Debug("dependencies ready", "workspace", cwd, "output_dir", cfg.OutputDir, "config_file", cfg.ConfigFile,
		"ignore_patterns", len(matcher.Patterns()))

	return &RootDependencies{
		Cwd:             cwd,
		Config:          cfg,
		Logger:          log,
		Matcher:         matcher,
		Analyzer:        analyzer,
		Store:           store,
		TokenManagement: token_management.NewTokenManager(),
	}, nil
}

// outputIgnorePatterns keeps a custom output directory inside the workspace out of the index.
func outputIgnorePatterns(cwd string, outputDir string) []string {
	rel, err := utils.NormalizePath(cwd, outputDir)
	if err != nil || rel == "" {
		return nil
	}
	return []string{"/" + rel}
}

// NewPipeline builds the summary provider and the generation pipeline over the store.
// The provider is only constructed here so commands that never generate need no credentials.
func (deps *RootDependencies) NewPipeline() (*generation.Pipeline, error) {
	provider, err := providers.ProviderFactory(deps.Config.AIProviderConfig, deps.TokenManagement)
	if err != nil {
		return nil, err
	}

	generator := generation.NewSummaryGenerator(provider, deps.TokenManagement, deps.Config.Generation.MaxInputTokens)
	return generation.NewPipeline(deps.Cwd, deps.Store, generator, deps.Analyzer, generation.PipelineOptions{
		Concurrency: deps.Config.Generation.Concurrency,
		Timeout:     deps.Config.Generation.Timeout,
		Logger:      deps.Logger,
		Eligible:    deps.Matcher.ShouldTrack,
	}), nil
}

// StopPipeline drains the pipeline within the configured grace period.
func (deps *RootDependencies) StopPipeline(pipeline *generation.Pipeline) {
	if err := pipeline.Stop(deps.Config.Generation.ShutdownGrace); err != nil {
		deps.Logger.Error("failed to stop generation pipeline", "error", err)
	}
}

// Close persists the documentation store.
func (deps *RootDependencies) Close() {
	if err := deps.Store.Close(); err != nil {
		deps.Logger.Error("failed to persist documentation", "error", err)
	}
}

// DisplayTokens prints the token usage box for the configured provider.
func (deps *RootDependencies) DisplayTokens() {
	total, _, _ := deps.TokenManagement.GetCurrentTokenUsage()
	if total == 0 {
		return
	}
	deps.TokenManagement.DisplayTokens(os.Stdout, deps.Config.AIProviderConfig.Provider, deps.Config.AIProviderConfig.Model)
}

func newSpinner() *pterm.SpinnerPrinter {
	return pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100 * time.Millisecond).WithRemoveWhenDone(true)
}

func stopSpinner(spinnerInstance *pterm.SpinnerPrinter) {
	if spinnerInstance == nil {
		return
	}
	_ = spinnerInstance.Stop()
	fmt.Print("\r")
}

func pluralize(count int, word string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, word)
	}
	return fmt.Sprintf("%d %ss", count, word)
}

func formatPathList(paths []string, limit int) string {
	if len(paths) <= limit {
		return strings.Join(paths, "\n")
	}
	return strings.Join(paths[:limit], "\n") + fmt.Sprintf("\n... and %d more", len(paths)-limit)
}

// relativeOutputDir is the output directory as shown to the user.
func relativeOutputDir(deps *RootDependencies) string {
	if rel, err := filepath.Rel(deps.Cwd, deps.Config.OutputDir); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return deps.Config.OutputDir
}
