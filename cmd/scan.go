package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/meysamhadeli/codedoc/code_analyzer"
	"github.com/meysamhadeli/codedoc/constants/lipgloss"
	"github.com/meysamhadeli/codedoc/utils"
	"github.com/spf13/cobra"
)

const maxListedPaths = 20

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the workspace once and report changed files",
	Long: `The 'scan' command hashes every eligible file, merges the result into the cached
directory tree and prints which files changed or disappeared since the previous scan.
With --generate the changed files, and any file whose documentation is missing or was
written for older content, are summarized before the command exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		generate, _ := cmd.Flags().GetBool("generate")

		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		defer rootDependencies.Close()

		return handleScanCommand(cmd.Context(), rootDependencies, generate)
	},
}

func init() {
	scanCmd.Flags().BoolP("generate", "g", false, "Generate documentation for changed, undocumented and stale files")
	rootCmd.AddCommand(scanCmd)
}

func handleScanCommand(ctx context.Context, rootDependencies *RootDependencies, generate bool) error {
	result, err := runScan(ctx, rootDependencies)
	if err != nil {
		return err
	}
	printScanResult(result)

	if !generate {
		return nil
	}

	targets, err := documentationTargets(ctx, rootDependencies, result.Changed)
	if err != nil {
		return err
	}
	return generateAndWait(ctx, rootDependencies, targets)
}

// runScan performs one scan pass and forgets documentation of files that disappeared.
func runScan(ctx context.Context, rootDependencies *RootDependencies) (*code_analyzer.ScanResult, error) {
	spinnerInstance, _ := newSpinner().Start("Scanning workspace...")
	result, err := rootDependencies.Analyzer.Scan(ctx)
	stopSpinner(spinnerInstance)
	if err != nil {
		return nil, err
	}

	for _, relPath := range result.Removed {
		if _, err := rootDependencies.Store.Remove(relPath); err != nil {
			rootDependencies.Logger.Warn("failed to remove documentation", "path", relPath, "error", err)
		}
	}
	return result, nil
}

// documentationTargets adds every tracked file whose documentation is missing or was written
// for different content to changed.
func documentationTargets(ctx context.Context, rootDependencies *RootDependencies, changed []string) ([]string, error) {
	files, err := rootDependencies.Analyzer.ListFiles(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(changed))
	targets := make([]string, 0, len(changed))
	for _, relPath := range changed {
		seen[relPath] = struct{}{}
		targets = append(targets, relPath)
	}
	for _, relPath := range files {
		if _, ok := seen[relPath]; ok {
			continue
		}
		doc, ok := rootDependencies.Store.Get(relPath)
		if !ok {
			targets = append(targets, relPath)
			continue
		}
		hash, err := code_analyzer.HashFile(utils.AbsolutePath(rootDependencies.Cwd, relPath))
		if err == nil && doc.ContentHash != "" && doc.ContentHash != hash {
			targets = append(targets, relPath)
		}
	}
	return targets, nil
}

// generateAndWait runs targets through a fresh pipeline and waits for the queue to empty.
// Cancellation stops the pipeline within the shutdown grace period.
func generateAndWait(ctx context.Context, rootDependencies *RootDependencies, targets []string) error {
	if len(targets) == 0 {
		fmt.Println(lipgloss.Green.Render("✓ Documentation is up to date."))
		return nil
	}

	pipeline, err := rootDependencies.NewPipeline()
	if err != nil {
		return err
	}

	pipeline.EnqueueAll(targets)
	spinnerInstance, _ := newSpinner().Start(fmt.Sprintf("Generating documentation for %s...", pluralize(len(targets), "file")))
	waitErr := pipeline.WaitIdle(ctx)
	stopSpinner(spinnerInstance)

	rootDependencies.StopPipeline(pipeline)
	stats := pipeline.Stats()
	printGenerationStats(stats.Generated, stats.Failed, stats.Removed)
	rootDependencies.DisplayTokens()

	if waitErr != nil {
		fmt.Println(lipgloss.Yellow.Render("Generation interrupted. Run 'codedoc scan --generate' to document the remaining files."))
	}
	return nil
}

func printScanResult(result *code_analyzer.ScanResult) {
	summary := fmt.Sprintf("Tracked: %d  Changed: %d  Re-parsed: %d  Removed: %d  (%s)",
		result.Tracked, len(result.Changed), len(result.Diff), len(result.Removed), result.Duration.Round(time.Millisecond))
	fmt.Println(lipgloss.BoxStyle.Render(summary))

	if len(result.Changed) > 0 {
		fmt.Println(lipgloss.Info.Render("Changed files:"))
		fmt.Println(lipgloss.Gray.Render(formatPathList(result.Changed, maxListedPaths)))
	}
	if len(result.Removed) > 0 {
		fmt.Println(lipgloss.Info.Render("Removed files:"))
		fmt.Println(lipgloss.Gray.Render(formatPathList(result.Removed, maxListedPaths)))
	}
}

func printGenerationStats(generated int64, failed int64, removed int64) {
	line := fmt.Sprintf("Generated: %d  Failed: %d  Removed: %d", generated, failed, removed)
	if failed > 0 {
		fmt.Println(lipgloss.Yellow.Render(line))
		return
	}
	fmt.Println(lipgloss.Green.Render(line))
}
