package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/meysamhadeli/codedoc/constants/lipgloss"
	"github.com/spf13/cobra"
)

// resetCacheCmd represents the reset-cache command
var resetCacheCmd = &cobra.Command{
	Use:   "reset-cache",
	Short: "Reset the scan cache of the workspace",
	Long: `The 'reset-cache' command removes the scan cache and the directory tree snapshot from the
output directory, so the next scan hashes and parses every file again. Generated documentation
is kept unless --all is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		stats, _ := cmd.Flags().GetBool("stats")
		all, _ := cmd.Flags().GetBool("all")

		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}

		return handleResetCacheCommand(rootDependencies, force, stats, all)
	},
}

func init() {
	resetCacheCmd.Flags().BoolP("force", "f", false, "Force cache reset without confirmation")
	resetCacheCmd.Flags().BoolP("stats", "s", false, "Show cache statistics instead of resetting")
	resetCacheCmd.Flags().BoolP("all", "a", false, "Also delete the generated documentation")

	rootCmd.AddCommand(resetCacheCmd)
}

func handleResetCacheCommand(rootDependencies *RootDependencies, force bool, showStats bool, all bool) error {
	if showStats {
		printCacheStats(rootDependencies)
		return nil
	}

	if !force {
		question := fmt.Sprintf("Reset the scan cache in %s?", relativeOutputDir(rootDependencies))
		if all {
			question = fmt.Sprintf("Reset the scan cache and delete all documentation in %s?", relativeOutputDir(rootDependencies))
		}
		if !confirm(question) {
			fmt.Println(lipgloss.Yellow.Render("Cache reset cancelled."))
			return nil
		}
	}

	spinnerInstance, _ := newSpinner().Start("Resetting project cache...")

	if err := rootDependencies.Analyzer.ClearCache(); err != nil {
		stopSpinner(spinnerInstance)
		return fmt.Errorf("error resetting cache: %w", err)
	}
	if all {
		if err := rootDependencies.Store.Reset(); err != nil {
			stopSpinner(spinnerInstance)
			return fmt.Errorf("error deleting documentation: %w", err)
		}
	}

	stopSpinner(spinnerInstance)
	if all {
		fmt.Println(lipgloss.Green.Render("✓ Scan cache and documentation have been reset."))
	} else {
		fmt.Println(lipgloss.Green.Render("✓ Scan cache has been reset."))
	}
	return nil
}

func printCacheStats(rootDependencies *RootDependencies) {
	fmt.Println(lipgloss.Info.Render("Cache Statistics:"))

	cacheStats, err := rootDependencies.Analyzer.GetCacheStats()
	if err != nil {
		fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("Warning: Could not show statistics: %v", err)))
		return
	}

	if dir, ok := cacheStats["cache_dir"].(string); ok {
		fmt.Printf("  Cache Directory: %s\n", dir)
	}
	if files, ok := cacheStats["cache_files"].(int); ok {
		fmt.Printf("  Cache Files: %d\n", files)
	}
	if tracked, ok := cacheStats["tracked_files"].(int); ok {
		fmt.Printf("  Tracked Files: %d\n", tracked)
	}
	if size, ok := cacheStats["total_size"].(int64); ok {
		fmt.Printf("  Total Size: %.2f KB\n", float64(size)/1024)
	}
	fmt.Printf("  Documented Files: %d\n", rootDependencies.Store.Len())
}

func confirm(question string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("%s (y/N): ", question)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
