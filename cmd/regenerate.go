package cmd

import (
	"context"
	"fmt"

	"github.com/meysamhadeli/codedoc/constants/lipgloss"
	"github.com/meysamhadeli/codedoc/utils"
	"github.com/spf13/cobra"
)

var regenerateCmd = &cobra.Command{
	Use:   "regenerate [path...]",
	Short: "Regenerate documentation regardless of detected changes",
	Long: `The 'regenerate' command summarizes files again even when their content did not change.
Without arguments every eligible file in the workspace is regenerated; with arguments only
the given files are.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		defer rootDependencies.Close()

		return handleRegenerateCommand(cmd.Context(), rootDependencies, args)
	},
}

func init() {
	rootCmd.AddCommand(regenerateCmd)
}

func handleRegenerateCommand(ctx context.Context, rootDependencies *RootDependencies, args []string) error {
	pipeline, err := rootDependencies.NewPipeline()
	if err != nil {
		return err
	}
	defer rootDependencies.StopPipeline(pipeline)

	var queued int
	if len(args) == 0 {
		if queued, err = pipeline.RegenerateAll(ctx); err != nil {
			return err
		}
	} else {
		for _, arg := range args {
			relPath, err := utils.NormalizePath(rootDependencies.Cwd, arg)
			if err != nil {
				return err
			}
			if !rootDependencies.Matcher.ShouldTrack(relPath) {
				fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("Skipping %s: ignored or not a tracked file type", relPath)))
				continue
			}
			if pipeline.Enqueue(relPath) {
				queued++
			}
		}
	}

	if queued == 0 {
		fmt.Println(lipgloss.Yellow.Render("Nothing to regenerate."))
		return nil
	}

	spinnerInstance, _ := newSpinner().Start(fmt.Sprintf("Regenerating documentation for %s...", pluralize(queued, "file")))
	waitErr := pipeline.WaitIdle(ctx)
	stopSpinner(spinnerInstance)

	stats := pipeline.Stats()
	printGenerationStats(stats.Generated, stats.Failed, stats.Removed)
	rootDependencies.DisplayTokens()

	if waitErr != nil {
		fmt.Println(lipgloss.Yellow.Render("Regeneration interrupted."))
	}
	return nil
}
