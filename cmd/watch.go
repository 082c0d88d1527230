package cmd

import (
	"context"
	"fmt"

	"github.com/meysamhadeli/codedoc/constants/lipgloss"
	"github.com/meysamhadeli/codedoc/file_watcher"
	"github.com/meysamhadeli/codedoc/generation"
	"github.com/meysamhadeli/codedoc/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep documentation up to date while files change",
	Long: `The 'watch' command scans the workspace, documents changed files and then watches the
tree. Added or modified files are summarized after a quiet period, deleted files lose their
documentation immediately. Press Ctrl+C to stop; in-flight generations get a grace period to
finish before the store is flushed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		defer rootDependencies.Close()

		return handleWatchCommand(cmd.Context(), rootDependencies)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func handleWatchCommand(ctx context.Context, rootDependencies *RootDependencies) error {
	pipeline, err := rootDependencies.NewPipeline()
	if err != nil {
		return err
	}
	defer func() {
		rootDependencies.StopPipeline(pipeline)
		stats := pipeline.Stats()
		printGenerationStats(stats.Generated, stats.Failed, stats.Removed)
		rootDependencies.DisplayTokens()
	}()

	result, err := runScan(ctx, rootDependencies)
	if err != nil {
		return err
	}
	printScanResult(result)

	targets, err := documentationTargets(ctx, rootDependencies, result.Changed)
	if err != nil {
		return err
	}
	pipeline.EnqueueAll(targets)

	return runWatcher(ctx, rootDependencies, pipeline)
}

func runWatcher(ctx context.Context, rootDependencies *RootDependencies, pipeline *generation.Pipeline) error {
	skipDir := func(absPath string) bool {
		relPath, err := utils.NormalizePath(rootDependencies.Cwd, absPath)
		if err != nil {
			return true
		}
		return rootDependencies.Matcher.IsIgnored(relPath, true)
	}

	source, err := file_watcher.NewFSNotifySource(rootDependencies.Cwd, skipDir, rootDependencies.Logger)
	if err != nil {
		return err
	}
	defer source.Close()

	watcher := file_watcher.NewWatcher(rootDependencies.Cwd, source, rootDependencies.Matcher, pipeline, file_watcher.WatcherOptions{
		Debounce: rootDependencies.Config.Watch.Debounce,
		Logger:   rootDependencies.Logger,
	})

	fmt.Println(lipgloss.Info.Render(fmt.Sprintf("Watching %s (Ctrl+C to stop)", rootDependencies.Cwd)))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		defer cancel()
		return watcher.Run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		return source.Close()
	})

	err = group.Wait()
	fmt.Println(lipgloss.Yellow.Render("\nStopping watcher..."))
	return err
}
