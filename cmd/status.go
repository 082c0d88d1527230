package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meysamhadeli/codedoc/constants/lipgloss"
	"github.com/meysamhadeli/codedoc/utils"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what changed since the last scan without writing anything",
	Long: `The 'status' command compares the workspace with the scan cache and, inside a git
repository, with 'git status'. Nothing is written: the cache, the tree snapshot and the
documentation stay untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}

		return handleStatusCommand(cmd.Context(), rootDependencies)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func handleStatusCommand(ctx context.Context, rootDependencies *RootDependencies) error {
	pending, err := rootDependencies.Analyzer.PendingChanges(ctx)
	if err != nil {
		return err
	}

	lines := []string{
		fmt.Sprintf("Workspace: %s", rootDependencies.Cwd),
		fmt.Sprintf("Documented files: %d", rootDependencies.Store.Len()),
		fmt.Sprintf("Pending changes: %d", len(pending)),
	}
	if lastUpdated := rootDependencies.Store.LastUpdated(); !lastUpdated.IsZero() {
		lines = append(lines, fmt.Sprintf("Last updated: %s", lastUpdated.Local().Format(time.RFC1123)))
	}
	fmt.Println(lipgloss.BoxStyle.Render(strings.Join(lines, "\n")))

	if len(pending) > 0 {
		fmt.Println(lipgloss.Info.Render("Changed since last scan:"))
		fmt.Println(lipgloss.Gray.Render(formatPathList(pending, maxListedPaths)))
	}

	gitOperations := utils.NewGitOperations(rootDependencies.Cwd)
	vcsStatus, err := gitOperations.ChangedFiles(ctx)
	if err != nil {
		rootDependencies.Logger.Debug("git status unavailable", "error", err)
		return nil
	}

	var tracked []string
	for _, relPath := range vcsStatus.Changed() {
		if rootDependencies.Matcher.ShouldTrack(relPath) {
			tracked = append(tracked, relPath)
		}
	}
	var deleted []string
	for _, relPath := range vcsStatus.Deleted {
		if _, ok := rootDependencies.Store.Get(relPath); ok {
			deleted = append(deleted, relPath)
		}
	}

	if len(tracked) > 0 {
		fmt.Println(lipgloss.Info.Render("Changed according to git:"))
		fmt.Println(lipgloss.Gray.Render(formatPathList(tracked, maxListedPaths)))
	}
	if len(deleted) > 0 {
		fmt.Println(lipgloss.Info.Render("Deleted but still documented:"))
		fmt.Println(lipgloss.Gray.Render(formatPathList(deleted, maxListedPaths)))
	}
	return nil
}
