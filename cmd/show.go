package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/meysamhadeli/codedoc/utils"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Print the stored documentation of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")

		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}

		return handleShowCommand(cmd.Context(), rootDependencies, args[0], raw)
	},
}

func init() {
	showCmd.Flags().Bool("raw", false, "Print the Markdown without syntax highlighting")
	rootCmd.AddCommand(showCmd)
}

func handleShowCommand(ctx context.Context, rootDependencies *RootDependencies, path string, raw bool) error {
	relPath, err := utils.NormalizePath(rootDependencies.Cwd, path)
	if err != nil {
		return err
	}
	if _, ok := rootDependencies.Store.Get(relPath); !ok {
		return fmt.Errorf("no documentation for %s in %s, run 'codedoc scan --generate' first", relPath, relativeOutputDir(rootDependencies))
	}

	content, err := os.ReadFile(rootDependencies.Store.ArtifactPath(relPath))
	if err != nil {
		return fmt.Errorf("failed to read documentation of %s: %w", relPath, err)
	}

	if raw {
		_, err = os.Stdout.Write(content)
		return err
	}
	return utils.RenderMarkdown(ctx, os.Stdout, string(content), rootDependencies.Config.Theme)
}
