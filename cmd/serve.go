package cmd

import (
	"context"

	"github.com/meysamhadeli/codedoc/mcp_server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the documentation to MCP clients over stdio",
	Long: `The 'serve' command starts a Model Context Protocol server on stdin/stdout. Clients can
read file documentation and structure, list documented files and request regeneration.
Logs go to stderr so stdout stays reserved for the protocol.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		readOnly, _ := cmd.Flags().GetBool("read-only")

		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		defer rootDependencies.Close()

		return handleServeCommand(cmd.Context(), rootDependencies, readOnly)
	},
}

func init() {
	serveCmd.Flags().Bool("read-only", false, "Disable the regenerate_documentation tool and never call the AI provider")
	rootCmd.AddCommand(serveCmd)
}

func handleServeCommand(ctx context.Context, rootDependencies *RootDependencies, readOnly bool) error {
	var regenerator mcp_server.Regenerator
	if !readOnly {
		pipeline, err := rootDependencies.NewPipeline()
		if err != nil {
			return err
		}
		defer rootDependencies.StopPipeline(pipeline)
		regenerator = pipeline
	}

	server := mcp_server.NewServer(rootDependencies.Cwd, rootDependencies.Store, rootDependencies.Analyzer, regenerator, rootDependencies.Matcher, rootDependencies.Logger)
	return server.Serve(ctx)
}
