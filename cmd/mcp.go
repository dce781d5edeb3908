package cmd

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kayz/inkwright/internal/tools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the project over MCP on stdio",
	Long: `Run an MCP server on stdin/stdout so an external assistant can browse
chapters, render prompts, and trigger summarization runs.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	w, err := openWorkspace()
	if err != nil {
		return err
	}
	defer w.Close()

	orch, err := w.orchestrator(nil)
	if err != nil {
		return err
	}

	s := server.NewMCPServer(
		"inkwright",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	tools.New(w.store, w.scenes, w.registry, orch).Register(s)

	return server.ServeStdio(s)
}
