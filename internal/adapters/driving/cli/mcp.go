package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/curator/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants.

Use --port to start an HTTP server instead, which enables:
  - Testing with MCP Inspector web UI
  - Remote access via HTTP

Examples:
  # Stdio mode (default, for Claude Desktop)
  curator mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  curator mcp serve --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "curator": {
        "command": "/path/to/curator",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Search:   searchService,
		Feedback: feedbackService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	ctx := cmd.Context()
	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		cmd.Printf("Starting MCP server on %s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
