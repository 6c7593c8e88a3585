package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/sigplace/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing tools to inspect PDF form fields and stamp signature images.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "sigplace MCP server started on stdio (density=%.1f px/pt)\n", cfg.EmbedDensity)

		srv := mcpserver.NewServer(cfg.EmbedDensity)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
