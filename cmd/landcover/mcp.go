package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/landcover-mcp/internal/server"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the raster tools over MCP on stdin/stdout",
	Long: "Speaks JSON-RPC 2.0 on stdin/stdout for MCP clients. Logs go to stderr. " +
		"The loaded configuration supplies the defaults for landcover_run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		server.Version = Version
		zap.L().Info("landcover MCP server starting",
			zap.String("version", Version),
			zap.String("build_time", BuildTime),
			zap.String("commit", GitCommit),
		)
		return server.New(cfg).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
