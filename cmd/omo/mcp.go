package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unowned-ai/omo/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Omo MCP server (stdio)",
	Long: `Start a Model Context Protocol (MCP) server that exposes the dream journal
(entries, patterns, pattern links and the debug snapshot) as MCP tools via STDIO.

Logs go to stderr so the JSON-RPC stream on stdout stays clean.

Example:
  omo mcp
  omo mcp --db /path/to/dreams.db --log-level info`,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := mcp.NewOmoMCPServer(cfg.DB.Path, cfg.DB.WAL, cfg.DB.Sync, logger)
		if err != nil {
			return err
		}
		defer srv.Close()

		tools := srv.RegisterTools()
		logger.Info("omo MCP server started",
			zap.String("db", srv.DbPath),
			zap.Bool("wal", cfg.DB.WAL),
			zap.String("sync", cfg.DB.Sync),
			zap.Strings("tools", tools),
		)

		return srv.Start()
	},
}
