package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flickpay/flickpos/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve kiosk diagnostics over MCP (stdio)",
	Long: `Start a Model Context Protocol server on stdin/stdout.

The tools talk to the running kiosk over its control socket: status,
displays, the log, reload, rebuild, opening settings and quitting.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return mcp.NewServer(newClient(), version, logger).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
