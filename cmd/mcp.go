package cmd

import (
	"fmt"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/config"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/headless"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/logger"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/mcpserver"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the canvas tools over MCP on stdio",
	Long: `mcp exposes the node creation tools of one board to an MCP client.
Nodes created through it are saved like the ones created by chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		boardFlag(cmd, cfg)

		store, err := headless.OpenStore(cfg.Board)
		if err != nil {
			return fmt.Errorf("failed to open board store: %w", err)
		}
		ws, err := headless.OpenWorkspace(cmd.Context(), cfg, store)
		if err != nil {
			store.Close()
			return err
		}
		defer func() {
			if err := ws.Close(); err != nil {
				logger.Error("failed to close board: %v", err)
			}
		}()

		logger.Info("serving board %s over MCP stdio", ws.BoardID)
		return mcpserver.New(ws.Executor, ws.Model).ServeStdio()
	},
}

func init() {
	mcpCmd.Flags().StringP("board", "b", "", "board to edit (default from config)")
}
