package cmd

import (
	"fmt"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/board"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/config"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/headless"
	"github.com/spf13/cobra"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Inspect stored boards",
}

var boardShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print the nodes and edges of a board as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		id := cfg.Board.ID
		if len(args) == 1 {
			id = args[0]
		}
		plain, _ := cmd.Flags().GetBool("plain")

		store, err := headless.OpenStore(cfg.Board)
		if err != nil {
			return fmt.Errorf("failed to open board store: %w", err)
		}
		defer store.Close()

		b, err := board.NewLoader(store, board.NewCache(cfg.Board.CacheTTL)).Load(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to load board %s: %w", id, err)
		}
		return headless.NewOutputTo(cmd.OutOrStdout(), !plain).JSON(b)
	},
}

func init() {
	boardShowCmd.Flags().Bool("plain", false, "print JSON without colors")
	boardCmd.AddCommand(boardShowCmd)
}
