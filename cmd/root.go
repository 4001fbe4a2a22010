package cmd

import (
	"fmt"
	"os"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/config"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "canvas",
	Short: "AI assistant for a visual note canvas",
	Long: `canvas streams answers from a language model and turns its tool calls
into nodes and edges on a persistent board.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./.canvas/settings.yaml)")

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().String("provider", "http", "model provider (http, langchain-openai, langchain-ollama)")
	viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))

	rootCmd.PersistentFlags().StringP("model", "m", "", "model name sent with every turn")
	viper.BindPFlag("endpoint.model", rootCmd.PersistentFlags().Lookup("model"))

	rootCmd.AddCommand(chatCmd, boardCmd, mcpCmd)
}

func initConfig() error {
	if _, err := config.Load(cfgFile); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(); err != nil {
		return err
	}
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("Using config file: %s", used)
	}
	return nil
}

// boardFlag applies --board to cfg when it was given.
func boardFlag(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("board") {
		cfg.Board.ID, _ = cmd.Flags().GetString("board")
	}
}
