package cmd

import (
	"os"
	"os/signal"
	"strings"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/config"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/headless"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [prompt]",
	Short: "Send one prompt and apply the tool calls to a board",
	Example: `  canvas chat -p "map out how TCP handshakes work"
  canvas chat --board physics --no-stream "explain entropy"`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringP("prompt", "p", "", "prompt to send")
	chatCmd.Flags().StringP("board", "b", "", "board to edit (default from config)")
	chatCmd.Flags().Bool("no-stream", false, "ask for the whole answer in one response")
	chatCmd.Flags().Bool("no-tools", false, "do not offer the canvas tools to the model")
	chatCmd.Flags().BoolP("verbose", "v", false, "print tool call arguments")
}

func runChat(cmd *cobra.Command, args []string) error {
	prompt, _ := cmd.Flags().GetString("prompt")
	if prompt == "" {
		prompt = strings.Join(args, " ")
	}

	cfg := config.Get()
	applyChatFlags(cmd, cfg)
	verbose, _ := cmd.Flags().GetBool("verbose")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	return headless.RunHeadless(ctx, cfg, prompt,
		headless.WithVerbose(verbose),
		headless.WithOutput(headless.NewOutputTo(cmd.OutOrStdout(), true)),
	)
}

func applyChatFlags(cmd *cobra.Command, cfg *config.Config) {
	boardFlag(cmd, cfg)
	if noStream, _ := cmd.Flags().GetBool("no-stream"); noStream {
		cfg.Streaming = false
	}
	if noTools, _ := cmd.Flags().GetBool("no-tools"); noTools {
		cfg.Tools.Enabled = false
	}
}
