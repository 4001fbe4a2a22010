package headless

import (
	"context"
	"fmt"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/config"
)

// RunHeadless executes a single prompt against the configured board.
// This is the main entry point for CLI execution.
func RunHeadless(ctx context.Context, cfg *config.Config, prompt string, opts ...Option) error {
	if prompt == "" {
		return ErrEmptyPrompt
	}

	runner, err := NewRunner(ctx, cfg, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize headless mode: %w", err)
	}

	_, runErr := runner.Run(ctx, prompt)

	if err := runner.Cleanup(); err != nil {
		log.Warn("cleanup error: %v", err)
	}
	if runErr != nil {
		return fmt.Errorf("failed to execute prompt: %w", runErr)
	}
	return nil
}
