// Package cmd implements the airi command line interface.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/airi-ai/airi/internal/app"
	"github.com/airi-ai/airi/internal/config"
	"github.com/airi-ai/airi/internal/log"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "airi",
	Short: "Airi - a conversational AI companion for your terminal",
	Long: `Airi is a conversational AI companion with long-term memory.

It remembers facts about you, retrieves them when relevant, and can
augment its answers with live web search. Running airi without a
subcommand starts an interactive chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newLogger builds the process logger from the verbose flag.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// withApp loads configuration, assembles the application and runs fn with a
// signal-aware context. Resources are released when fn returns.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Setup(ctx, cfg, newLogger())
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
