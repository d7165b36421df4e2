// Command statutes manages the vector stores behind the statute bot.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ezqanoon/statute-bot/internal/assistant"
	"github.com/ezqanoon/statute-bot/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "statutes",
	Short:         "Manage statute vector stores",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelInfo
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openAIClient builds the hosted model client from the environment.
func openAIClient() (*assistant.OpenAIClient, *config.OpenAIConfig, error) {
	cfg, err := config.LoadOpenAI()
	if err != nil {
		return nil, nil, err
	}
	client, err := assistant.NewOpenAIClient(assistant.OpenAIConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
	}, slog.Default())
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}
