/*
Package main is the entry point for the "Is it true?" inline Telegram bot.

Usage:

	isittrue-bot [flags]
	isittrue-bot healthcheck [flags]

Without a subcommand the bot connects to Telegram and serves inline queries
until it receives SIGINT or SIGTERM.
*/
package main

import (
	"fmt"
	"os"

	"github.com/isittrue-tgbot-go/internal/config"
	"github.com/isittrue-tgbot-go/internal/services/responses"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	_ "time/tzdata"
)

// Version information (set via ldflags during build)
var version = "dev"

type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "isittrue-bot",
		Short: "Inline Telegram bot that answers \"Is it true?\"",
		Long: `isittrue-bot answers inline queries with a randomly weighted verdict.

Type @<bot username> in any chat, optionally followed by a claim, and pick
the "Is it true?" result to post a verdict. The bot also replies to
/start, /help and /stats in private chats.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return runBot(cmd.Context(), cfg)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "configs/config.yaml", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "Path to .env file")

	cmd.AddCommand(newHealthcheckCmd(opts))

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the optional .env file and then the configuration
func loadConfig(opts *rootOptions) (*config.Config, error) {
	if err := godotenv.Load(opts.envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s: %w", opts.envFile, err)
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// buildSelector loads the catalog and weight table from cfg
func buildSelector(cfg *config.Config) (*responses.Selector, error) {
	catalog, err := responses.LoadCatalog(cfg.Responses.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load response catalog: %w", err)
	}

	weights, err := cfg.Responses.CategoryWeights()
	if err != nil {
		return nil, err
	}

	return responses.NewSelector(catalog, weights, nil)
}
