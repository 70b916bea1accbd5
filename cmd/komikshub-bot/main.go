package main

import (
	"os"

	"github.com/spf13/cobra"
)

// options holds the global flags shared by every command
type options struct {
	configPath string
	mode       string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "komikshub-bot",
		Short: "Telegram bot for the KomiksHub comic character catalog",
		Long: `komikshub-bot answers Telegram users with comic character cards.

Users search the catalog with fuzzy queries, pick a random character or
vote in a crossover duel. Admins add characters through a guided dialogue.

Run without a subcommand to start the bot.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&opts.mode, "mode", "", "Override bot.mode (polling, webhook, stdio)")

	root.AddCommand(
		newServeCmd(opts),
		newSeedCmd(opts),
		newSearchCmd(opts),
		newStatsCmd(opts),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
