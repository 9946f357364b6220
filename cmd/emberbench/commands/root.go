package commands

import (
	"os"

	"github.com/btcsuite/btclog/v2"
	"github.com/spf13/cobra"

	"github.com/roasbeef/ember"
)

var (
	// maxActors bounds the loop's actor table for this run.
	maxActors int

	// mailboxCap overrides the default mailbox capacity.
	mailboxCap int

	// verbose enables debug-level logging from the runtime.
	verbose bool
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "emberbench",
	Short: "A reference host for the ember actor runtime",
	Long: `emberbench embeds the ember runtime the way a real host would:
it spawns actors, drives the loop, and reports what happened.

It exists for manual exploration and load generation against the
runtime; it is not part of the library itself.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			handler := btclog.NewDefaultHandler(os.Stderr)
			ember.UseLogger(btclog.NewSLogger(handler))
		}
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().IntVar(
		&maxActors, "max-actors", ember.DefaultMaxActors,
		"Maximum number of live actors the loop will accept",
	)
	rootCmd.PersistentFlags().IntVar(
		&mailboxCap, "mailbox-cap", ember.DefaultMailboxCapacity,
		"Mailbox ring-buffer capacity for spawned actors",
	)
	rootCmd.PersistentFlags().BoolVar(
		&verbose, "verbose", false,
		"Enable debug-level runtime logging to stderr",
	)

	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(spawnCmd)
	rootCmd.AddCommand(versionCmd)
}

func baseConfig() ember.Config {
	cfg := ember.DefaultConfig()
	cfg.MaxActors = maxActors
	cfg.DefaultMailboxCap = mailboxCap
	return cfg
}
