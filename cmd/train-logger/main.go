// Command train-logger runs the train detection daemon and the
// inspection tools for its storage regions.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trackside/train-logger/internal/config"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "train-logger",
		Short: "Train detection event logger",
		Long: "train-logger detects train passes on a trackside sensor and\n" +
			"timestamps them into persistent byte-addressable storage. The run\n" +
			"subcommand is the daemon; the rest inspect or maintain a region.",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "Path to config file (JSON or YAML)")

	root.AddCommand(newRunCommand())
	root.AddCommand(newDumpCommand())
	root.AddCommand(newReadCommand())
	root.AddCommand(newEraseCommand())
	root.AddCommand(newConsoleCommand())
	root.AddCommand(newJournalCommand())
	root.AddCommand(newVersionCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the configuration for a subcommand from the
// persistent --config flag, the environment, and defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("train-logger %s\n", version)
		},
	}
}
