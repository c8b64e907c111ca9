// Package cli defines the Cobra command tree for the membot binary.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// version, commit, date are set via -ldflags at build time.
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "membot",
	Short: "Chat server with a persistent long-term memory",
	Long: `Membot is a self-hosted chat server that remembers.

Every reply it streams to the browser carries a hidden directive tail that
lets the model edit its own long-term memory and keep a rolling summary of
the conversation. Run 'membot serve' and open the printed address.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute(v, c, d string) {
	version, commit, date = v, c, d
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(
		newServeCmd(),
		newMemoryCmd(),
		newSessionsCmd(),
		newVersionCmd(),
	)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("membot %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
