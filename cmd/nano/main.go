// nano is a minimal coding agent: a model, a dozen tools, and a sandbox.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagModel   string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "nano [task...]",
	Short: "nano: a minimal coding agent",
	Long: `nano pairs a language model with a small set of developer tools (read,
edit, bash, ...) and runs them against the current directory. Without
arguments it starts an interactive session.`,
	Args:          cobra.ArbitraryArgs,
	RunE:          runRoot,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "model to use")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(runCmd, benchCmd, swebenchCmd)
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return runTask(cmd, args)
	}
	return runREPL(cmd, args)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
