// CLAI runs commands in sandboxed directory copies with
// review-before-apply.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "clai",
	Short: "CLAI runs commands in a sandboxed copy of your directory.",
	Long: `CLAI clones your working directory into an isolated sandbox, runs
commands inside the copy, and shows you exactly which files changed.
Nothing touches your real files until you approve the change-set;
discarding leaves the original directory byte-identical.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(runCmd, planCmd, sessionCmd, initCmd, versionCmd)
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
