package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the optionscan CLI.
var rootCmd = &cobra.Command{
	Use:   "optionscan",
	Short: "Options strategy scanner and risk/return ranker",
	Long: `optionscan evaluates multi-leg option strategies against Monte Carlo
terminal-price distributions, scores them with per-strategy weight
tables, and ranks the survivors of the hard filters.

Every exclusion is recorded with its reason; a candidate that fails to
evaluate is reported as errored, never silently dropped.`,
}

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
}

// newLogger builds the console logger shared by all commands.
func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
