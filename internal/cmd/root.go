// Package cmd wires the signalbox command line interface.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "signalbox",
	Short: "Voice command interpretation daemon",
	Long: `Signalbox turns transcribed voice utterances into validated, executed
application commands. It classifies intent, extracts typed entities, boosts
confidence from application context and conversation history, and runs the
matched command, returning a structured result to the caller.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (e.g. configs/signalbox.yaml)")
}
