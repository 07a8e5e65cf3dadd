// Package main implements the cashflow CLI for running the parser and
// mailbox sync by hand.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cashflow-ai/cashflow-backend/internal/parser"
)

var (
	// configPath is the optional YAML config file
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cashflow",
	Short: "Parse bank alert emails into transactions",
	Long: `cashflow runs the bank alert parser against single messages, a mailbox,
or raw messages archived in Cloud Storage.

Configuration is read from --config (YAML) and CASHFLOW_* environment
variables.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CASHFLOW_CONFIG"), "path to a YAML config file")
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(testConnectionCmd)
	rootCmd.AddCommand(replayCmd)
}

// printResult writes the engine outcome as JSON: the transaction map, or
// null when the message yields none.
func printResult(w io.Writer, res parser.Result) error {
	var out interface{}
	if res.Transaction != nil {
		out = res.Transaction.ToMap()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
