package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
	"github.com/cashflow-ai/cashflow-backend/internal/parser"
)

var (
	parseSender  string
	parseSubject string
	parseFile    string
	parseDate    string
	parseEmailID string
)

func init() {
	parseCmd.Flags().StringVar(&parseSender, "sender", "", "sender (From header) of the message")
	parseCmd.Flags().StringVar(&parseSubject, "subject", "", "subject of the message")
	parseCmd.Flags().StringVar(&parseFile, "file", "", "file holding the plain-text body (default: stdin)")
	parseCmd.Flags().StringVar(&parseDate, "date", "", "message date in RFC 3339 (default: now)")
	parseCmd.Flags().StringVar(&parseEmailID, "email-id", "", "identifier copied into the transaction")
	_ = parseCmd.MarkFlagRequired("sender")
}

// parseCmd runs the engine on one message body
var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse a single message body",
	Long: `Parse a single plain-text message body and print the transaction as JSON,
or null when the message yields none.

Examples:
  # Parse a body from a file
  cashflow parse --sender CBE --file alert.txt

  # Parse from stdin with a fixed date
  pbpaste | cashflow parse --sender 127 --date 2025-03-14T09:26:53+03:00`,
	Args: cobra.NoArgs,
	RunE: runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	var body []byte
	var err error

	if parseFile == "" || parseFile == "-" {
		body, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		body, err = os.ReadFile(parseFile)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", parseFile, err)
		}
	}

	date := time.Now().UTC()
	if parseDate != "" {
		date, err = time.Parse(time.RFC3339, parseDate)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", parseDate, err)
		}
	}

	res := parser.New(nil).Evaluate(domain.RawMessage{
		ID:      parseEmailID,
		Sender:  parseSender,
		Subject: parseSubject,
		Body:    string(body),
		Date:    date,
	})

	return printResult(cmd.OutOrStdout(), res)
}
