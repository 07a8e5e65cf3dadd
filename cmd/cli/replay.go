package main

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cashflow-ai/cashflow-backend/internal/gcsuploader"
	"github.com/cashflow-ai/cashflow-backend/internal/mailbox"
	"github.com/cashflow-ai/cashflow-backend/internal/parser"
)

var (
	replayGCSURI string
	replayFile   string
)

func init() {
	replayCmd.Flags().StringVar(&replayGCSURI, "gcs-uri", "", "archived message, gs://bucket/object.eml")
	replayCmd.Flags().StringVar(&replayFile, "file", "", "local RFC 822 message (.eml)")
	replayCmd.MarkFlagsMutuallyExclusive("gcs-uri", "file")
}

// replayCmd re-parses an archived raw message
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-parse an archived raw message",
	Long: `Decode an archived RFC 822 message and run the parser on it, printing the
transaction as JSON or null.

Examples:
  cashflow replay --gcs-uri gs://cashflow-raw/raw-messages/2025/03/14/4711.eml
  cashflow replay --file 4711.eml`,
	Args: cobra.NoArgs,
	RunE: runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	var raw []byte
	var id string
	var err error

	switch {
	case replayGCSURI != "":
		raw, err = gcsuploader.FetchFromGCS(cmd.Context(), replayGCSURI)
		if err != nil {
			return err
		}
		id = messageID(path.Base(replayGCSURI))
	case replayFile != "":
		raw, err = os.ReadFile(replayFile)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", replayFile, err)
		}
		id = messageID(filepath.Base(replayFile))
	default:
		return errors.New("one of --gcs-uri or --file is required")
	}

	msg, err := mailbox.ParseRFC822(id, raw, time.Now().UTC())
	if err != nil {
		return err
	}

	return printResult(cmd.OutOrStdout(), parser.New(nil).Evaluate(msg))
}

// messageID recovers the message id from an archive object name.
func messageID(name string) string {
	return strings.TrimSuffix(name, ".eml")
}
