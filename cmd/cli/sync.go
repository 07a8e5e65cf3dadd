package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cashflow-ai/cashflow-backend/internal/app"
	"github.com/cashflow-ai/cashflow-backend/internal/ingest"
	"github.com/cashflow-ai/cashflow-backend/internal/logger"
	"github.com/cashflow-ai/cashflow-backend/internal/mailbox"
)

var (
	syncServer   string
	syncEmail    string
	syncPassword string
	syncFolder   string
	syncNoMark   bool
)

func init() {
	for _, c := range []*cobra.Command{syncCmd, testConnectionCmd} {
		c.Flags().StringVar(&syncServer, "imap-server", "", "IMAP server, optionally host:port (default from config)")
		c.Flags().StringVar(&syncEmail, "email", "", "mailbox address (default from config)")
		c.Flags().StringVar(&syncPassword, "app-password", "", "app password (default from config)")
		c.Flags().StringVar(&syncFolder, "folder", "", "mailbox folder (default from config)")
	}
	syncCmd.Flags().BoolVar(&syncNoMark, "no-mark-read", false, "leave parsed messages unread")
}

// syncCmd runs one sync of a mailbox
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync unread messages from a mailbox",
	Long: `Fetch unread messages, parse them, export to the configured sinks and
print the result as JSON.

Flags override the imap.* configuration.

Examples:
  cashflow sync --config cashflow.yaml
  cashflow sync --email alerts@example.com --app-password "$APP_PASSWORD" --no-mark-read`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

// testConnectionCmd checks that the mailbox accepts the credentials
var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Check mailbox credentials",
	Args:  cobra.NoArgs,
	RunE:  runTestConnection,
}

// setup loads config and builds the service with flag overrides applied.
func setup(cmd *cobra.Command, service string) (*app.App, mailbox.Credentials, error) {
	cfg, log, err := app.Load(configPath, service)
	if err != nil {
		return nil, mailbox.Credentials{}, err
	}
	if syncNoMark {
		cfg.Sync.MarkRead = false
	}

	cmd.SetContext(logger.WithContext(cmd.Context(), log))

	svc, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		return nil, mailbox.Credentials{}, err
	}

	creds := app.DefaultCredentials(cfg)
	if syncServer != "" {
		creds.Server = syncServer
	}
	if syncEmail != "" {
		creds.EmailAddress = syncEmail
	}
	if syncPassword != "" {
		creds.AppPassword = syncPassword
	}
	if syncFolder != "" {
		creds.Folder = syncFolder
	}
	return svc, creds, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	svc, creds, err := setup(cmd, "cashflow-cli")
	if err != nil {
		return err
	}
	defer svc.Close()

	result, err := svc.Syncer.Sync(cmd.Context(), creds)
	if err != nil {
		return fmt.Errorf("sync %s: %w", creds.EmailAddress, err)
	}

	return printSyncResult(cmd, result)
}

func printSyncResult(cmd *cobra.Command, result *ingest.Result) error {
	txs := make([]map[string]interface{}, 0, len(result.Transactions))
	for _, tx := range result.Transactions {
		txs = append(txs, tx.ToMap())
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"success":      true,
		"count":        result.Count,
		"fetched":      result.Fetched,
		"skipped":      result.Skipped,
		"marked_read":  result.MarkedRead,
		"transactions": txs,
	})
}

func runTestConnection(cmd *cobra.Command, args []string) error {
	svc, creds, err := setup(cmd, "cashflow-cli")
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := ingest.TestConnection(cmd.Context(), svc.Syncer.Dialer, creds); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Connection successful")
	return nil
}
