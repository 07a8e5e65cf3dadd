package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/civil"

	"github.com/cashflow-ai/cashflow-backend/internal/app"
	"github.com/cashflow-ai/cashflow-backend/internal/domain"
	infraBQ "github.com/cashflow-ai/cashflow-backend/internal/infra/bigquery"
	"github.com/cashflow-ai/cashflow-backend/internal/logger"
	"github.com/cashflow-ai/cashflow-backend/internal/notionsync"
)

// sync-notion backfills the Notion database from the BigQuery transactions
// table. Pages that already exist for an email id are left alone.
func main() {
	configPath := flag.String("config", os.Getenv("CASHFLOW_CONFIG"), "path to a YAML config file (or set CASHFLOW_CONFIG env)")
	startDateStr := flag.String("start-date", "", "Start date in YYYY-MM-DD format (required)")
	endDateStr := flag.String("end-date", "", "End date in YYYY-MM-DD format (required)")
	notionToken := flag.String("notion-token", "", "Notion API token (default notion.token)")
	notionDBID := flag.String("notion-db-id", "", "Notion database ID (default notion.database_id)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	cfg, log, err := app.Load(*configPath, "cashflow-sync-notion")
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if *notionToken == "" {
		*notionToken = cfg.Notion.Token
	}
	if *notionDBID == "" {
		*notionDBID = cfg.Notion.DatabaseID
	}

	// Validate required flags
	if *startDateStr == "" || *endDateStr == "" {
		log.Fatal().Msg("Error: --start-date and --end-date are required")
	}
	if *notionToken == "" || *notionDBID == "" {
		log.Fatal().Msg("Error: a Notion token and database ID are required")
	}
	if cfg.BigQuery.ProjectID == "" {
		log.Fatal().Msg("Error: bigquery.project_id is required")
	}

	startDate, endDate, err := parseRange(*startDateStr, *endDateStr)
	if err != nil {
		log.Fatal().Err(err).Msg("Error: invalid date range")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("start_date", startDate.String()).
		Str("end_date", endDate.String()).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	repo, err := infraBQ.NewBigQueryTransactionRepository(ctx, infraBQ.TableRef{
		ProjectID: cfg.BigQuery.ProjectID,
		DatasetID: cfg.BigQuery.Dataset,
		TableID:   cfg.BigQuery.Table,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}
	defer repo.Close()

	exporter := notionsync.NewExporter(notionsync.NewNotionClient(*notionToken), *notionDBID, *dryRun)

	count, err := backfill(ctx, repo, exporter, startDate, endDate)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed successfully. %d transaction(s) considered.\n", count)
}

// parseRange parses and validates an inclusive YYYY-MM-DD date range.
func parseRange(start, end string) (civil.Date, civil.Date, error) {
	startDate, err := civil.ParseDate(start)
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("start-date %q: %w", start, err)
	}
	endDate, err := civil.ParseDate(end)
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("end-date %q: %w", end, err)
	}
	if endDate.Before(startDate) {
		return civil.Date{}, civil.Date{}, fmt.Errorf("end-date %s is before start-date %s", endDate, startDate)
	}
	return startDate, endDate, nil
}

type exporter interface {
	Export(ctx context.Context, txs []*domain.ParsedTransaction) error
}

// backfill exports every stored transaction in [start, end] and returns how
// many rows were read.
func backfill(ctx context.Context, repo infraBQ.TransactionReader, exp exporter, start, end civil.Date) (int, error) {
	rows, err := repo.TransactionsBetween(ctx, start, end)
	if err != nil {
		return 0, err
	}

	txs := make([]*domain.ParsedTransaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, row.ToTransaction())
	}

	if err := exp.Export(ctx, txs); err != nil {
		return len(rows), err
	}
	return len(rows), nil
}
