// Package notionsync exports parsed transactions to a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
	"github.com/cashflow-ai/cashflow-backend/internal/logger"
)

const (
	// BatchSize defines the number of transactions to process in a single batch
	BatchSize = 100

	// SinkName identifies the Notion sink in logs and metrics.
	SinkName = "notion"
)

// Exporter creates one page per transaction. Pages are keyed by Email ID,
// so a message is never exported twice.
type Exporter struct {
	client     NotionService
	databaseID string
	dryRun     bool
}

// NewExporter creates an Exporter. With dryRun set it only logs.
func NewExporter(client NotionService, databaseID string, dryRun bool) *Exporter {
	return &Exporter{client: client, databaseID: databaseID, dryRun: dryRun}
}

// Name implements ingest.Sink.
func (e *Exporter) Name() string { return SinkName }

// Export creates pages for the transactions not yet in the database.
// Individual page failures are logged; the call fails if any page failed.
func (e *Exporter) Export(ctx context.Context, txs []*domain.ParsedTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	log := logger.FromContext(ctx).With().Str("sink", SinkName).Bool("dry_run", e.dryRun).Logger()

	pages, err := queryAllNotionPages(ctx, e.client, e.databaseID)
	if err != nil {
		return fmt.Errorf("failed to query Notion pages: %w", err)
	}

	existing := make(map[string]bool, len(pages))
	for _, page := range pages {
		if id := extractEmailID(page); id != "" {
			existing[id] = true
		}
	}

	var created, skipped, failed int
	for i := 0; i < len(txs); i += BatchSize {
		end := i + BatchSize
		if end > len(txs) {
			end = len(txs)
		}

		log.Debug().
			Int("batch_start", i).
			Int("batch_end", end).
			Msg("Processing batch")

		for _, tx := range txs[i:end] {
			if existing[tx.EmailID] {
				skipped++
				continue
			}
			existing[tx.EmailID] = true

			if e.dryRun {
				log.Info().Str("email_id", tx.EmailID).Msg("[DRY RUN] Would create Notion page")
				created++
				continue
			}

			page, err := e.client.CreatePage(ctx, e.databaseID, TransactionToNotionProperties(tx))
			if err != nil {
				log.Warn().Err(err).Str("email_id", tx.EmailID).Msg("Failed to create Notion page")
				failed++
				continue
			}
			log.Debug().Str("email_id", tx.EmailID).Str("page_id", string(page.ID)).Msg("Created Notion page")
			created++
		}
	}

	log.Info().
		Int("created", created).
		Int("skipped", skipped).
		Int("failed", failed).
		Int("total", len(txs)).
		Msg("Notion export completed")

	if failed > 0 {
		return fmt.Errorf("failed to create %d of %d Notion pages", failed, len(txs))
	}
	return nil
}

// queryAllNotionPages follows the cursor until every page is read.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
