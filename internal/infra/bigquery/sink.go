// Package bigquery exports parsed transactions to a BigQuery table.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
	"github.com/cashflow-ai/cashflow-backend/internal/logger"
)

// SinkName identifies the BigQuery sink in logs and metrics.
const SinkName = "bigquery"

// Sink writes transactions that are not yet in the table.
type Sink struct {
	repo TransactionRepository
	now  func() time.Time
}

// NewSink creates a sink over repo.
func NewSink(repo TransactionRepository) *Sink {
	return &Sink{repo: repo, now: time.Now}
}

// Name implements ingest.Sink.
func (s *Sink) Name() string { return SinkName }

// Export inserts the transactions whose email id has no row yet.
func (s *Sink) Export(ctx context.Context, txs []*domain.ParsedTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	log := logger.FromContext(ctx)

	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.EmailID)
	}

	exported, err := s.repo.ExportedEmailIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("Export: %w", err)
	}

	now := s.now()
	rows := make([]*TransactionRow, 0, len(txs))
	seen := make(map[string]bool, len(txs))
	for _, tx := range txs {
		if exported[tx.EmailID] || seen[tx.EmailID] {
			log.Debug().Str("email_id", tx.EmailID).Str("sink", SinkName).Msg("Transaction already exported")
			continue
		}
		row, err := NewTransactionRow(tx, now)
		if err != nil {
			return fmt.Errorf("Export: %w", err)
		}
		seen[tx.EmailID] = true
		rows = append(rows, row)
	}

	if err := s.repo.InsertTransactions(ctx, rows); err != nil {
		return fmt.Errorf("Export: %w", err)
	}
	return nil
}

// Close releases the underlying repository.
func (s *Sink) Close() error {
	return s.repo.Close()
}
