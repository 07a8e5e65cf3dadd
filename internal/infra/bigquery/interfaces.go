package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// TransactionRepository reads and writes the transactions table.
type TransactionRepository interface {
	ExportedEmailIDs(ctx context.Context, emailIDs []string) (map[string]bool, error)
	InsertTransactions(ctx context.Context, rows []*TransactionRow) error
	Close() error
}

// TransactionReader lists stored transactions for backfills.
type TransactionReader interface {
	TransactionsBetween(ctx context.Context, start, end civil.Date) ([]*TransactionRow, error)
}

// BigQueryTransactionRepository is the concrete implementation of
// TransactionRepository. It holds a shared BigQuery client to avoid
// creating a new connection for each operation.
type BigQueryTransactionRepository struct {
	client *bigquery.Client
	table  TableRef
}

// NewBigQueryTransactionRepository creates a repository for table.
func NewBigQueryTransactionRepository(ctx context.Context, table TableRef) (*BigQueryTransactionRepository, error) {
	client, err := bigquery.NewClient(ctx, table.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryTransactionRepository: creating client: %w", err)
	}
	return &BigQueryTransactionRepository{client: client, table: table}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryTransactionRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// ExportedEmailIDs delegates to QueryExportedEmailIDsWithClient with the shared client.
func (r *BigQueryTransactionRepository) ExportedEmailIDs(ctx context.Context, emailIDs []string) (map[string]bool, error) {
	return QueryExportedEmailIDsWithClient(ctx, r.client, r.table, emailIDs)
}

// InsertTransactions delegates to InsertTransactionsWithClient with the shared client.
func (r *BigQueryTransactionRepository) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	return InsertTransactionsWithClient(ctx, r.client, r.table, rows)
}

// TransactionsBetween delegates to QueryTransactionsByDateRangeWithClient with the shared client.
func (r *BigQueryTransactionRepository) TransactionsBetween(ctx context.Context, start, end civil.Date) ([]*TransactionRow, error) {
	return QueryTransactionsByDateRangeWithClient(ctx, r.client, r.table, start, end)
}

var _ TransactionReader = (*BigQueryTransactionRepository)(nil)
var _ TransactionRepository = (*BigQueryTransactionRepository)(nil)
