package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

// TableRef locates the transactions table.
type TableRef struct {
	ProjectID string
	DatasetID string
	TableID   string
}

// FullName returns project.dataset.table.
func (t TableRef) FullName() string {
	return t.ProjectID + "." + t.DatasetID + "." + t.TableID
}

// InsertTransactionsWithClient streams rows into the transactions table.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, table TableRef, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.DatasetInProject(table.ProjectID, table.DatasetID).Table(table.TableID).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}

	return nil
}

// QueryExportedEmailIDsWithClient returns which of emailIDs already have a
// row in the transactions table.
func QueryExportedEmailIDsWithClient(ctx context.Context, client *bigquery.Client, table TableRef, emailIDs []string) (map[string]bool, error) {
	exported := make(map[string]bool)
	if len(emailIDs) == 0 {
		return exported, nil
	}

	q := client.Query(`
		SELECT DISTINCT email_id
		FROM ` + "`" + table.FullName() + "`" + `
		WHERE email_id IN UNNEST(@email_ids)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "email_ids", Value: emailIDs},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryExportedEmailIDs: query read: %w", err)
	}

	for {
		var r struct {
			EmailID string `bigquery:"email_id"`
		}
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryExportedEmailIDs: iter next: %w", err)
		}
		exported[r.EmailID] = true
	}

	return exported, nil
}

// QueryTransactionsByDateRangeWithClient returns rows whose transaction_date
// falls in [start, end], oldest first.
func QueryTransactionsByDateRangeWithClient(ctx context.Context, client *bigquery.Client, table TableRef, start, end civil.Date) ([]*TransactionRow, error) {
	q := client.Query(`
		SELECT *
		FROM ` + "`" + table.FullName() + "`" + `
		WHERE transaction_date BETWEEN @start_date AND @end_date
		ORDER BY transaction_date ASC, transaction_time ASC, email_id ASC
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByDateRange: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsByDateRange: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
