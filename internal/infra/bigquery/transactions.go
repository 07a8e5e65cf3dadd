package bigquery

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
)

// TransactionRow is one row of the transactions table.
type TransactionRow struct {
	EmailID       string              `bigquery:"email_id"`       // REQUIRED
	TransactionID bigquery.NullString `bigquery:"transaction_id"` // NULLABLE

	TransactionDate civil.Date        `bigquery:"transaction_date"` // REQUIRED
	TransactionTime bigquery.NullTime `bigquery:"transaction_time"` // NULLABLE

	Amount     *big.Rat            `bigquery:"amount"`      // REQUIRED NUMERIC, negative for debits
	Direction  bigquery.NullString `bigquery:"direction"`   // NULLABLE
	VAT        *big.Rat            `bigquery:"vat"`         // REQUIRED NUMERIC
	ServiceFee *big.Rat            `bigquery:"service_fee"` // REQUIRED NUMERIC

	AccountName   bigquery.NullString `bigquery:"account_name"`   // NULLABLE
	AccountNumber bigquery.NullString `bigquery:"account_number"` // NULLABLE

	CategoryName string              `bigquery:"category_name"` // REQUIRED
	Title        bigquery.NullString `bigquery:"title"`         // NULLABLE
	Notes        string              `bigquery:"notes"`         // REQUIRED
	Links        []string            `bigquery:"links"`         // REPEATED STRING
	Tags         []string            `bigquery:"tags"`          // REPEATED STRING

	Confidence float64             `bigquery:"confidence"` // REQUIRED FLOAT64
	RawEmail   bigquery.NullString `bigquery:"raw_email"`  // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// NewTransactionRow maps a parsed transaction to a table row.
func NewTransactionRow(tx *domain.ParsedTransaction, now time.Time) (*TransactionRow, error) {
	if tx.EmailID == "" {
		return nil, fmt.Errorf("NewTransactionRow: missing email id")
	}

	date, err := civil.ParseDate(tx.Date)
	if err != nil {
		return nil, fmt.Errorf("NewTransactionRow: email %s: parsing date: %w", tx.EmailID, err)
	}

	var tod bigquery.NullTime
	if tx.Time != "" {
		t, err := civil.ParseTime(tx.Time)
		if err != nil {
			return nil, fmt.Errorf("NewTransactionRow: email %s: parsing time: %w", tx.EmailID, err)
		}
		tod = bigquery.NullTime{Time: t, Valid: true}
	}

	return &TransactionRow{
		EmailID:         tx.EmailID,
		TransactionID:   nullString(tx.TransactionID),
		TransactionDate: date,
		TransactionTime: tod,
		Amount:          numeric(tx.Amount),
		Direction:       nullString(string(tx.Type)),
		VAT:             numeric(tx.VAT),
		ServiceFee:      numeric(tx.ServiceFee),
		AccountName:     nullString(tx.AccountName),
		AccountNumber:   nullString(tx.AccountNumber),
		CategoryName:    tx.Category,
		Title:           nullString(tx.Title),
		Notes:           tx.Notes,
		Links:           splitList(tx.Link),
		Tags:            splitList(tx.Tags),
		Confidence:      tx.Confidence,
		RawEmail:        nullString(tx.RawEmail),
		CreatedTS:       now.UTC(),
	}, nil
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// numeric converts through decimal so 0.1 lands as 1/10 rather than the
// binary expansion of the float.
func numeric(f float64) *big.Rat {
	return decimal.NewFromFloat(f).Rat()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ToTransaction maps a stored row back to a parsed transaction.
func (r *TransactionRow) ToTransaction() *domain.ParsedTransaction {
	tx := &domain.ParsedTransaction{
		EmailID:       r.EmailID,
		TransactionID: r.TransactionID.StringVal,
		Date:          r.TransactionDate.String(),
		Amount:        ratFloat(r.Amount),
		Type:          domain.TransactionType(r.Direction.StringVal),
		VAT:           ratFloat(r.VAT),
		ServiceFee:    ratFloat(r.ServiceFee),
		AccountName:   r.AccountName.StringVal,
		AccountNumber: r.AccountNumber.StringVal,
		Category:      r.CategoryName,
		Title:         r.Title.StringVal,
		Notes:         r.Notes,
		Link:          strings.Join(r.Links, "|"),
		Tags:          strings.Join(r.Tags, "|"),
		Confidence:    r.Confidence,
		RawEmail:      r.RawEmail.StringVal,
	}
	if r.TransactionTime.Valid {
		tx.Time = r.TransactionTime.Time.String()
	}
	return tx
}

func ratFloat(r *big.Rat) float64 {
	if r == nil {
		return 0
	}
	f, _ := r.Float64()
	return f
}
