package bigquery

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
)

var now = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func sampleTx(emailID string) *domain.ParsedTransaction {
	return &domain.ParsedTransaction{
		Amount:        -1510.1,
		AccountName:   "CBE",
		AccountNumber: "1*****6789",
		Date:          "2025-03-14",
		Time:          "09:26:53",
		Type:          domain.TypeDebit,
		Category:      domain.CategoryUnclassified,
		Title:         "Abebe Kebede",
		Notes:         "debited",
		Link:          "https://a.example/1|https://b.example/2",
		VAT:           0.1,
		ServiceFee:    10,
		Tags:          "ATM|PACKAGE",
		TransactionID: "FT123",
		Confidence:    0.9,
		EmailID:       emailID,
	}
}

func TestNewTransactionRow(t *testing.T) {
	row, err := NewTransactionRow(sampleTx("42"), now)
	require.NoError(t, err)

	assert.Equal(t, "42", row.EmailID)
	assert.Equal(t, civil.Date{Year: 2025, Month: time.March, Day: 14}, row.TransactionDate)
	assert.True(t, row.TransactionTime.Valid)
	assert.Equal(t, civil.Time{Hour: 9, Minute: 26, Second: 53}, row.TransactionTime.Time)
	assert.Equal(t, 0, row.Amount.Cmp(big.NewRat(-15101, 10)))
	assert.Equal(t, 0, row.VAT.Cmp(big.NewRat(1, 10)))
	assert.Equal(t, 0, row.ServiceFee.Cmp(big.NewRat(10, 1)))
	assert.Equal(t, "debit", row.Direction.StringVal)
	assert.Equal(t, "FT123", row.TransactionID.StringVal)
	assert.Equal(t, []string{"https://a.example/1", "https://b.example/2"}, row.Links)
	assert.Equal(t, []string{"ATM", "PACKAGE"}, row.Tags)
	assert.False(t, row.RawEmail.Valid)
	assert.Equal(t, now, row.CreatedTS)
}

func TestNewTransactionRow_EmptyOptionalFields(t *testing.T) {
	tx := sampleTx("7")
	tx.Time = ""
	tx.Title = ""
	tx.Link = ""
	tx.Tags = ""

	row, err := NewTransactionRow(tx, now)
	require.NoError(t, err)
	assert.False(t, row.TransactionTime.Valid)
	assert.False(t, row.Title.Valid)
	assert.Nil(t, row.Links)
	assert.Nil(t, row.Tags)
}

func TestNewTransactionRow_Errors(t *testing.T) {
	tx := sampleTx("")
	_, err := NewTransactionRow(tx, now)
	assert.Error(t, err)

	tx = sampleTx("1")
	tx.Date = "14/03/2025"
	_, err = NewTransactionRow(tx, now)
	assert.Error(t, err)
}

type fakeRepo struct {
	exported  map[string]bool
	queryErr  error
	insertErr error
	inserted  []*TransactionRow
	closed    bool
}

func (r *fakeRepo) ExportedEmailIDs(ctx context.Context, emailIDs []string) (map[string]bool, error) {
	if r.queryErr != nil {
		return nil, r.queryErr
	}
	return r.exported, nil
}

func (r *fakeRepo) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, rows...)
	return nil
}

func (r *fakeRepo) Close() error {
	r.closed = true
	return nil
}

func TestSink_Export(t *testing.T) {
	repo := &fakeRepo{exported: map[string]bool{"1": true}}
	sink := NewSink(repo)
	assert.Equal(t, "bigquery", sink.Name())

	err := sink.Export(context.Background(), []*domain.ParsedTransaction{sampleTx("1"), sampleTx("2"), sampleTx("2"), sampleTx("3")})
	require.NoError(t, err)

	require.Len(t, repo.inserted, 2)
	assert.Equal(t, "2", repo.inserted[0].EmailID)
	assert.Equal(t, "3", repo.inserted[1].EmailID)

	require.NoError(t, sink.Close())
	assert.True(t, repo.closed)
}

func TestSink_ExportErrors(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		sink := NewSink(&fakeRepo{queryErr: errors.New("denied")})
		err := sink.Export(context.Background(), []*domain.ParsedTransaction{sampleTx("1")})
		assert.ErrorContains(t, err, "denied")
	})

	t.Run("insert", func(t *testing.T) {
		sink := NewSink(&fakeRepo{insertErr: errors.New("quota")})
		err := sink.Export(context.Background(), []*domain.ParsedTransaction{sampleTx("1")})
		assert.ErrorContains(t, err, "quota")
	})

	t.Run("empty batch", func(t *testing.T) {
		repo := &fakeRepo{queryErr: errors.New("not called")}
		assert.NoError(t, NewSink(repo).Export(context.Background(), nil))
	})
}

func TestTransactionRow_ToTransaction(t *testing.T) {
	tx := sampleTx("42")
	tx.RawEmail = "raw"

	row, err := NewTransactionRow(tx, now)
	require.NoError(t, err)

	assert.Equal(t, tx, row.ToTransaction())
}

func TestTransactionRow_ToTransaction_NoTime(t *testing.T) {
	tx := sampleTx("43")
	tx.Time = ""

	row, err := NewTransactionRow(tx, now)
	require.NoError(t, err)

	got := row.ToTransaction()
	assert.Empty(t, got.Time)
	assert.Equal(t, "2025-03-14", got.Date)
}
