package domain

import (
	"time"
)

// TransactionType is the money direction of a parsed transaction.
type TransactionType string

const (
	TypeCredit  TransactionType = "credit"
	TypeDebit   TransactionType = "debit"
	TypeUnknown TransactionType = ""
)

// CategoryUnclassified is the placeholder category for every parsed
// transaction; categorisation happens downstream.
const CategoryUnclassified = "undefined"

// Date and time layouts used in the serialized record.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// RawMessage is one message as produced by a message source.
// Sources must not modify a RawMessage after handing it out.
type RawMessage struct {
	ID      string    // opaque source identifier (IMAP UID)
	Sender  string    // decoded From header
	Subject string    // decoded Subject header
	Body    string    // plain-text body
	Date    time.Time // Date header, or fetch time when absent
	Raw     string    // full source, for debugging
}

// ParsedTransaction is the structured result for one message.
// Amount is negative for debits and never zero.
type ParsedTransaction struct {
	Amount        float64         `json:"amount"`
	AccountName   string          `json:"account_name"`
	AccountNumber string          `json:"account_number"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	Type          TransactionType `json:"type"`
	Category      string          `json:"category"`
	Title         string          `json:"title"`
	Notes         string          `json:"notes"`
	Link          string          `json:"link"`
	Error         string          `json:"error"`
	VAT           float64         `json:"vat"`
	ServiceFee    float64         `json:"service_fee"`
	Tags          string          `json:"tags"`
	TransactionID string          `json:"transaction_id"`
	Confidence    float64         `json:"confidence"`
	EmailID       string          `json:"email_id"`
	RawEmail      string          `json:"raw_email"`
}

// OccurredAt reconstructs the message timestamp from Date and Time in loc.
func (t *ParsedTransaction) OccurredAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout+" "+TimeLayout, t.Date+" "+t.Time, loc)
}
