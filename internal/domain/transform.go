package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Map keys of the serialized transaction.
const (
	KeyAmount        = "amount"
	KeyAccountName   = "account_name"
	KeyAccountNumber = "account_number"
	KeyDate          = "date"
	KeyTime          = "time"
	KeyType          = "type"
	KeyCategory      = "category"
	KeyTitle         = "title"
	KeyNotes         = "notes"
	KeyLink          = "link"
	KeyError         = "error"
	KeyVAT           = "vat"
	KeyServiceFee    = "service_fee"
	KeyTags          = "tags"
	KeyTransactionID = "transaction_id"
	KeyConfidence    = "confidence"
	KeyEmailID       = "email_id"
	KeyRawEmail      = "raw_email"
)

// ToMap converts the transaction into its external key/value form.
// Numbers are stored as float64 so FromMap recovers them exactly.
func (t *ParsedTransaction) ToMap() map[string]interface{} {
	return map[string]interface{}{
		KeyAmount:        t.Amount,
		KeyAccountName:   t.AccountName,
		KeyAccountNumber: t.AccountNumber,
		KeyDate:          t.Date,
		KeyTime:          t.Time,
		KeyType:          string(t.Type),
		KeyCategory:      t.Category,
		KeyTitle:         t.Title,
		KeyNotes:         t.Notes,
		KeyLink:          t.Link,
		KeyError:         t.Error,
		KeyVAT:           t.VAT,
		KeyServiceFee:    t.ServiceFee,
		KeyTags:          t.Tags,
		KeyTransactionID: t.TransactionID,
		KeyConfidence:    t.Confidence,
		KeyEmailID:       t.EmailID,
		KeyRawEmail:      t.RawEmail,
	}
}

// FromMap rebuilds a transaction from the map produced by ToMap or by
// decoding its JSON form. Amount is required; every other key is optional.
func FromMap(m map[string]interface{}) (*ParsedTransaction, error) {
	var (
		t   ParsedTransaction
		err error
	)

	if t.Amount, err = getFloat64Field(m, KeyAmount, true); err != nil {
		return nil, fmt.Errorf("FromMap: %w", err)
	}
	if t.VAT, err = getFloat64Field(m, KeyVAT, false); err != nil {
		return nil, fmt.Errorf("FromMap: %w", err)
	}
	if t.ServiceFee, err = getFloat64Field(m, KeyServiceFee, false); err != nil {
		return nil, fmt.Errorf("FromMap: %w", err)
	}
	if t.Confidence, err = getFloat64Field(m, KeyConfidence, false); err != nil {
		return nil, fmt.Errorf("FromMap: %w", err)
	}

	strs := []struct {
		key string
		dst *string
	}{
		{KeyAccountName, &t.AccountName},
		{KeyAccountNumber, &t.AccountNumber},
		{KeyDate, &t.Date},
		{KeyTime, &t.Time},
		{KeyCategory, &t.Category},
		{KeyTitle, &t.Title},
		{KeyNotes, &t.Notes},
		{KeyLink, &t.Link},
		{KeyError, &t.Error},
		{KeyTags, &t.Tags},
		{KeyTransactionID, &t.TransactionID},
		{KeyEmailID, &t.EmailID},
		{KeyRawEmail, &t.RawEmail},
	}
	for _, s := range strs {
		if *s.dst, err = getStringField(m, s.key, false); err != nil {
			return nil, fmt.Errorf("FromMap: %w", err)
		}
	}

	typ, err := getStringField(m, KeyType, false)
	if err != nil {
		return nil, fmt.Errorf("FromMap: %w", err)
	}
	switch TransactionType(typ) {
	case TypeCredit, TypeDebit, TypeUnknown:
		t.Type = TransactionType(typ)
	default:
		return nil, fmt.Errorf("FromMap: field %q has value %q, want credit, debit or empty", KeyType, typ)
	}

	return &t, nil
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		if required && strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return val, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

func getFloat64Field(m map[string]interface{}, key string, required bool) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return 0, fmt.Errorf("missing required field %q", key)
		}
		return 0, nil
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}
