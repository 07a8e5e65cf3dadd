package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTransaction() *ParsedTransaction {
	return &ParsedTransaction{
		Amount:        -1234.57,
		AccountName:   "CBE",
		AccountNumber: "1*****6789",
		Date:          "2025-03-14",
		Time:          "09:26:53",
		Type:          TypeDebit,
		Category:      CategoryUnclassified,
		Title:         "Abebe Kebede",
		Notes:         "Dear customer your account has been debited with ETB 1,234.57",
		Link:          "https://apps.cbe.com.et:100/?id=FT25073ABCD|https://example.test/r",
		VAT:           0.15,
		ServiceFee:    1,
		Tags:          "ATM",
		TransactionID: "FT25073ABCD",
		Confidence:    0.9,
		EmailID:       "4711",
		RawEmail:      "From: CBE\r\n\r\nbody",
	}
}

func TestToMapFromMap_RoundTrip(t *testing.T) {
	want := sampleTransaction()

	got, err := FromMap(want.ToMap())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFromMap_RoundTripThroughJSON(t *testing.T) {
	want := sampleTransaction()
	a, b := 0.1, 0.2
	want.Amount = a + b // 0.30000000000000004

	data, err := json.Marshal(want.ToMap())
	require.NoError(t, err)

	var m map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&m))

	got, err := FromMap(m)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFromMap_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]interface{}
	}{
		{name: "missing amount", in: map[string]interface{}{"vat": 0.0}},
		{name: "amount wrong type", in: map[string]interface{}{"amount": "12"}},
		{name: "string field wrong type", in: map[string]interface{}{"amount": 1.0, "title": 7}},
		{name: "unknown type", in: map[string]interface{}{"amount": 1.0, "type": "refund"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.in)
			assert.Error(t, err)
		})
	}
}

func TestFromMap_OptionalFieldsDefault(t *testing.T) {
	got, err := FromMap(map[string]interface{}{"amount": 50, "title": nil})
	require.NoError(t, err)

	assert.Equal(t, 50.0, got.Amount)
	assert.Equal(t, TypeUnknown, got.Type)
	assert.Empty(t, got.Title)
}

func TestParsedTransaction_OccurredAt(t *testing.T) {
	tx := sampleTransaction()

	at, err := tx.OccurredAt(nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC), at)
}
