package parser

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
)

func TestDetectTags(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"ATM withdrawal of ETB 500 and a data package purchase", "ATM|PACKAGE"},
		{"Cash withdraw at branch", "ATM"},
		{"You bought a Voice Package", "PACKAGE"},
		{"Your account has been credited", ""},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectTags(tt.body))
		})
	}
}

func TestExtractLinks(t *testing.T) {
	body := "See https://a.test/x?id=1 and http://b.test/y for details"
	assert.Equal(t, "https://a.test/x?id=1|http://b.test/y", ExtractLinks(body))
	assert.Empty(t, ExtractLinks("no links here"))
}

func TestScore(t *testing.T) {
	ten := decimal.NewFromInt(10)

	tests := []struct {
		name        string
		amount      decimal.Decimal
		dir         domain.TransactionType
		institution string
		txID        string
		title       string
		want        float64
	}{
		{name: "everything", amount: ten, dir: domain.TypeCredit, institution: "CBE", txID: "FT1", title: "Abebe", want: 1},
		{name: "nothing", amount: decimal.Zero, want: 0},
		{name: "amount and direction", amount: ten, dir: domain.TypeDebit, want: 0.5},
		{name: "amount and title", amount: ten, title: "Abebe", want: 0.4},
		{name: "no reference", amount: ten, dir: domain.TypeDebit, institution: "BOA", title: "Abebe", want: 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.amount, tt.dir, tt.institution, tt.txID, tt.title))
		})
	}
}
