package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
	"github.com/cashflow-ai/cashflow-backend/internal/templates"
)

const balanceWindow = 40

var (
	leadingNumberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

	// Institution-agnostic "money moved" phrasings.
	primaryAmountRe = regexp.MustCompile(`(?i)(?:You have transfer(?:ed|red)|has been debited with|has been credited with|` +
		`was debited with|was credited with|debited with ETB|credited with ETB|transferred ETB)\s*` +
		`(?:ETB\s*)?([0-9,]+(?:\.\d+)?)`)

	currencyAmountRe = regexp.MustCompile(`(?i)ETB\s*([0-9,]+(?:\.\d+)?)`)

	creditWordRe = regexp.MustCompile(`\bcredit(?:ed|s)?\b`)
	debitWordRe  = regexp.MustCompile(`\bdebit(?:ed|s)?\b`)
)

// ParseAmount normalizes an amount string: thousands separators are
// dropped and the first signed decimal number is taken. Anything
// unparsable is zero.
func ParseAmount(s string) decimal.Decimal {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	m := leadingNumberRe.FindString(s)
	if m == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ResolveAmount runs the amount cascade: the template's amount field,
// then the generic transfer phrasings, then the first ETB figure that is
// not near the word "balance".
func ResolveAmount(fields Fields, body string) decimal.Decimal {
	if v := fields.Get(templates.FieldAmount); v != "" {
		return ParseAmount(v)
	}

	if m := primaryAmountRe.FindStringSubmatch(body); m != nil {
		return ParseAmount(m[1])
	}

	matches := currencyAmountRe.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return decimal.Zero
	}

	amount := decimal.Zero
	for _, m := range matches {
		start, end := m[2], m[3]
		if windowContains(body, start, end, balanceWindow, balanceWindow, "balance") {
			continue
		}
		amount = ParseAmount(body[start:end])
		break
	}
	if !amount.IsZero() {
		return amount
	}

	// Every figure sits next to "balance": fall back to the first one
	// unless the template already identified it as the running balance.
	first := ParseAmount(body[matches[0][2]:matches[0][3]])
	if b := fields.Get(templates.FieldBalance); b != "" && ParseAmount(b).Equal(first) {
		return decimal.Zero
	}
	return first
}

// ResolveDirection classifies the body as credit or debit. Both checks
// always run and debit is tested last, so a body carrying both
// vocabularies is a debit.
func ResolveDirection(body string) domain.TransactionType {
	low := strings.ToLower(body)
	dir := domain.TypeUnknown

	if creditWordRe.MatchString(low) ||
		strings.Contains(low, "received") ||
		strings.Contains(low, "credited with") {
		dir = domain.TypeCredit
	}
	if debitWordRe.MatchString(low) ||
		strings.Contains(low, "withdraw") ||
		strings.Contains(low, "debited with") ||
		strings.Contains(low, "has been debited") ||
		strings.Contains(low, "your account has been debited") {
		dir = domain.TypeDebit
	}

	return dir
}

// ApplyDirection forces debits negative. Other directions keep the sign.
func ApplyDirection(amount decimal.Decimal, dir domain.TransactionType) decimal.Decimal {
	if dir == domain.TypeDebit {
		return amount.Abs().Neg()
	}
	return amount
}
